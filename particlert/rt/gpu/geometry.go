package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/gekko-particles/particlert/rt/core"
)

type RenderMode uint32

const (
	RenderBillboard RenderMode = iota
	RenderStretchedBillboard
	RenderMesh
)

func (m RenderMode) String() string {
	switch m {
	case RenderBillboard:
		return "billboard"
	case RenderStretchedBillboard:
		return "stretched"
	case RenderMesh:
		return "mesh"
	default:
		return fmt.Sprintf("RenderMode(%d)", uint32(m))
	}
}

func ParseRenderMode(name string) (RenderMode, error) {
	switch name {
	case "", "billboard":
		return RenderBillboard, nil
	case "stretched":
		return RenderStretchedBillboard, nil
	case "mesh":
		return RenderMesh, nil
	default:
		return RenderBillboard, fmt.Errorf("unknown render mode %q", name)
	}
}

// MeshVertex matches the vs_mesh vertex input.
type MeshVertex struct {
	Pos    [3]float32
	Normal [3]float32
	UV     [2]float32
}

type MeshGeometry struct {
	Name     string
	Vertices []MeshVertex
	Indices  []uint32
}

// QuadVertex is one corner of the generated billboard quad.
type QuadVertex struct {
	Corner [2]float32
	UV     [2]float32
}

var billboardQuad = []QuadVertex{
	{Corner: [2]float32{-0.5, -0.5}, UV: [2]float32{0, 1}},
	{Corner: [2]float32{0.5, -0.5}, UV: [2]float32{1, 1}},
	{Corner: [2]float32{0.5, 0.5}, UV: [2]float32{1, 0}},
	{Corner: [2]float32{-0.5, -0.5}, UV: [2]float32{0, 1}},
	{Corner: [2]float32{0.5, 0.5}, UV: [2]float32{1, 0}},
	{Corner: [2]float32{-0.5, 0.5}, UV: [2]float32{0, 0}},
}

// Instance attributes start at this shader location, after the per-vertex ones.
const instanceLocationBase = 3

// Geometry is the vertex input description for one render mode.
type Geometry struct {
	Mode        RenderMode
	Vertex      wgpu.VertexBufferLayout
	Instance    wgpu.VertexBufferLayout
	QuadData    []QuadVertex
	Mesh        *MeshGeometry
	VertexCount uint32
	IndexCount  uint32
}

// Buffers lists the layouts in pipeline order: vertex then instance.
func (g Geometry) Buffers() []wgpu.VertexBufferLayout {
	return []wgpu.VertexBufferLayout{g.Vertex, g.Instance}
}

func floatFormat(n int) wgpu.VertexFormat {
	switch n {
	case 1:
		return wgpu.VertexFormatFloat32
	case 2:
		return wgpu.VertexFormatFloat32x2
	case 3:
		return wgpu.VertexFormatFloat32x3
	default:
		return wgpu.VertexFormatFloat32x4
	}
}

// InstanceLayout maps every record field to a shader location.
func InstanceLayout(l core.Layout) wgpu.VertexBufferLayout {
	type field struct{ off, n int }
	fields := []field{
		{l.Position, 3},
		{l.StartLifetime, 1},
		{l.Direction, 3},
		{l.SpawnTime, 1},
		{l.StartColor, 4},
		{l.StartSize, l.SizeComponents()},
		{l.StartRotation, l.RotationComponents()},
		{l.StartSpeed, 1},
		{l.FeatureSeeds, 4},
		{l.VelocitySeeds, 4},
		{l.SimulationUV, 4},
	}
	if l.HasWorldTransform() {
		fields = append(fields, field{l.WorldPosition, 3}, field{l.WorldRotation, 4})
	}

	attrs := make([]wgpu.VertexAttribute, 0, len(fields))
	for i, f := range fields {
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         floatFormat(f.n),
			Offset:         uint64(f.off) * 4,
			ShaderLocation: uint32(instanceLocationBase + i),
		})
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: l.ByteStride(),
		StepMode:    wgpu.VertexStepModeInstance,
		Attributes:  attrs,
	}
}

func buildGeometry(mode RenderMode, mesh *MeshGeometry, l core.Layout) Geometry {
	g := Geometry{Mode: mode, Instance: InstanceLayout(l)}

	if mode == RenderMesh && mesh != nil {
		g.Mesh = mesh
		g.VertexCount = uint32(len(mesh.Vertices))
		g.IndexCount = uint32(len(mesh.Indices))
		g.Vertex = wgpu.VertexBufferLayout{
			ArrayStride: 32,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
				{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
				{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
			},
		}
		return g
	}

	// mesh mode without a mesh falls back to quads
	if g.Mode == RenderMesh {
		g.Mode = RenderBillboard
	}
	g.QuadData = billboardQuad
	g.VertexCount = uint32(len(billboardQuad))
	g.Vertex = wgpu.VertexBufferLayout{
		ArrayStride: 16,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
		},
	}
	return g
}
