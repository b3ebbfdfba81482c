package gekko

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/gekko-particles/particlert/rt/gpu"
	"github.com/go-gl/mathgl/mgl32"
)

func wgpuWrapMode(mode string) wgpu.AddressMode {
	switch mode {
	case "", "clamp":
		return wgpu.AddressModeClampToEdge
	case "wrap":
		return wgpu.AddressModeRepeat
	case "mirror":
		return wgpu.AddressModeMirrorRepeat
	default:
		panic(fmt.Sprintf("Unknown wrap mode: %s", mode))
	}
}

func wgpuFilterMode(mode string) wgpu.FilterMode {
	switch mode {
	case "nearest":
		return wgpu.FilterModeNearest
	case "", "linear":
		return wgpu.FilterModeLinear
	default:
		panic(fmt.Sprintf("Unknown filter mode: %s", mode))
	}
}

func wgpuBytesPerPixel(format wgpu.TextureFormat) uint {
	switch format {
	case wgpu.TextureFormatR8Unorm, wgpu.TextureFormatR8Snorm,
		wgpu.TextureFormatR8Uint, wgpu.TextureFormatR8Sint:
		return 1
	case wgpu.TextureFormatR16Uint, wgpu.TextureFormatR16Sint, wgpu.TextureFormatR16Float,
		wgpu.TextureFormatRG8Unorm, wgpu.TextureFormatRG8Snorm,
		wgpu.TextureFormatRG8Uint, wgpu.TextureFormatRG8Sint:
		return 2
	case wgpu.TextureFormatR32Float, wgpu.TextureFormatR32Uint, wgpu.TextureFormatR32Sint,
		wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatRGBA8UnormSrgb,
		wgpu.TextureFormatRGBA8Snorm, wgpu.TextureFormatRGBA8Uint, wgpu.TextureFormatRGBA8Sint,
		wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatBGRA8UnormSrgb:
		return 4
	case wgpu.TextureFormatRGBA16Float, wgpu.TextureFormatRG32Float:
		return 8
	case wgpu.TextureFormatRGBA32Float:
		return 16
	}
	panic("Add missing texture format")
}

func buildCameraMatrix(c *CameraComponent, aspect float32) mgl32.Mat4 {
	view := mgl32.LookAtV(
		c.Position,
		c.LookAt,
		c.Up,
	)
	projection := mgl32.Perspective(
		mgl32.DegToRad(c.Fov),
		aspect,
		c.Near,
		c.Far,
	)
	return projection.Mul4(view)
}

// cameraBasis returns the world-space right and up axes billboards face.
func cameraBasis(c *CameraComponent) (right, up mgl32.Vec3) {
	forward := c.LookAt.Sub(c.Position)
	if forward.Len() < 1e-6 {
		return mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}
	}
	forward = forward.Normalize()
	right = forward.Cross(c.Up)
	if right.Len() < 1e-6 {
		right = mgl32.Vec3{1, 0, 0}
	}
	right = right.Normalize()
	up = right.Cross(forward).Normalize()
	return right, up
}

func makeCameraUniform(c *CameraComponent, aspect float32, draw *ParticleDraw, stretch float32) cameraUniform {
	right, up := cameraBasis(c)
	return cameraUniform{
		ViewProj: buildCameraMatrix(c, aspect),
		Right:    [4]float32{right.X(), right.Y(), right.Z(), 0},
		Up:       [4]float32{up.X(), up.Y(), up.Z(), 0},
		Params:   [4]float32{draw.PlayTime, stretch, float32(draw.Geometry.Mode), 0},
		Gravity:  [4]float32{draw.GravityMin, draw.GravityMax, 0, 0},
	}
}

// drawCall is one instanced draw; drawCallsFor emits one per draw range.
type drawCall struct {
	indexed       bool
	count         uint32
	instanceCount uint32
	firstInstance uint32
}

func drawCallsFor(g gpu.Geometry, ranges []gpu.DrawRange) []drawCall {
	calls := make([]drawCall, 0, len(ranges))
	indexed := g.Mesh != nil && g.IndexCount > 0
	count := g.VertexCount
	if indexed {
		count = g.IndexCount
	}
	for _, r := range ranges {
		if r.InstanceCount == 0 {
			continue
		}
		calls = append(calls, drawCall{
			indexed:       indexed,
			count:         count,
			instanceCount: r.InstanceCount,
			firstInstance: r.FirstInstance,
		})
	}
	return calls
}
