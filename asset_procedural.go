package gekko

import (
	"github.com/gekko3d/gekko-particles/particlert/rt/gpu"
	"github.com/go-gl/mathgl/mgl32"
)

// CreateCubeMesh adds a unit-centered cube with flat normals.
func (server *AssetServer) CreateCubeMesh(size float32) AssetId {
	h := size / 2
	faces := []struct {
		normal, u, v mgl32.Vec3
	}{
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	}
	mesh := &gpu.MeshGeometry{Name: "cube"}
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for _, f := range faces {
		base := uint32(len(mesh.Vertices))
		for _, c := range corners {
			p := f.normal.Add(f.u.Mul(c[0])).Add(f.v.Mul(c[1])).Mul(h)
			mesh.Vertices = append(mesh.Vertices, meshVertex(p, f.normal, (c[0]+1)/2, (c[1]+1)/2))
		}
		mesh.Indices = append(mesh.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return server.AddMesh(mesh)
}

// CreateOctahedronMesh adds a diamond shaped shard, good for debris.
func (server *AssetServer) CreateOctahedronMesh(radius float32) AssetId {
	tips := []mgl32.Vec3{
		{radius, 0, 0}, {0, 0, radius}, {-radius, 0, 0}, {0, 0, -radius},
	}
	top, bottom := mgl32.Vec3{0, radius, 0}, mgl32.Vec3{0, -radius, 0}

	mesh := &gpu.MeshGeometry{Name: "octahedron"}
	addTri := func(a, b, c mgl32.Vec3) {
		n := b.Sub(a).Cross(c.Sub(a)).Normalize()
		base := uint32(len(mesh.Vertices))
		mesh.Vertices = append(mesh.Vertices,
			meshVertex(a, n, 0.5, 1),
			meshVertex(b, n, 0, 0),
			meshVertex(c, n, 1, 0),
		)
		mesh.Indices = append(mesh.Indices, base, base+1, base+2)
	}
	for i := range tips {
		a, b := tips[i], tips[(i+1)%len(tips)]
		addTri(top, b, a)
		addTri(bottom, a, b)
	}
	return server.AddMesh(mesh)
}

func meshVertex(p, n mgl32.Vec3, u, v float32) gpu.MeshVertex {
	return gpu.MeshVertex{
		Pos:    [3]float32{p.X(), p.Y(), p.Z()},
		Normal: [3]float32{n.X(), n.Y(), n.Z()},
		UV:     [2]float32{u, v},
	}
}
