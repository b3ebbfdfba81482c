package gekko

import (
	"fmt"
	"image"
	_ "image/png"
	"math/bits"
	"os"
	"path/filepath"

	"github.com/gekko3d/gekko-particles/particlert/rt/gpu"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

type AssetId string

// MaxTextureSize caps sprite textures after power-of-two rounding.
const MaxTextureSize = 1024

// TextureAsset holds RGBA8 texels with power-of-two dimensions.
type TextureAsset struct {
	Name    string
	Version uint
	Texels  []uint8
	Width   uint32
	Height  uint32
}

type AssetServer struct {
	meshes   map[AssetId]*gpu.MeshGeometry
	textures map[AssetId]*TextureAsset
	white    AssetId
}

type AssetServerModule struct{}

func (AssetServerModule) Install(app *App, cmd *Commands) {
	app.addResources(NewAssetServer())
}

func NewAssetServer() *AssetServer {
	server := &AssetServer{
		meshes:   make(map[AssetId]*gpu.MeshGeometry),
		textures: make(map[AssetId]*TextureAsset),
	}
	server.white = server.CreateTexture("white", []uint8{255, 255, 255, 255}, 1, 1)
	return server
}

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}

// AddMesh registers mesh geometry for the mesh render mode.
func (server *AssetServer) AddMesh(mesh *gpu.MeshGeometry) AssetId {
	id := makeAssetId()
	server.meshes[id] = mesh
	return id
}

// Mesh returns nil for unknown ids and for the empty id.
func (server *AssetServer) Mesh(id AssetId) *gpu.MeshGeometry {
	if server == nil || id == "" {
		return nil
	}
	return server.meshes[id]
}

func (server *AssetServer) CreateTexture(name string, texels []uint8, width, height uint32) AssetId {
	id := makeAssetId()
	server.textures[id] = &TextureAsset{
		Name:   name,
		Texels: texels,
		Width:  width,
		Height: height,
	}
	return id
}

// Texture falls back to a single white texel for unknown ids.
func (server *AssetServer) Texture(id AssetId) *TextureAsset {
	if tex, ok := server.textures[id]; ok {
		return tex
	}
	return server.textures[server.white]
}

func (server *AssetServer) WhiteTexture() AssetId { return server.white }

// LoadTexture decodes a png or webp sprite and resamples it to power-of-two
// dimensions.
func (server *AssetServer) LoadTexture(filename string) (AssetId, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", fmt.Errorf("opening texture: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return "", fmt.Errorf("decoding texture %s: %w", filename, err)
	}

	rgba := toPowerOfTwoRGBA(img)
	b := rgba.Bounds()
	return server.CreateTexture(filepath.Base(filename), rgba.Pix, uint32(b.Dx()), uint32(b.Dy())), nil
}

func toPowerOfTwoRGBA(img image.Image) *image.RGBA {
	src := img.Bounds()
	w, h := ceilPow2(src.Dx()), ceilPow2(src.Dy())
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == src.Dx() && h == src.Dy() {
		draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
	}
	return dst
}

func ceilPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1 << bits.Len(uint(n-1))
	return min(p, MaxTextureSize)
}
