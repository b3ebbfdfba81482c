package gekko

import (
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/gekko3d/gekko-particles/particlert/rt/core"
	"github.com/gekko3d/gekko-particles/particlert/rt/gpu"
	"github.com/gekko3d/gekko-particles/particlert/rt/shaders"
	"github.com/go-gl/glfw/v3.3/glfw"
)

type WindowState struct {
	// glfw
	windowGlfw   *glfw.Window
	WindowWidth  int
	WindowHeight int
	windowTitle  string
}

// ShouldClose reports whether the user asked to close the window.
func (s *WindowState) ShouldClose() bool {
	return s.windowGlfw != nil && s.windowGlfw.ShouldClose()
}

type GpuState struct {
	surface       *wgpu.Surface
	adapter       *wgpu.Adapter
	device        *wgpu.Device
	queue         *wgpu.Queue
	surfaceConfig *wgpu.SurfaceConfiguration
}

func createWindowState(windowWidth int, windowHeight int, windowTitle string) *WindowState {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		panic(err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Important: tell GLFW we don't want OpenGL
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(windowWidth, windowHeight, windowTitle, nil, nil)
	if err != nil {
		panic(err)
	}

	return &WindowState{
		windowGlfw:   win,
		WindowWidth:  windowWidth,
		WindowHeight: windowHeight,
		windowTitle:  windowTitle,
	}
}

func createGpuState(s *WindowState) *GpuState {
	instance := wgpu.CreateInstance(nil)
	defer instance.Release()
	// wraps GLFW window into a wgpu surface.
	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(s.windowGlfw))
	// finds a suitable GPU (discrete GPU preferred)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		panic(err)
	}
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Particles Device",
	})
	if err != nil {
		panic(err)
	}
	queue := device.GetQueue()

	width, height := s.windowGlfw.GetFramebufferSize()
	caps := surface.GetCapabilities(adapter)
	surfaceConfig := wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo, // vsync
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, device, &surfaceConfig)

	return &GpuState{
		surface:       surface,
		adapter:       adapter,
		device:        device,
		queue:         queue,
		surfaceConfig: &surfaceConfig,
	}
}

// resize reconfigures the swapchain. Zero sizes (minimized window) are ignored.
func (gs *GpuState) resize(width, height int) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	if gs.surfaceConfig.Width == uint32(width) && gs.surfaceConfig.Height == uint32(height) {
		return false
	}
	gs.surfaceConfig.Width = uint32(width)
	gs.surfaceConfig.Height = uint32(height)
	gs.surface.Configure(gs.adapter, gs.device, gs.surfaceConfig)
	return true
}

// cameraUniform mirrors the Camera struct in particles.wgsl.
type cameraUniform struct {
	ViewProj [16]float32
	Right    [4]float32
	Up       [4]float32
	// play time, stretch factor, render mode
	Params [4]float32
	// gravity min, max
	Gravity [4]float32
}

const cameraUniformSize = 128

// pipelineKey selects one specialization of the particle shader.
type pipelineKey struct {
	use3DSize     bool
	use3DRotation bool
	local         bool
	mesh          bool
}

func pipelineKeyOf(l core.Layout, mode gpu.RenderMode) pipelineKey {
	return pipelineKey{
		use3DSize:     l.Use3DSize,
		use3DRotation: l.Use3DRotation,
		local:         l.HasWorldTransform(),
		mesh:          mode == gpu.RenderMesh,
	}
}

// particleLayouts are shared by every particle pipeline so bind groups can
// be reused across specializations.
type particleLayouts struct {
	camera   *wgpu.BindGroupLayout
	sprite   *wgpu.BindGroupLayout
	pipeline *wgpu.PipelineLayout
}

func createParticleLayouts(device *wgpu.Device) *particleLayouts {
	camera, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "ParticleCameraBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: cameraUniformSize,
				},
			},
		},
	})
	if err != nil {
		panic(err)
	}
	sprite, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "ParticleSpriteBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	})
	if err != nil {
		panic(err)
	}
	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "ParticlePipelineLayout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{camera, sprite},
	})
	if err != nil {
		panic(err)
	}
	return &particleLayouts{camera: camera, sprite: sprite, pipeline: pipelineLayout}
}

func createParticlePipeline(key pipelineKey, geometry gpu.Geometry, layouts *particleLayouts, gpuState *GpuState) *wgpu.RenderPipeline {
	shader, err := gpuState.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "ParticleShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.Particles(key.use3DSize, key.use3DRotation, key.local)},
	})
	if err != nil {
		panic(err)
	}
	defer shader.Release()

	entryPoint, cullMode := "vs_billboard", wgpu.CullModeNone
	if key.mesh {
		entryPoint, cullMode = "vs_mesh", wgpu.CullModeBack
	}

	pipeline, err := gpuState.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "ParticlePipeline",
		Layout: layouts.pipeline,
		Vertex: wgpu.VertexState{
			Module:     shader,
			EntryPoint: entryPoint,
			Buffers:    geometry.Buffers(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    gpuState.surfaceConfig.Format,
					WriteMask: wgpu.ColorWriteMaskAll,
					Blend: &wgpu.BlendState{
						Color: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorSrcAlpha,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						},
						Alpha: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorOne,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						},
					},
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  cullMode,
		},
		DepthStencil: nil,
		Multisample: wgpu.MultisampleState{
			Count:                  1,
			Mask:                   0xFFFFFFFF,
			AlphaToCoverageEnabled: false,
		},
	})
	if err != nil {
		panic(err)
	}
	return pipeline
}

// createGeometryBuffers uploads the quad or mesh vertices of a geometry.
// indexBuf is nil for quads.
func createGeometryBuffers(g gpu.Geometry, device *wgpu.Device) (vertexBuf *wgpu.Buffer, indexBuf *wgpu.Buffer) {
	var contents []byte
	if g.Mesh != nil {
		contents = wgpu.ToBytes(g.Mesh.Vertices)
	} else {
		contents = wgpu.ToBytes(g.QuadData)
	}
	vertexBuf, err := device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Particle Vertex Buffer",
		Contents: contents,
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		panic(err)
	}
	if g.Mesh == nil || len(g.Mesh.Indices) == 0 {
		return vertexBuf, nil
	}
	indexBuf, err = device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Particle Index Buffer",
		Contents: wgpu.ToBytes(g.Mesh.Indices),
		Usage:    wgpu.BufferUsageIndex,
	})
	if err != nil {
		panic(err)
	}
	return vertexBuf, indexBuf
}

func createTextureFromAsset(txAsset *TextureAsset, gpuState *GpuState) *wgpu.TextureView {
	textureExtent := wgpu.Extent3D{
		Width:              txAsset.Width,
		Height:             txAsset.Height,
		DepthOrArrayLayers: 1,
	}
	texture, err := gpuState.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         txAsset.Name,
		Size:          textureExtent,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}
	defer texture.Release()

	textureView, err := texture.CreateView(nil)
	if err != nil {
		panic(err)
	}

	err = gpuState.queue.WriteTexture(
		texture.AsImageCopy(),
		txAsset.Texels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  txAsset.Width * uint32(wgpuBytesPerPixel(wgpu.TextureFormatRGBA8Unorm)),
			RowsPerImage: txAsset.Height,
		},
		&textureExtent,
	)
	if err != nil {
		panic(err)
	}
	return textureView
}

func createBuffer(name string, contents []byte, gpuState *GpuState, usage wgpu.BufferUsage) *wgpu.Buffer {
	buffer, err := gpuState.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    name,
		Contents: contents,
		Usage:    usage,
	})
	if err != nil {
		panic(err)
	}
	return buffer
}

func createCameraBindGroup(uniform *wgpu.Buffer, layouts *particleLayouts, device *wgpu.Device) *wgpu.BindGroup {
	bindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "ParticleCameraBG",
		Layout: layouts.camera,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: uniform, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		panic(err)
	}
	return bindGroup
}

func createSpriteBindGroup(view *wgpu.TextureView, sampler *wgpu.Sampler, layouts *particleLayouts, device *wgpu.Device) *wgpu.BindGroup {
	bindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "ParticleSpriteBG",
		Layout: layouts.sprite,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: view, Size: wgpu.WholeSize},
			{Binding: 1, Sampler: sampler, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		panic(err)
	}
	return bindGroup
}
