package gekko

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/gekko-particles/particlert/rt/gpu"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

// ClientModule opens a window and draws every emitter in ParticleDrawList
// with instanced wgpu draws. It replaces the particle sink factory so
// instance buffers live on the GPU.
type ClientModule struct {
	WindowWidth  int
	WindowHeight int
	WindowTitle  string

	ClearColor [4]float64
	// Stretch scales quad length by speed in stretched billboard mode.
	Stretch float32
	// BufferHeadroom is extra bytes allocated whenever an instance buffer grows.
	BufferHeadroom uint64
	// Filter and Wrap configure the sprite sampler: linear|nearest, clamp|wrap|mirror.
	Filter string
	Wrap   string
	// Camera is used when no entity carries a CameraComponent.
	Camera CameraComponent
}

type spriteTexture struct {
	version   uint
	view      *wgpu.TextureView
	bindGroup *wgpu.BindGroup
}

type emitterGpuState struct {
	uniform         *wgpu.Buffer
	cameraGroup     *wgpu.BindGroup
	vertexBuf       *wgpu.Buffer
	indexBuf        *wgpu.Buffer
	geometryVersion uint64
}

func (eg *emitterGpuState) releaseGeometry() {
	if eg.vertexBuf != nil {
		eg.vertexBuf.Release()
		eg.vertexBuf = nil
	}
	if eg.indexBuf != nil {
		eg.indexBuf.Release()
		eg.indexBuf = nil
	}
}

func (eg *emitterGpuState) release() {
	eg.releaseGeometry()
	eg.cameraGroup.Release()
	eg.uniform.Release()
}

type particleRenderState struct {
	layouts   *particleLayouts
	pipelines map[pipelineKey]*wgpu.RenderPipeline
	emitters  map[EntityId]*emitterGpuState
	textures  map[AssetId]*spriteTexture
	sampler   *wgpu.Sampler

	clear    wgpu.Color
	stretch  float32
	headroom uint64
	camera   CameraComponent
	logger   Logger
}

func (mod ClientModule) Install(app *App, cmd *Commands) {
	ensureSingleRenderer(app, string(RendererWGPU))
	ensureWindowResource(app, mod.WindowWidth, mod.WindowHeight, mod.WindowTitle)

	windowState := Resource[WindowState](app)
	gpuState := createGpuState(windowState)
	rState := createParticleRenderState(mod, gpuState, app.Logger())

	app.UseSystem(
		System(windowEventsSystem).
			InStage(PreUpdate).
			RunAlways(),
	)
	app.UseSystem(
		System(bindParticleSinksSystem).
			InStage(PreUpdate).
			RunOnce(),
	)
	app.UseSystem(
		System(particleRenderSystem).
			InStage(Render).
			RunAlways(),
	)
	cmd.AddResources(
		gpuState,
		rState,
	)
}

func createParticleRenderState(mod ClientModule, gpuState *GpuState, logger Logger) *particleRenderState {
	sampler, err := gpuState.device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:  wgpuWrapMode(mod.Wrap),
		AddressModeV:  wgpuWrapMode(mod.Wrap),
		AddressModeW:  wgpuWrapMode(mod.Wrap),
		MagFilter:     wgpuFilterMode(mod.Filter),
		MinFilter:     wgpuFilterMode(mod.Filter),
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0.,
		LodMaxClamp:   1.,
		Compare:       wgpu.CompareFunctionUndefined,
		MaxAnisotropy: 1,
	})
	if err != nil {
		panic(err)
	}

	camera := mod.Camera
	if camera.Fov == 0 {
		camera = NewCamera(mgl32.Vec3{0, 2, 8}, mgl32.Vec3{0, 1, 0}, 60, 0.1, 500)
	}
	return &particleRenderState{
		layouts:   createParticleLayouts(gpuState.device),
		pipelines: make(map[pipelineKey]*wgpu.RenderPipeline),
		emitters:  make(map[EntityId]*emitterGpuState),
		textures:  make(map[AssetId]*spriteTexture),
		sampler:   sampler,
		clear: wgpu.Color{
			R: mod.ClearColor[0],
			G: mod.ClearColor[1],
			B: mod.ClearColor[2],
			A: mod.ClearColor[3],
		},
		stretch:  mod.Stretch,
		headroom: mod.BufferHeadroom,
		camera:   camera,
		logger:   logger,
	}
}

func windowEventsSystem(ws *WindowState, gpuState *GpuState, cmd *Commands) {
	glfw.PollEvents()
	if ws.ShouldClose() {
		cmd.Exit()
		return
	}
	ws.WindowWidth, ws.WindowHeight = ws.windowGlfw.GetFramebufferSize()
	gpuState.resize(ws.WindowWidth, ws.WindowHeight)
}

// bindParticleSinksSystem makes emitters created from now on stream into
// GPU vertex buffers.
func bindParticleSinksSystem(ps *ParticleSystems, gpuState *GpuState, rs *particleRenderState) {
	ps.SinkFactory = func(label string) gpu.Sink {
		sink := gpu.NewWgpuSink(gpuState.device, label)
		sink.Headroom = rs.headroom
		return sink
	}
}

func (rs *particleRenderState) pipeline(key pipelineKey, g gpu.Geometry, gpuState *GpuState) *wgpu.RenderPipeline {
	if p, ok := rs.pipelines[key]; ok {
		return p
	}
	p := createParticlePipeline(key, g, rs.layouts, gpuState)
	rs.pipelines[key] = p
	rs.logger.Debugf("particle pipeline created: %+v", key)
	return p
}

func (rs *particleRenderState) sprite(id AssetId, assets *AssetServer, gpuState *GpuState) *spriteTexture {
	asset := assets.Texture(id)
	if tex, ok := rs.textures[id]; ok && tex.version == asset.Version {
		return tex
	}
	if old, ok := rs.textures[id]; ok {
		old.bindGroup.Release()
		old.view.Release()
	}
	view := createTextureFromAsset(asset, gpuState)
	tex := &spriteTexture{
		version:   asset.Version,
		view:      view,
		bindGroup: createSpriteBindGroup(view, rs.sampler, rs.layouts, gpuState.device),
	}
	rs.textures[id] = tex
	return tex
}

func (rs *particleRenderState) emitter(d *ParticleDraw, gpuState *GpuState) *emitterGpuState {
	eg, ok := rs.emitters[d.Entity]
	if !ok {
		uniform := createBuffer(d.Label+" camera", make([]byte, cameraUniformSize), gpuState,
			wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
		eg = &emitterGpuState{
			uniform:     uniform,
			cameraGroup: createCameraBindGroup(uniform, rs.layouts, gpuState.device),
		}
		rs.emitters[d.Entity] = eg
	}
	if eg.vertexBuf == nil || eg.geometryVersion != d.GeometryVersion {
		eg.releaseGeometry()
		eg.vertexBuf, eg.indexBuf = createGeometryBuffers(d.Geometry, gpuState.device)
		eg.geometryVersion = d.GeometryVersion
	}
	return eg
}

// releaseStale frees GPU state of emitters whose entity went away.
func (rs *particleRenderState) releaseStale(ps *ParticleSystems) {
	for eid, eg := range rs.emitters {
		if ps.Get(eid) == nil {
			eg.release()
			delete(rs.emitters, eid)
		}
	}
}

func activeCamera(cmd *Commands, fallback *CameraComponent) *CameraComponent {
	camera := fallback
	MakeQuery1[CameraComponent](cmd).Map(func(eid EntityId, c *CameraComponent) bool {
		camera = c
		// first camera wins
		return false
	})
	return camera
}

func particleRenderSystem(rs *particleRenderState, gpuState *GpuState, ps *ParticleSystems, list *ParticleDrawList, assets *AssetServer, cmd *Commands) {
	rs.releaseStale(ps)
	if gpuState.surfaceConfig.Width == 0 || gpuState.surfaceConfig.Height == 0 {
		return
	}

	nextTexture, err := gpuState.surface.GetCurrentTexture()
	if err != nil {
		rs.logger.Warnf("GetCurrentTexture failed: %v", err)
		gpuState.surface.Configure(gpuState.adapter, gpuState.device, gpuState.surfaceConfig)
		return
	}
	view, err := nextTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}
	defer view.Release()
	encoder, err := gpuState.device.CreateCommandEncoder(nil)
	if err != nil {
		panic(err)
	}
	defer encoder.Release()

	camera := activeCamera(cmd, &rs.camera)
	aspect := float32(gpuState.surfaceConfig.Width) / float32(gpuState.surfaceConfig.Height)

	renderPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: rs.clear,
			},
		},
	})
	defer renderPass.Release()

	for i := range list.Draws {
		d := &list.Draws[i]
		sink, ok := d.Sink.(*gpu.WgpuSink)
		if !ok || sink.Buffer == nil {
			continue
		}
		eg := rs.emitter(d, gpuState)
		tex := rs.sprite(d.Texture, assets, gpuState)
		pipeline := rs.pipeline(pipelineKeyOf(d.Layout, d.Geometry.Mode), d.Geometry, gpuState)

		uniform := makeCameraUniform(camera, aspect, d, rs.stretch)
		if err := gpuState.queue.WriteBuffer(eg.uniform, 0, wgpu.ToBytes([]cameraUniform{uniform})); err != nil {
			panic(err)
		}

		renderPass.SetPipeline(pipeline)
		renderPass.SetBindGroup(0, eg.cameraGroup, nil)
		renderPass.SetBindGroup(1, tex.bindGroup, nil)
		renderPass.SetVertexBuffer(0, eg.vertexBuf, 0, wgpu.WholeSize)
		renderPass.SetVertexBuffer(1, sink.Buffer, 0, wgpu.WholeSize)
		if eg.indexBuf != nil {
			renderPass.SetIndexBuffer(eg.indexBuf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		}
		for _, call := range drawCallsFor(d.Geometry, d.Ranges) {
			if call.indexed {
				renderPass.DrawIndexed(call.count, call.instanceCount, 0, 0, call.firstInstance)
			} else {
				renderPass.Draw(call.count, call.instanceCount, 0, call.firstInstance)
			}
		}
	}

	err = renderPass.End()
	if err != nil {
		panic(err)
	}

	cmdBuffer, err := encoder.Finish(nil)
	if err != nil {
		panic(err)
	}
	defer cmdBuffer.Release()

	gpuState.queue.Submit(cmdBuffer)
	gpuState.surface.Present()
}
