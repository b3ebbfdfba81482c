package gekko

import (
	"fmt"

	rtapp "github.com/gekko3d/gekko-particles/particlert/rt/app"
	"github.com/gekko3d/gekko-particles/particlert/rt/core"
	"github.com/gekko3d/gekko-particles/particlert/rt/emit"
	"github.com/gekko3d/gekko-particles/particlert/rt/gpu"
	"github.com/gekko3d/gekko-particles/particlert/rt/sim"
	"github.com/google/uuid"
)

// StopAction decides what happens to an emitter entity once a non-looping
// emitter finished and its last particle is gone.
type StopAction int

const (
	StopNone StopAction = iota
	StopDisable
	StopDestroy
)

type playbackRequest int

const (
	playbackNone playbackRequest = iota
	playbackPlay
	playbackPause
	playbackStop
	playbackRestart
)

// ParticleEmitterComponent drives one ring-buffer particle system. The
// entity also needs a TransformComponent.
type ParticleEmitterComponent struct {
	Enabled bool
	Label   string

	// Zero values fall back to ParticlesModule.Config.
	InitialCapacity int
	ChunkSize       int
	MaxParticles    int

	Duration    float32
	Loop        bool
	PlayOnAwake bool
	StartDelay  float32
	StopAction  StopAction

	Rate   sim.ScalarEvaluator
	Bursts []emit.Burst
	Shape  sim.SpawnSource
	// Attributes are sampled once per particle at spawn time.
	Attributes sim.Attributes
	// Clock, when set, is shared with curve evaluators in Attributes.
	Clock *emit.Clock

	Use3DSize     bool
	Use3DRotation bool
	Space         core.SimulationSpace

	RenderMode gpu.RenderMode
	Mesh       AssetId
	Texture    AssetId

	request playbackRequest
	drained bool
}

func (em *ParticleEmitterComponent) Play()    { em.request = playbackPlay }
func (em *ParticleEmitterComponent) Pause()   { em.request = playbackPause }
func (em *ParticleEmitterComponent) Stop()    { em.request = playbackStop }
func (em *ParticleEmitterComponent) Restart() { em.request = playbackRestart }

// Drained reports that the emitter finished and has no live particles.
func (em *ParticleEmitterComponent) Drained() bool { return em.drained }

func (em *ParticleEmitterComponent) layout() core.Layout {
	return core.NewLayout(em.Use3DSize, em.Use3DRotation, em.Space)
}

// SinkFactory makes the GPU side of a new emitter's instance buffer.
type SinkFactory func(label string) gpu.Sink

func MemorySinkFactory(string) gpu.Sink { return gpu.NewMemorySink() }

// ParticleEmitterState is the runtime side of one emitter entity.
type ParticleEmitterState struct {
	Label   string
	System  *sim.System
	Packer  *gpu.InstancePacker
	Policy  *emit.RatePolicy
	Sink    gpu.Sink
	Texture AssetId

	seen        uint64
	lastDropped int
	lastBytes   uint64
	ranges      []gpu.DrawRange
}

// ParticleSystems maps emitter entities to their simulation state.
type ParticleSystems struct {
	Config      sim.Config
	SinkFactory SinkFactory

	logger  Logger
	states  map[EntityId]*ParticleEmitterState
	order   []EntityId
	pass    uint64
	failed  map[EntityId]uint64
	created int
	removed int
}

func newParticleSystems(cfg sim.Config, factory SinkFactory, logger Logger) *ParticleSystems {
	if factory == nil {
		factory = MemorySinkFactory
	}
	return &ParticleSystems{
		Config:      cfg,
		SinkFactory: factory,
		logger:      logger,
		states:      make(map[EntityId]*ParticleEmitterState),
		failed:      make(map[EntityId]uint64),
	}
}

// Get returns the state of an emitter entity, or nil before its first update.
func (ps *ParticleSystems) Get(eid EntityId) *ParticleEmitterState {
	return ps.states[eid]
}

func (ps *ParticleSystems) Len() int { return len(ps.states) }

func (ps *ParticleSystems) emitterConfig(em *ParticleEmitterComponent) sim.Config {
	cfg := ps.Config
	if em.InitialCapacity > 0 {
		cfg.InitialCapacity = em.InitialCapacity
	}
	if em.ChunkSize > 0 {
		cfg.ChunkSize = em.ChunkSize
	}
	if em.MaxParticles > 0 {
		cfg.MaxCapacity = em.MaxParticles
	}
	cfg.InitialCapacity = min(cfg.InitialCapacity, cfg.MaxCapacity)
	cfg.Layout = em.layout()
	return cfg
}

func (ps *ParticleSystems) ensure(eid EntityId, em *ParticleEmitterComponent, assets *AssetServer) *ParticleEmitterState {
	if st, ok := ps.states[eid]; ok {
		return st
	}
	if _, ok := ps.failed[eid]; ok {
		ps.failed[eid] = ps.pass
		return nil
	}

	label := em.Label
	if label == "" {
		label = "emitter-" + uuid.NewString()[:8]
	}
	cfg := ps.emitterConfig(em)
	cfg.Seed ^= uint64(eid) * 0x9e3779b97f4a7c15

	policy := emit.NewRatePolicy(em.Rate, em.Duration, em.Loop)
	policy.Bursts = em.Bursts
	policy.StartDelay = em.StartDelay
	if em.Clock != nil {
		policy.Clock = em.Clock
	}
	if !em.PlayOnAwake {
		policy.Pause()
	}

	sink := ps.SinkFactory(label)
	packer := gpu.NewInstancePacker(sink, cfg.Layout)
	packer.SetRenderMode(em.RenderMode, assets.Mesh(em.Mesh))

	system, err := sim.NewSystem(cfg, em.Attributes, em.Shape, policy, packer,
		sim.WithLogger(ps.logger),
		sim.WithLabel(label),
	)
	if err != nil {
		ps.logger.Errorf("emitter %v (%s) disabled: %v", eid, label, err)
		ps.failed[eid] = ps.pass
		return nil
	}

	st := &ParticleEmitterState{
		Label:   label,
		System:  system,
		Packer:  packer,
		Policy:  policy,
		Sink:    sink,
		Texture: em.Texture,
	}
	ps.states[eid] = st
	ps.order = append(ps.order, eid)
	ps.created++
	ps.logger.Debugf("emitter %v (%s) created: %s", eid, label, system)
	return st
}

// releaseStale drops states whose entity was not seen in the current pass.
func (ps *ParticleSystems) releaseStale() {
	kept := ps.order[:0]
	for _, eid := range ps.order {
		st := ps.states[eid]
		if st.seen == ps.pass {
			kept = append(kept, eid)
			continue
		}
		if r, ok := st.Sink.(interface{ Release() }); ok {
			r.Release()
		}
		delete(ps.states, eid)
		ps.removed++
		ps.logger.Debugf("emitter %v (%s) released", eid, st.Label)
	}
	ps.order = kept
	for eid, pass := range ps.failed {
		if pass != ps.pass {
			delete(ps.failed, eid)
		}
	}
}

func applyPlayback(em *ParticleEmitterComponent, st *ParticleEmitterState) {
	switch em.request {
	case playbackPlay:
		st.Policy.Play()
	case playbackPause:
		st.Policy.Pause()
	case playbackStop:
		st.Policy.Stop()
	case playbackRestart:
		st.System.Clear()
		st.Policy.Stop()
		st.Policy.Play()
	}
	em.request = playbackNone
}

// ParticleDraw is everything a renderer needs to draw one emitter.
type ParticleDraw struct {
	Entity          EntityId
	Label           string
	Sink            gpu.Sink
	Geometry        gpu.Geometry
	GeometryVersion uint64
	Layout          core.Layout
	Ranges          []gpu.DrawRange
	Instances       int
	PlayTime        float32
	GravityMin      float32
	GravityMax      float32
	Texture         AssetId
}

// ParticleDrawList is rebuilt every frame in PreRender.
type ParticleDrawList struct {
	Draws     []ParticleDraw
	Instances int
}

type ParticlesModule struct {
	Config      sim.Config
	SinkFactory SinkFactory
	// ProfilerWindow is the number of frames kept for trend statistics.
	ProfilerWindow int
}

func (m ParticlesModule) Install(app *App, cmd *Commands) {
	cfg := m.Config
	if cfg.ChunkSize == 0 && cfg.MaxCapacity == 0 {
		cfg = sim.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("particles module: %v", err))
	}

	if Resource[AssetServer](app) == nil {
		app.UseModules(AssetServerModule{})
	}
	if Resource[rtapp.Profiler](app) == nil {
		prof := rtapp.NewProfiler()
		if m.ProfilerWindow > 0 {
			prof.Window = m.ProfilerWindow
		}
		cmd.AddResources(prof)
	}
	cmd.AddResources(
		newParticleSystems(cfg, m.SinkFactory, app.Logger()),
		&ParticleDrawList{},
	)

	app.UseSystem(
		System(particlesUpdateSystem).
			InStage(Update).
			RunAlways(),
	)
	app.UseSystem(
		System(particlesCollectSystem).
			InStage(PreRender).
			RunAlways(),
	)
}

func particlesUpdateSystem(t *Time, ps *ParticleSystems, assets *AssetServer, prof *rtapp.Profiler, cmd *Commands) {
	prof.BeginScope("particles.update")
	defer prof.EndScope("particles.update")

	dt := t.DtSeconds()
	ps.pass++
	alive, dropped, uploadBytes := 0, 0, uint64(0)

	MakeQuery2[TransformComponent, ParticleEmitterComponent](cmd).Map(func(eid EntityId, tr *TransformComponent, em *ParticleEmitterComponent) bool {
		st := ps.ensure(eid, em, assets)
		if st == nil {
			return true
		}
		st.seen = ps.pass
		applyPlayback(em, st)

		if !em.Enabled {
			return true
		}
		st.System.SetLayout(em.layout())
		st.Packer.SetRenderMode(em.RenderMode, assets.Mesh(em.Mesh))
		st.Texture = em.Texture
		st.System.SetTransform(tr.Position, tr.Rotation)
		st.System.Update(dt)

		stats := st.System.Stats()
		em.drained = st.Policy.Finished() && stats.Alive == 0

		up := st.Packer.Stats()
		alive += stats.Alive
		dropped += stats.Dropped - st.lastDropped
		uploadBytes += up.Bytes - st.lastBytes
		st.lastDropped = stats.Dropped
		st.lastBytes = up.Bytes
		return true
	})
	ps.releaseStale()

	prof.Sample("particles.alive", alive)
	prof.Sample("particles.upload_bytes", int(uploadBytes))
	prof.SetCount("particles.emitters", ps.Len())
	prof.AddCount("particles.dropped", dropped)
}

func particlesCollectSystem(ps *ParticleSystems, list *ParticleDrawList) {
	list.Draws = list.Draws[:0]
	list.Instances = 0
	for _, eid := range ps.order {
		st := ps.states[eid]
		store := st.System.Store()
		st.ranges = st.Packer.AppendDrawRanges(st.ranges[:0], store)
		if len(st.ranges) == 0 {
			continue
		}
		n := store.Alive()
		gravityMin, gravityMax := st.System.GravityRange()
		list.Draws = append(list.Draws, ParticleDraw{
			Entity:          eid,
			Label:           st.Label,
			Sink:            st.Sink,
			Geometry:        st.Packer.Geometry(),
			GeometryVersion: st.Packer.GeometryVersion(),
			Layout:          st.Packer.Layout(),
			Ranges:          st.ranges,
			Instances:       n,
			PlayTime:        st.System.PlayTime(),
			GravityMin:      gravityMin,
			GravityMax:      gravityMax,
			Texture:         st.Texture,
		})
		list.Instances += n
	}
}
