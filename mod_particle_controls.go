package gekko

import (
	rtapp "github.com/gekko3d/gekko-particles/particlert/rt/app"
	"github.com/gekko3d/gekko-particles/particlert/rt/gpu"
)

// ParticleControlsModule maps keys to emitter playback for interactive runs:
//
//	Space     emit BurstSize particles from every emitter
//	R         restart every emitter
//	P         toggle pause
//	1 2 3     billboard, stretched or mesh rendering
//	F1        toggle debug logging
//	F3        log profiler statistics
//	Escape    exit
type ParticleControlsModule struct {
	BurstSize int
}

type particleControls struct {
	burstSize int
	paused    bool
	logger    Logger
}

func (m ParticleControlsModule) Install(app *App, cmd *Commands) {
	burst := m.BurstSize
	if burst <= 0 {
		burst = 100
	}
	cmd.AddResources(&particleControls{burstSize: burst, logger: app.Logger()})
	app.UseSystem(
		System(particleControlsSystem).
			InStage(PreUpdate).
			RunAlways(),
	)
}

func particleControlsSystem(input *Input, controls *particleControls, ps *ParticleSystems, prof *rtapp.Profiler, cmd *Commands) {
	if input.JustPressed[KeyEscape] {
		cmd.Exit()
		return
	}
	if input.JustPressed[KeyF1] {
		controls.logger.SetDebug(!controls.logger.DebugEnabled())
	}
	if input.JustPressed[KeyF3] {
		controls.logger.Infof("%s", prof.StatsString())
	}
	if input.JustPressed[KeyP] {
		controls.paused = !controls.paused
	}

	mode, setMode := gpu.RenderBillboard, false
	switch {
	case input.JustPressed[Key1]:
		mode, setMode = gpu.RenderBillboard, true
	case input.JustPressed[Key2]:
		mode, setMode = gpu.RenderStretchedBillboard, true
	case input.JustPressed[Key3]:
		mode, setMode = gpu.RenderMesh, true
	}

	MakeQuery1[ParticleEmitterComponent](cmd).Map(func(eid EntityId, em *ParticleEmitterComponent) bool {
		if setMode {
			em.RenderMode = mode
		}
		if input.JustPressed[KeyP] {
			if controls.paused {
				em.Pause()
			} else {
				em.Play()
			}
		}
		if input.JustPressed[KeyR] {
			em.Restart()
		}
		if input.JustPressed[KeySpace] {
			if st := ps.Get(eid); st != nil && em.Enabled {
				st.System.Emit(controls.burstSize)
			}
		}
		return true
	})
}
