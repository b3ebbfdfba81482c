package gekko

// LifetimeComponent removes its entity after TimeLeft seconds.
type LifetimeComponent struct {
	TimeLeft float32
}

// LifecycleModule expires LifetimeComponents and applies emitter stop actions.
type LifecycleModule struct{}

func (mod LifecycleModule) Install(app *App, cmd *Commands) {
	app.UseSystem(
		System(lifetimeSystem).
			InStage(PostUpdate).
			RunAlways(),
	)
	app.UseSystem(
		System(emitterStopActionSystem).
			InStage(PostUpdate).
			RunAlways(),
	)
}

func lifetimeSystem(t *Time, cmd *Commands) {
	dt := t.DtSeconds()
	if dt <= 0 {
		return
	}
	MakeQuery1[LifetimeComponent](cmd).Map(func(eid EntityId, lt *LifetimeComponent) bool {
		lt.TimeLeft -= dt
		if lt.TimeLeft <= 0 {
			cmd.RemoveEntity(eid)
		}
		return true
	})
}

func emitterStopActionSystem(cmd *Commands) {
	MakeQuery1[ParticleEmitterComponent](cmd).Map(func(eid EntityId, em *ParticleEmitterComponent) bool {
		if !em.drained || !em.Enabled {
			return true
		}
		switch em.StopAction {
		case StopDestroy:
			cmd.RemoveEntity(eid)
		case StopDisable:
			em.Enabled = false
		}
		return true
	})
}
