package gekko

import (
	"time"
)

type Time struct {
	Time       time.Time
	Dt         time.Duration
	FrameCount uint64
	// Step, when set, replaces the wall clock delta. Headless runs and tests
	// use it to get reproducible frames.
	Step time.Duration
}

// DtSeconds is the last frame delta in seconds.
func (t *Time) DtSeconds() float32 {
	return float32(t.Dt.Seconds())
}

type TimeModule struct {
	Step time.Duration
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Time{
		Time: time.Now(),
		Step: mod.Step,
	})
	app.UseSystem(
		System(timeSystem).
			InStage(Prelude).
			RunAlways(),
	)
}

func timeSystem(t *Time) {
	if t.Step > 0 {
		t.Dt = t.Step
		t.Time = t.Time.Add(t.Step)
	} else {
		now := time.Now()
		t.Dt = now.Sub(t.Time)
		t.Time = now
	}
	t.FrameCount++
}
