package gekko

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/gekko-particles/particlert/rt/gpu"
)

func TestInput_SetKey(t *testing.T) {
	input := &Input{}

	input.setKey(KeySpace, true)
	assert.True(t, input.Pressed[KeySpace])
	assert.True(t, input.JustPressed[KeySpace])
	assert.False(t, input.JustReleased[KeySpace])

	input.setKey(KeySpace, true)
	assert.True(t, input.Pressed[KeySpace])
	assert.False(t, input.JustPressed[KeySpace], "held keys are not just pressed")

	input.setKey(KeySpace, false)
	assert.False(t, input.Pressed[KeySpace])
	assert.True(t, input.JustReleased[KeySpace])

	input.setKey(KeySpace, false)
	assert.False(t, input.JustReleased[KeySpace])
}

// controlsApp wires the controls without a window; tests press keys by hand.
func controlsApp(t *testing.T, logger Logger) (*App, *Input, EntityId) {
	t.Helper()
	app := NewApp()
	if logger != nil {
		app.addResources(logger)
	}
	input := &Input{}
	app.addResources(input)
	app.UseModules(
		TimeModule{Step: testStep},
		LifecycleModule{},
		ParticlesModule{},
		ParticleControlsModule{BurstSize: 50},
	)
	eid := app.Commands().AddEntity(NewTransform(mgl32.Vec3{}), testEmitter(8, 10))
	app.FlushCommands()
	app.Step()
	return app, input, eid
}

func press(app *App, input *Input, key Key) {
	input.setKey(key, true)
	app.Step()
	input.setKey(key, false)
}

func TestParticleControls_Burst(t *testing.T) {
	app, input, eid := controlsApp(t, nil)
	st := Resource[ParticleSystems](app).Get(eid)
	require.Equal(t, 2, st.System.Stats().Alive)

	press(app, input, KeySpace)
	assert.Equal(t, 2+50+2, st.System.Stats().Alive)
}

func TestParticleControls_PauseToggle(t *testing.T) {
	app, input, eid := controlsApp(t, nil)
	st := Resource[ParticleSystems](app).Get(eid)

	press(app, input, KeyP)
	assert.False(t, st.Policy.Playing())
	alive := st.System.Stats().Alive
	app.Step()
	assert.Equal(t, alive, st.System.Stats().Alive)

	press(app, input, KeyP)
	assert.True(t, st.Policy.Playing())
	assert.Greater(t, st.System.Stats().Alive, alive)
}

func TestParticleControls_RenderModeAndRestart(t *testing.T) {
	app, input, eid := controlsApp(t, nil)

	press(app, input, Key2)
	em := emitterOf(t, app, eid)
	assert.Equal(t, gpu.RenderStretchedBillboard, em.RenderMode)

	press(app, input, Key3)
	assert.Equal(t, gpu.RenderMesh, emitterOf(t, app, eid).RenderMode)

	app.RunFrames(4)
	press(app, input, KeyR)
	st := Resource[ParticleSystems](app).Get(eid)
	assert.Equal(t, 2, st.System.Stats().Alive)
}

func TestParticleControls_DebugAndExit(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := NewWriterLogger("test", false, &out, &errOut)
	app, input, _ := controlsApp(t, logger)

	press(app, input, KeyF1)
	assert.True(t, logger.DebugEnabled())

	press(app, input, KeyF3)
	assert.Contains(t, out.String(), "particles.alive")

	press(app, input, KeyEscape)
	assert.True(t, app.Exiting())
}

func TestRendererGuard(t *testing.T) {
	app := NewApp()
	app.UseHeadless()
	assert.Equal(t, "headless", Resource[RendererTag](app).Name)
	assert.NotPanics(t, func() { ensureSingleRenderer(app, string(RendererHeadless)) })
	assert.PanicsWithValue(t, "Multiple renderers installed: headless and wgpu", func() {
		app.UseRenderer(RendererWGPU, HeadlessModule{})
	})
}
