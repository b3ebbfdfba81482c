package gekko

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/gekko-particles/particlert/rt/core"
	"github.com/gekko3d/gekko-particles/particlert/rt/emit"
	"github.com/gekko3d/gekko-particles/particlert/rt/gpu"
)

func TestParseScene_Errors(t *testing.T) {
	cases := map[string]string{
		"shape":       "emitters:\n  - name: a\n    shape: { type: torus }\n",
		"stop action": "emitters:\n  - name: a\n    stop_action: explode\n",
		"render mode": "emitters:\n  - name: a\n    render_mode: voxels\n",
		"space":       "emitters:\n  - name: a\n    simulation_space: galactic\n",
		"yaml":        "emitters: [",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseScene([]byte(src))
			assert.Error(t, err)
		})
	}
}

func TestParseScene_Defaults(t *testing.T) {
	scene, err := ParseScene([]byte("emitters:\n  - name: plain\n"))
	require.NoError(t, err)
	require.Len(t, scene.Emitters, 1)

	em, err := scene.Emitters[0].component(nil, SceneDefaults{})
	require.NoError(t, err)
	assert.Equal(t, "plain", em.Label)
	assert.True(t, em.Enabled)
	assert.True(t, em.Loop)
	assert.True(t, em.PlayOnAwake)
	assert.Equal(t, float32(5), em.Duration)
	assert.Equal(t, emit.Constant(10), em.Rate)
	assert.Equal(t, StopNone, em.StopAction)
	assert.Equal(t, gpu.RenderBillboard, em.RenderMode)
	assert.Equal(t, core.SpaceWorld, em.Space)
	assert.IsType(t, emit.PointShape{}, em.Shape)
	assert.Nil(t, em.Attributes.Lifetime)
}

func TestParseScene_Evaluators(t *testing.T) {
	src := `
emitters:
  - name: e
    loop: false
    stop_action: destroy
    render_mode: mesh
    simulation_space: local
    rate: { curve: [[0, 0], [1, 100]], over_cycle: true }
    start_lifetime: { min: 1, max: 2 }
    start_speed: { constant: 3 }
    start_size: { curve: [[0, 1], [1, 2]], curve_max: [[0, 3], [1, 4]] }
    start_color:
      gradient:
        - { time: 1, color: [0, 0, 1, 1] }
        - { time: 0, color: [1, 0, 0, 1] }
    bursts:
      - { time: 0.5, count: 20, cycles: 2, interval: 0.1 }
`
	scene, err := ParseScene([]byte(src))
	require.NoError(t, err)
	em, err := scene.Emitters[0].component(nil, SceneDefaults{})
	require.NoError(t, err)

	assert.False(t, em.Loop)
	assert.Equal(t, StopDestroy, em.StopAction)
	assert.Equal(t, gpu.RenderMesh, em.RenderMode)
	assert.Equal(t, core.SpaceLocal, em.Space)
	assert.Equal(t, []emit.Burst{{Time: 0.5, Count: 20, Cycles: 2, Interval: 0.1}}, em.Bursts)

	rate, ok := em.Rate.(emit.Curve)
	require.True(t, ok)
	assert.Same(t, em.Clock, rate.Clock)
	em.Clock.T = 0.5
	assert.InDelta(t, 50, em.Rate.Evaluate(0.9), 1e-4)

	assert.Equal(t, emit.RandomRange{Min: 1, Max: 2}, em.Attributes.Lifetime)
	assert.Equal(t, emit.Constant(3), em.Attributes.Speed)
	assert.IsType(t, emit.RandomCurve{}, em.Attributes.SizeX)

	grad, ok := em.Attributes.Color.(emit.Gradient)
	require.True(t, ok)
	assert.Equal(t, float32(0), grad.Keys[0].Time, "keys are sorted by time")
	assert.Nil(t, grad.Clock)
}

func TestEmitterDef_Gravity(t *testing.T) {
	scene, err := ParseScene([]byte("emitters:\n  - name: a\n    gravity: { min: 1, max: 3 }\n"))
	require.NoError(t, err)
	em, err := scene.Emitters[0].component(nil, SceneDefaults{})
	require.NoError(t, err)
	assert.Equal(t, emit.RandomRange{Min: 1, Max: 3}, em.Attributes.Gravity)

	scene, err = ParseScene([]byte("emitters:\n  - name: a\n    gravity: { curve: [[0, 1], [1, 5]] }\n"))
	require.NoError(t, err)
	_, err = scene.Emitters[0].component(nil, SceneDefaults{})
	assert.ErrorContains(t, err, "gravity")
}

func TestSceneDefaults_Apply(t *testing.T) {
	scene, err := ParseScene([]byte("emitters:\n  - name: a\n  - name: b\n    render_mode: stretched\n"))
	require.NoError(t, err)

	defaults := SceneDefaults{RenderMode: gpu.RenderMesh, Space: core.SpaceLocal, Use3DSize: true}
	a, err := scene.Emitters[0].component(nil, defaults)
	require.NoError(t, err)
	b, err := scene.Emitters[1].component(nil, defaults)
	require.NoError(t, err)

	assert.Equal(t, gpu.RenderMesh, a.RenderMode)
	assert.Equal(t, core.SpaceLocal, a.Space)
	assert.True(t, a.Use3DSize)
	assert.Equal(t, gpu.RenderStretchedBillboard, b.RenderMode)
}

func TestLoadScene(t *testing.T) {
	src := `
carriers:
  - name: base
    position: [1, 0, 0]
    spin: { axis: [0, 1, 0], deg_per_sec: 30 }
emitters:
  - name: child
    parent: base
    position: [0, 2, 0]
    mesh: cube
  - name: loose
    position: [5, 0, 0]
    entity_lifetime: 3
`
	scene, err := ParseScene([]byte(src))
	require.NoError(t, err)

	app := NewApp()
	app.UseModules(AssetServerModule{})
	cmd := app.Commands()
	assets := Resource[AssetServer](app)

	named, err := LoadScene(cmd, assets, scene, SceneDefaults{})
	require.NoError(t, err)
	app.FlushCommands()
	require.Len(t, named, 3)

	_, spins := GetComponent[SpinComponent](cmd, named["base"])
	assert.True(t, spins)

	parent, ok := GetComponent[Parent](cmd, named["child"])
	require.True(t, ok)
	assert.Equal(t, named["base"], parent.Entity)
	local, ok := GetComponent[LocalTransformComponent](cmd, named["child"])
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{0, 2, 0}, local.Position)

	em, ok := GetComponent[ParticleEmitterComponent](cmd, named["child"])
	require.True(t, ok)
	mesh := assets.Mesh(em.Mesh)
	require.NotNil(t, mesh)
	assert.Len(t, mesh.Indices, 36)

	_, hasParent := GetComponent[Parent](cmd, named["loose"])
	assert.False(t, hasParent)
	lt, ok := GetComponent[LifetimeComponent](cmd, named["loose"])
	require.True(t, ok)
	assert.Equal(t, float32(3), lt.TimeLeft)
}

func TestLoadScene_Errors(t *testing.T) {
	app := NewApp()
	app.UseModules(AssetServerModule{})
	assets := Resource[AssetServer](app)

	scene, err := ParseScene([]byte("emitters:\n  - name: a\n    parent: nowhere\n"))
	require.NoError(t, err)
	_, err = LoadScene(app.Commands(), assets, scene, SceneDefaults{})
	assert.ErrorContains(t, err, `unknown parent "nowhere"`)

	scene, err = ParseScene([]byte("emitters:\n  - name: a\n    mesh: teapot\n"))
	require.NoError(t, err)
	_, err = LoadScene(app.Commands(), assets, scene, SceneDefaults{})
	assert.ErrorContains(t, err, `unknown mesh "teapot"`)

	scene, err = ParseScene([]byte("emitters:\n  - name: a\n    texture: /does/not/exist.png\n"))
	require.NoError(t, err)
	_, err = LoadScene(app.Commands(), assets, scene, SceneDefaults{})
	assert.Error(t, err)
}

func TestLoadSceneFile_Showcase(t *testing.T) {
	scene, err := LoadSceneFile("cmd/particles-demo/scenes/showcase.yaml")
	require.NoError(t, err)
	assert.NotEmpty(t, scene.Carriers)
	assert.GreaterOrEqual(t, len(scene.Emitters), 4)

	_, err = LoadSceneFile("missing.yaml")
	assert.ErrorContains(t, err, "reading scene file")
}

func TestShowcaseRunsHeadless(t *testing.T) {
	scene, err := LoadSceneFile("cmd/particles-demo/scenes/showcase.yaml")
	require.NoError(t, err)

	app := newParticleApp(t)
	_, err = LoadScene(app.Commands(), Resource[AssetServer](app), scene, SceneDefaults{})
	require.NoError(t, err)
	app.FlushCommands()

	app.RunFrames(12)

	list := Resource[ParticleDrawList](app)
	assert.NotEmpty(t, list.Draws)
	assert.Positive(t, list.Instances)
	for _, d := range list.Draws {
		assert.NotEmpty(t, d.Ranges, d.Label)
	}
}
