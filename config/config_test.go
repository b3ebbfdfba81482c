package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/gekko-particles/particlert/rt/core"
	"github.com/gekko3d/gekko-particles/particlert/rt/gpu"
	"github.com/gekko3d/gekko-particles/particlert/rt/sim"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 256, cfg.Particles.ChunkSize)
	assert.Equal(t, 16384, cfg.Particles.MaxCapacity)
	assert.Equal(t, 1, cfg.Particles.FramesInFlight)
	assert.Equal(t, gpu.RenderBillboard, cfg.Derived.RenderMode)
	assert.Equal(t, core.SpaceWorld, cfg.Derived.Space)
	assert.InDelta(t, 1.0/60, cfg.Derived.FrameStep, 1e-6)
	assert.NoError(t, cfg.Sim().Validate())
}

func TestLoadOverridesOnlyGivenKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
particles:
  max_capacity: 64
render:
  mode: mesh
  simulation_space: local
  use_3d_size: true
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.Particles.MaxCapacity)
	assert.Equal(t, 256, cfg.Particles.ChunkSize)
	assert.Equal(t, gpu.RenderMesh, cfg.Derived.RenderMode)
	assert.True(t, cfg.Derived.Layout.HasWorldTransform())
	assert.Equal(t, 3, cfg.Derived.Layout.SizeComponents())
	assert.Equal(t, cfg.Derived.Layout, cfg.Sim().Layout)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"render mode":  "render:\n  mode: voxels\n",
		"space":        "render:\n  simulation_space: screen\n",
		"max capacity": "particles:\n  max_capacity: 1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}

	path := filepath.Join(t.TempDir(), "cap.yaml")
	require.NoError(t, os.WriteFile(path, []byte("particles:\n  chunk_size: 0\n"), 0644))
	_, err := Load(path)
	assert.ErrorIs(t, err, sim.ErrInvalidConfig)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := MustLoad("")
	cfg.Window.Title = "round trip"
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "round trip", back.Window.Title)
	assert.Equal(t, cfg.Derived, back.Derived)
}
