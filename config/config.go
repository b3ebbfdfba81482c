// Package config loads engine and particle settings from YAML.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gekko3d/gekko-particles/particlert/rt/core"
	"github.com/gekko3d/gekko-particles/particlert/rt/gpu"
	"github.com/gekko3d/gekko-particles/particlert/rt/sim"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Particles ParticlesConfig `yaml:"particles"`
	Render    RenderConfig    `yaml:"render"`
	Window    WindowConfig    `yaml:"window"`
	Camera    CameraConfig    `yaml:"camera"`
	Logging   LoggingConfig   `yaml:"logging"`
	Profiler  ProfilerConfig  `yaml:"profiler"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

type ParticlesConfig struct {
	InitialCapacity int     `yaml:"initial_capacity"`
	ChunkSize       int     `yaml:"chunk_size"`
	MaxCapacity     int     `yaml:"max_capacity"`
	FramesInFlight  int     `yaml:"frames_in_flight"`
	Epsilon         float32 `yaml:"epsilon"`
	Seed            uint64  `yaml:"seed"`
}

type RenderConfig struct {
	Mode            string     `yaml:"mode"`
	Use3DSize       bool       `yaml:"use_3d_size"`
	Use3DRotation   bool       `yaml:"use_3d_rotation"`
	SimulationSpace string     `yaml:"simulation_space"`
	Texture         string     `yaml:"texture"`
	Stretch         float32    `yaml:"stretch"`
	ClearColor      [4]float64 `yaml:"clear_color"`
	BufferHeadroom  uint64     `yaml:"buffer_headroom"`
}

type WindowConfig struct {
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Title     string `yaml:"title"`
	TargetFPS int    `yaml:"target_fps"`
}

type CameraConfig struct {
	Position [3]float32 `yaml:"position"`
	LookAt   [3]float32 `yaml:"look_at"`
	Fov      float32    `yaml:"fov"`
	Near     float32    `yaml:"near"`
	Far      float32    `yaml:"far"`
}

type LoggingConfig struct {
	Prefix string `yaml:"prefix"`
	Debug  bool   `yaml:"debug"`
}

type ProfilerConfig struct {
	Window      int `yaml:"window"`
	ReportEvery int `yaml:"report_every"`
}

// DerivedConfig holds parsed enums and the record layout.
type DerivedConfig struct {
	RenderMode gpu.RenderMode
	Space      core.SimulationSpace
	Layout     core.Layout
	FrameStep  float32
}

// Load reads a YAML file over the embedded defaults. An empty path uses
// the defaults only.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// only overwrites fields present in the file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad is like Load but panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(fmt.Sprintf("config: failed to load: %v", err))
	}
	return cfg
}

func (c *Config) computeDerived() error {
	mode, err := gpu.ParseRenderMode(c.Render.Mode)
	if err != nil {
		return fmt.Errorf("render.mode: %w", err)
	}
	space, err := core.ParseSimulationSpace(c.Render.SimulationSpace)
	if err != nil {
		return fmt.Errorf("render.simulation_space: %w", err)
	}
	c.Derived.RenderMode = mode
	c.Derived.Space = space
	c.Derived.Layout = core.NewLayout(c.Render.Use3DSize, c.Render.Use3DRotation, space)

	if c.Window.TargetFPS <= 0 {
		c.Window.TargetFPS = 60
	}
	c.Derived.FrameStep = 1 / float32(c.Window.TargetFPS)

	if err := c.Sim().Validate(); err != nil {
		return fmt.Errorf("particles: %w", err)
	}
	return nil
}

// Sim is the particle system configuration these settings describe.
func (c *Config) Sim() sim.Config {
	return sim.Config{
		InitialCapacity: c.Particles.InitialCapacity,
		ChunkSize:       c.Particles.ChunkSize,
		MaxCapacity:     c.Particles.MaxCapacity,
		FramesInFlight:  c.Particles.FramesInFlight,
		Epsilon:         c.Particles.Epsilon,
		Layout:          c.Derived.Layout,
		Seed:            c.Particles.Seed,
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
