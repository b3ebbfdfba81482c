package gekko

import (
	"cmp"
	"fmt"
	"os"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/gekko3d/gekko-particles/particlert/rt/core"
	"github.com/gekko3d/gekko-particles/particlert/rt/emit"
	"github.com/gekko3d/gekko-particles/particlert/rt/gpu"
	"github.com/gekko3d/gekko-particles/particlert/rt/sim"
)

// SceneDef is the initial set of carriers and emitters.
type SceneDef struct {
	Carriers []CarrierDef `yaml:"carriers"`
	Emitters []EmitterDef `yaml:"emitters"`
}

// CarrierDef is a plain transform other entities can be parented to.
type CarrierDef struct {
	Name     string     `yaml:"name"`
	Position [3]float32 `yaml:"position"`
	Spin     *SpinDef   `yaml:"spin"`
}

type SpinDef struct {
	Axis      [3]float32 `yaml:"axis"`
	DegPerSec float32    `yaml:"deg_per_sec"`
}

type EmitterDef struct {
	Name     string     `yaml:"name"`
	Parent   string     `yaml:"parent"`
	Position [3]float32 `yaml:"position"`
	// Euler angles in degrees, applied Z then Y then X.
	Rotation [3]float32 `yaml:"rotation"`

	InitialCapacity int `yaml:"initial_capacity"`
	ChunkSize       int `yaml:"chunk_size"`
	MaxParticles    int `yaml:"max_particles"`

	Duration    float32    `yaml:"duration"`
	Loop        *bool      `yaml:"loop"`
	PlayOnAwake *bool      `yaml:"play_on_awake"`
	StartDelay  float32    `yaml:"start_delay"`
	StopAction  string     `yaml:"stop_action"`
	Lifetime    float32    `yaml:"entity_lifetime"`
	Rate        *ScalarDef `yaml:"rate"`
	Bursts      []BurstDef `yaml:"bursts"`
	Shape       ShapeDef   `yaml:"shape"`

	StartLifetime *ScalarDef `yaml:"start_lifetime"`
	StartSpeed    *ScalarDef `yaml:"start_speed"`
	Gravity       *ScalarDef `yaml:"gravity"`
	StartSize     *ScalarDef `yaml:"start_size"`
	StartSizeY    *ScalarDef `yaml:"start_size_y"`
	StartSizeZ    *ScalarDef `yaml:"start_size_z"`
	StartRotation *ScalarDef `yaml:"start_rotation"`
	StartRotX     *ScalarDef `yaml:"start_rotation_x"`
	StartRotY     *ScalarDef `yaml:"start_rotation_y"`
	StartColor    *ColorDef  `yaml:"start_color"`

	RenderMode    string `yaml:"render_mode"`
	Mesh          string `yaml:"mesh"`
	Texture       string `yaml:"texture"`
	Use3DSize     bool   `yaml:"use_3d_size"`
	Use3DRotation bool   `yaml:"use_3d_rotation"`
	Space         string `yaml:"simulation_space"`
}

// ScalarDef picks one evaluator: a constant, a random range, or a curve.
// A curve with curve_max is a random pick between two curves. over_cycle
// samples curves at emitter time instead of per particle.
type ScalarDef struct {
	Constant  *float32     `yaml:"constant"`
	Min       *float32     `yaml:"min"`
	Max       *float32     `yaml:"max"`
	Curve     [][2]float32 `yaml:"curve"`
	CurveMax  [][2]float32 `yaml:"curve_max"`
	OverCycle bool         `yaml:"over_cycle"`
}

type ColorDef struct {
	Solid     *[4]float32      `yaml:"solid"`
	Min       *[4]float32      `yaml:"min"`
	Max       *[4]float32      `yaml:"max"`
	Gradient  []GradientKeyDef `yaml:"gradient"`
	OverCycle bool             `yaml:"over_cycle"`
}

type GradientKeyDef struct {
	Time  float32    `yaml:"time"`
	Color [4]float32 `yaml:"color"`
}

type BurstDef struct {
	Time     float32 `yaml:"time"`
	Count    int     `yaml:"count"`
	Cycles   int     `yaml:"cycles"`
	Interval float32 `yaml:"interval"`
}

type ShapeDef struct {
	Type      string     `yaml:"type"`
	Radius    float32    `yaml:"radius"`
	Angle     float32    `yaml:"angle"`
	Shell     bool       `yaml:"shell"`
	Size      [3]float32 `yaml:"size"`
	Direction [3]float32 `yaml:"direction"`
}

// SceneDefaults fills emitter settings the scene file leaves out.
type SceneDefaults struct {
	RenderMode    gpu.RenderMode
	Space         core.SimulationSpace
	Use3DSize     bool
	Use3DRotation bool
	Texture       string
}

// LoadSceneFile parses a YAML scene.
func LoadSceneFile(path string) (*SceneDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene file: %w", err)
	}
	return ParseScene(data)
}

func ParseScene(data []byte) (*SceneDef, error) {
	scene := &SceneDef{}
	if err := yaml.Unmarshal(data, scene); err != nil {
		return nil, fmt.Errorf("parsing scene: %w", err)
	}
	for i := range scene.Emitters {
		if _, err := scene.Emitters[i].component(nil, SceneDefaults{}); err != nil {
			return nil, fmt.Errorf("emitter %d (%s): %w", i, scene.Emitters[i].Name, err)
		}
	}
	return scene, nil
}

// LoadScene spawns the scene's entities and returns emitter ids by name.
func LoadScene(cmd *Commands, assets *AssetServer, scene *SceneDef, defaults SceneDefaults) (map[string]EntityId, error) {
	named := make(map[string]EntityId)
	for _, c := range scene.Carriers {
		pos := mgl32.Vec3(c.Position)
		comps := []any{
			NewTransform(pos),
			&LocalTransformComponent{Position: pos, Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}},
		}
		if c.Spin != nil {
			comps = append(comps, &SpinComponent{Axis: mgl32.Vec3(c.Spin.Axis), DegPerSec: c.Spin.DegPerSec})
		}
		eid := cmd.AddEntity(comps...)
		if c.Name != "" {
			named[c.Name] = eid
		}
	}

	for _, def := range scene.Emitters {
		em, err := def.component(assets, defaults)
		if err != nil {
			return named, fmt.Errorf("emitter %s: %w", def.Name, err)
		}
		rot := eulerDeg(def.Rotation)
		pos := mgl32.Vec3(def.Position)
		comps := []any{
			&TransformComponent{Position: pos, Rotation: rot, Scale: mgl32.Vec3{1, 1, 1}},
			em,
		}
		if def.Parent != "" {
			parent, ok := named[def.Parent]
			if !ok {
				return named, fmt.Errorf("emitter %s: unknown parent %q", def.Name, def.Parent)
			}
			comps = append(comps,
				&Parent{Entity: parent},
				&LocalTransformComponent{Position: pos, Rotation: rot, Scale: mgl32.Vec3{1, 1, 1}},
			)
		}
		if def.Lifetime > 0 {
			comps = append(comps, &LifetimeComponent{TimeLeft: def.Lifetime})
		}
		eid := cmd.AddEntity(comps...)
		if def.Name != "" {
			named[def.Name] = eid
		}
	}
	return named, nil
}

func eulerDeg(deg [3]float32) mgl32.Quat {
	return mgl32.AnglesToQuat(
		mgl32.DegToRad(deg[2]), mgl32.DegToRad(deg[1]), mgl32.DegToRad(deg[0]),
		mgl32.ZYX,
	)
}

// component builds the emitter component. assets may be nil while only
// validating.
func (def EmitterDef) component(assets *AssetServer, defaults SceneDefaults) (*ParticleEmitterComponent, error) {
	clock := &emit.Clock{}
	em := &ParticleEmitterComponent{
		Enabled:         true,
		Label:           def.Name,
		InitialCapacity: def.InitialCapacity,
		ChunkSize:       def.ChunkSize,
		MaxParticles:    def.MaxParticles,
		Duration:        def.Duration,
		Loop:            boolOr(def.Loop, true),
		PlayOnAwake:     boolOr(def.PlayOnAwake, true),
		StartDelay:      def.StartDelay,
		Clock:           clock,
		Use3DSize:       def.Use3DSize || defaults.Use3DSize,
		Use3DRotation:   def.Use3DRotation || defaults.Use3DRotation,
		RenderMode:      defaults.RenderMode,
		Space:           defaults.Space,
	}
	if em.Duration <= 0 {
		em.Duration = 5
	}

	var err error
	if em.StopAction, err = parseStopAction(def.StopAction); err != nil {
		return nil, err
	}
	if def.RenderMode != "" {
		if em.RenderMode, err = gpu.ParseRenderMode(def.RenderMode); err != nil {
			return nil, err
		}
	}
	if def.Space != "" {
		if em.Space, err = core.ParseSimulationSpace(def.Space); err != nil {
			return nil, err
		}
	}
	if em.Shape, err = def.Shape.source(); err != nil {
		return nil, err
	}

	em.Rate = def.Rate.evaluator(clock, emit.Constant(10))
	for _, b := range def.Bursts {
		em.Bursts = append(em.Bursts, emit.Burst{Time: b.Time, Count: b.Count, Cycles: b.Cycles, Interval: b.Interval})
	}

	gravity, err := def.Gravity.rangeEvaluator()
	if err != nil {
		return nil, fmt.Errorf("gravity: %w", err)
	}
	em.Attributes = sim.Attributes{
		Lifetime:  def.StartLifetime.evaluator(clock, nil),
		Speed:     def.StartSpeed.evaluator(clock, nil),
		Gravity:   gravity,
		SizeX:     def.StartSize.evaluator(clock, nil),
		SizeY:     def.StartSizeY.evaluator(clock, nil),
		SizeZ:     def.StartSizeZ.evaluator(clock, nil),
		RotationX: def.StartRotX.evaluator(clock, nil),
		RotationY: def.StartRotY.evaluator(clock, nil),
		RotationZ: def.StartRotation.evaluator(clock, nil),
		Color:     def.StartColor.evaluator(clock),
	}

	if assets == nil {
		return em, nil
	}
	switch def.Mesh {
	case "":
	case "cube":
		em.Mesh = assets.CreateCubeMesh(1)
	case "octahedron":
		em.Mesh = assets.CreateOctahedronMesh(0.5)
	default:
		return nil, fmt.Errorf("unknown mesh %q", def.Mesh)
	}
	texture := def.Texture
	if texture == "" {
		texture = defaults.Texture
	}
	if texture != "" {
		if em.Texture, err = assets.LoadTexture(texture); err != nil {
			return nil, err
		}
	}
	return em, nil
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func parseStopAction(name string) (StopAction, error) {
	switch name {
	case "", "none":
		return StopNone, nil
	case "disable":
		return StopDisable, nil
	case "destroy":
		return StopDestroy, nil
	default:
		return StopNone, fmt.Errorf("unknown stop action %q", name)
	}
}

func (s ShapeDef) source() (sim.SpawnSource, error) {
	switch s.Type {
	case "", "point":
		return emit.PointShape{Direction: mgl32.Vec3(s.Direction)}, nil
	case "sphere":
		return emit.SphereShape{Radius: s.Radius, Shell: s.Shell}, nil
	case "cone":
		return emit.ConeShape{AngleDegrees: s.Angle, Radius: s.Radius}, nil
	case "box":
		return emit.BoxShape{Size: mgl32.Vec3(s.Size)}, nil
	default:
		return nil, fmt.Errorf("unknown shape %q", s.Type)
	}
}

func (s *ScalarDef) evaluator(clock *emit.Clock, fallback sim.ScalarEvaluator) sim.ScalarEvaluator {
	if s == nil {
		return fallback
	}
	var c *emit.Clock
	if s.OverCycle {
		c = clock
	}
	switch {
	case len(s.Curve) > 0 && len(s.CurveMax) > 0:
		return emit.RandomCurve{Min: curveOf(s.Curve), Max: curveOf(s.CurveMax), Clock: clock}
	case len(s.Curve) > 0:
		cv := curveOf(s.Curve)
		cv.Clock = c
		return cv
	case s.Min != nil && s.Max != nil:
		return emit.RandomRange{Min: *s.Min, Max: *s.Max}
	case s.Constant != nil:
		return emit.Constant(*s.Constant)
	}
	return fallback
}

// rangeEvaluator accepts only the constant and min/max forms.
func (s *ScalarDef) rangeEvaluator() (sim.RangeEvaluator, error) {
	switch {
	case s == nil:
		return nil, nil
	case len(s.Curve) > 0:
		return nil, fmt.Errorf("curves are not supported here")
	case s.Min != nil && s.Max != nil:
		return emit.RandomRange{Min: *s.Min, Max: *s.Max}, nil
	case s.Constant != nil:
		return emit.Constant(*s.Constant), nil
	}
	return nil, nil
}

func curveOf(points [][2]float32) emit.Curve {
	keys := make([]emit.Key, len(points))
	for i, p := range points {
		keys[i] = emit.Key{Time: p[0], Value: p[1]}
	}
	return emit.NewCurve(nil, keys...)
}

func (c *ColorDef) evaluator(clock *emit.Clock) sim.ColorEvaluator {
	if c == nil {
		return nil
	}
	switch {
	case len(c.Gradient) > 0:
		g := emit.Gradient{}
		if c.OverCycle {
			g.Clock = clock
		}
		for _, k := range c.Gradient {
			g.Keys = append(g.Keys, emit.ColorKey{Time: k.Time, Color: k.Color})
		}
		slices.SortStableFunc(g.Keys, func(a, b emit.ColorKey) int { return cmp.Compare(a.Time, b.Time) })
		return g
	case c.Min != nil && c.Max != nil:
		return emit.ColorRange{Min: *c.Min, Max: *c.Max}
	case c.Solid != nil:
		return emit.SolidColor(*c.Solid)
	}
	return nil
}
