package core

import "fmt"

// SimulationSpace selects the frame particle positions are expressed in.
type SimulationSpace uint32

const (
	// SpaceWorld bakes the emitter transform into the record at spawn time.
	SpaceWorld SimulationSpace = iota
	// SpaceLocal keeps positions relative to the emitter and stores the
	// spawn-time world transform alongside so the renderer can re-apply it.
	SpaceLocal
)

func (s SimulationSpace) String() string {
	switch s {
	case SpaceWorld:
		return "world"
	case SpaceLocal:
		return "local"
	default:
		return fmt.Sprintf("SimulationSpace(%d)", uint32(s))
	}
}

// ParseSimulationSpace maps a config string to a SimulationSpace.
func ParseSimulationSpace(name string) (SimulationSpace, error) {
	switch name {
	case "", "world":
		return SpaceWorld, nil
	case "local":
		return SpaceLocal, nil
	default:
		return SpaceWorld, fmt.Errorf("unknown simulation space %q", name)
	}
}

// Layout describes one particle record as a run of float32s.
// Offsets are in floats from the start of the record; -1 means the field
// is not present for this configuration.
//
//	position(3) startLifetime(1) direction(3) spawnTime(1) startColor(4)
//	startSize(1|3) startRotation(1|3) startSpeed(1) featureSeeds(4)
//	velocitySeeds(4) [worldPosition(3) worldRotation(4)] simulationUV(4)
type Layout struct {
	Use3DSize     bool
	Use3DRotation bool
	Space         SimulationSpace

	Stride int

	Position      int
	StartLifetime int
	Direction     int
	SpawnTime     int
	StartColor    int
	StartSize     int
	StartRotation int
	StartSpeed    int
	FeatureSeeds  int
	VelocitySeeds int
	WorldPosition int
	WorldRotation int
	SimulationUV  int
}

const bytesPerFloat = 4

// GravitySeed is the featureSeeds lane a particle's gravity is drawn from.
const GravitySeed = 3

func NewLayout(use3DSize, use3DRotation bool, space SimulationSpace) Layout {
	l := Layout{
		Use3DSize:     use3DSize,
		Use3DRotation: use3DRotation,
		Space:         space,
		WorldPosition: -1,
		WorldRotation: -1,
	}

	off := 0
	take := func(n int) int {
		at := off
		off += n
		return at
	}

	l.Position = take(3)
	l.StartLifetime = take(1)
	l.Direction = take(3)
	l.SpawnTime = take(1)
	l.StartColor = take(4)
	l.StartSize = take(l.SizeComponents())
	l.StartRotation = take(l.RotationComponents())
	l.StartSpeed = take(1)
	l.FeatureSeeds = take(4)
	l.VelocitySeeds = take(4)
	if space == SpaceLocal {
		l.WorldPosition = take(3)
		l.WorldRotation = take(4)
	}
	l.SimulationUV = take(4)

	l.Stride = off
	return l
}

func (l Layout) SizeComponents() int {
	if l.Use3DSize {
		return 3
	}
	return 1
}

func (l Layout) RotationComponents() int {
	if l.Use3DRotation {
		return 3
	}
	return 1
}

// ByteStride is the size of one record in bytes, identical on CPU and GPU.
func (l Layout) ByteStride() uint64 {
	return uint64(l.Stride) * bytesPerFloat
}

// HasWorldTransform reports whether records carry a spawn-time world transform.
func (l Layout) HasWorldTransform() bool {
	return l.WorldPosition >= 0
}

func (l Layout) String() string {
	return fmt.Sprintf("Layout{stride=%d size3d=%t rot3d=%t space=%s}", l.Stride, l.Use3DSize, l.Use3DRotation, l.Space)
}
