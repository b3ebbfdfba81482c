package sim

import (
	"errors"
	"fmt"

	"github.com/gekko3d/gekko-particles/particlert/rt/core"
)

var ErrInvalidConfig = errors.New("invalid particle system config")

const (
	DefaultChunkSize      = 256
	DefaultMaxCapacity    = 16384
	DefaultFramesInFlight = 1
	DefaultEpsilon        = 1e-4
)

// Config sizes the ring and fixes the record layout.
type Config struct {
	InitialCapacity int
	ChunkSize       int
	MaxCapacity     int

	// FramesInFlight is how many frames of GPU work may still read a slot
	// after it retires. A slot becomes reusable once its death frame is
	// FramesInFlight-1 frames old.
	FramesInFlight int

	// Epsilon keeps particles alive that are within float noise of their lifetime.
	Epsilon float32

	Layout core.Layout
	Seed   uint64
}

func DefaultConfig() Config {
	return Config{
		InitialCapacity: 0,
		ChunkSize:       DefaultChunkSize,
		MaxCapacity:     DefaultMaxCapacity,
		FramesInFlight:  DefaultFramesInFlight,
		Epsilon:         DefaultEpsilon,
		Layout:          core.NewLayout(false, false, core.SpaceWorld),
	}
}

func (c Config) Validate() error {
	switch {
	case c.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, c.ChunkSize)
	case c.MaxCapacity < 2:
		// one slot always separates the free region from the retired one
		return fmt.Errorf("%w: max capacity must be at least 2, got %d", ErrInvalidConfig, c.MaxCapacity)
	case c.InitialCapacity < 0 || c.InitialCapacity > c.MaxCapacity:
		return fmt.Errorf("%w: initial capacity %d outside [0, %d]", ErrInvalidConfig, c.InitialCapacity, c.MaxCapacity)
	case c.FramesInFlight < 1:
		return fmt.Errorf("%w: frames in flight must be at least 1, got %d", ErrInvalidConfig, c.FramesInFlight)
	case c.Epsilon < 0:
		return fmt.Errorf("%w: epsilon must not be negative", ErrInvalidConfig)
	case c.Layout.Stride <= 0:
		return fmt.Errorf("%w: layout has no stride", ErrInvalidConfig)
	}
	return nil
}
