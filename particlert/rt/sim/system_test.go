package sim

import (
	"math/rand/v2"
	"testing"

	"github.com/gekko3d/gekko-particles/particlert/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scalarFunc func(seed float32) float32

func (f scalarFunc) Evaluate(seed float32) float32 { return f(seed) }

type gravityRange [2]float32

func (g gravityRange) Evaluate(seed float32) float32 { return g[0] + (g[1]-g[0])*seed }
func (g gravityRange) Bounds() (float32, float32)    { return g[0], g[1] }

// everyTick emits n particles on every Update.
type everyTick int

func (n everyTick) Tick(_, _ float32, e Emitter) { e.Emit(int(n)) }

// recordingUploader commits like a real packer and remembers what it saw.
type recordingUploader struct {
	calls  int
	writes int
	ranges [][2]int
}

func (u *recordingUploader) UploadIfDirty(s *Store) bool {
	u.calls++
	if s.FirstNew == s.FirstFree && !s.Resized() {
		return false
	}
	u.writes++
	u.ranges = append(u.ranges, [2]int{s.FirstNew, s.FirstFree})
	s.CommitUpload()
	return true
}

func testConfig(initial, chunk, max int) Config {
	cfg := DefaultConfig()
	cfg.InitialCapacity = initial
	cfg.ChunkSize = chunk
	cfg.MaxCapacity = max
	cfg.Seed = 7
	return cfg
}

func newTestSystem(t *testing.T, cfg Config, lifetime float32, policy EmissionPolicy, up Uploader) *System {
	t.Helper()
	s, err := NewSystem(cfg, Attributes{Lifetime: constScalar(lifetime)}, nil, policy, up)
	require.NoError(t, err)
	return s
}

func requirePartition(t *testing.T, s *System) {
	t.Helper()
	require.NoError(t, s.store.checkPartition())
	assert.Equal(t, s.store.Capacity, s.store.Regions().Total())
}

func TestWorkedScenario(t *testing.T) {
	s := newTestSystem(t, testConfig(4, 4, 8), 2, nil, nil)

	s.Emit(3)
	assert.Equal(t, Indices{FirstRetired: 0, FirstActive: 0, FirstNew: 0, FirstFree: 3}, s.store.Indices)
	for slot := 0; slot < 3; slot++ {
		assert.Equal(t, float32(0), s.store.Record(slot).SpawnTime())
		assert.Equal(t, float32(2), s.store.Record(slot).StartLifetime())
	}
	requirePartition(t, s)

	s.Update(1)
	assert.Equal(t, float32(1), s.PlayTime())
	assert.Equal(t, Indices{FirstRetired: 0, FirstActive: 0, FirstNew: 3, FirstFree: 3}, s.store.Indices)
	requirePartition(t, s)

	s.Update(1.5)
	assert.Equal(t, float32(2.5), s.PlayTime())
	assert.Equal(t, Indices{FirstRetired: 3, FirstActive: 3, FirstNew: 3, FirstFree: 3}, s.store.Indices)
	for slot := 0; slot < 3; slot++ {
		assert.Equal(t, s.Frame(), s.store.DeathFrame(slot))
		// spawn time survives retirement
		assert.Equal(t, float32(0), s.store.Record(slot).SpawnTime())
	}
	assert.Equal(t, 4, s.store.Capacity)
	requirePartition(t, s)
}

func TestUploaderSeesNewRangeOnce(t *testing.T) {
	up := &recordingUploader{}
	s := newTestSystem(t, testConfig(4, 4, 8), 2, nil, up)

	s.Emit(3)
	s.Update(1)
	require.Equal(t, 1, up.writes)
	assert.Equal(t, [2]int{0, 3}, up.ranges[0])

	s.Update(0.1)
	assert.Equal(t, 1, up.writes)
	assert.Equal(t, 2, up.calls)
}

func TestUpdateZeroIsIdempotent(t *testing.T) {
	up := &recordingUploader{}
	s := newTestSystem(t, testConfig(8, 8, 16), 5, nil, up)

	s.Emit(4)
	s.Update(0.5)
	writes := up.writes

	s.Update(0)
	before := s.store.Indices
	buf := append([]float32(nil), s.store.Buffer...)

	s.Update(0)
	assert.Equal(t, before, s.store.Indices)
	assert.Equal(t, buf, s.store.Buffer)
	assert.Equal(t, writes, up.writes)
}

func TestDrainRoundTrip(t *testing.T) {
	s := newTestSystem(t, testConfig(16, 16, 64), 1, nil, nil)

	s.Update(0.25)
	start := s.store.FirstFree
	s.Emit(10)

	for i := 0; i < 10 && s.store.Alive() > 0; i++ {
		s.Update(0.3)
		requirePartition(t, s)
	}
	s.Update(1.0 / 60)

	idx := s.store.Indices
	assert.Equal(t, idx.FirstFree, idx.FirstRetired)
	assert.Equal(t, idx.FirstFree, idx.FirstActive)
	assert.Equal(t, idx.FirstFree, idx.FirstNew)
	assert.Equal(t, (start+10)%s.store.Capacity, idx.FirstFree)
	assert.Zero(t, s.store.Alive())
}

func TestGrowthPreservesRecords(t *testing.T) {
	up := &recordingUploader{}
	cfg := testConfig(4, 4, 32)
	s, err := NewSystem(cfg, Attributes{
		Lifetime: constScalar(10),
		Speed:    scalarFunc(func(seed float32) float32 { return seed }),
	}, nil, nil, up)
	require.NoError(t, err)

	s.Emit(2)
	s.Update(0.5)
	s.Emit(1)

	speeds := map[int]float32{}
	s.ForEachActive(func(slot int, rec core.Record) bool {
		speeds[slot] = rec.StartSpeed()
		return true
	})
	regions := s.store.Regions()
	require.Equal(t, 3, s.store.Alive())

	// ring of 4 holds 3, the next add must grow exactly once
	s.Emit(1)
	assert.Equal(t, 8, s.store.Capacity)
	assert.Equal(t, 1, s.Stats().Growths)
	assert.True(t, s.store.Resized())
	requirePartition(t, s)

	for slot, speed := range speeds {
		assert.Equal(t, speed, s.store.Record(slot).StartSpeed(), "slot %d", slot)
	}
	after := s.store.Regions()
	assert.Equal(t, regions.Active, after.Active)
	assert.Equal(t, regions.Retired, after.Retired)
	assert.Equal(t, regions.New+1, after.New)

	s.Update(0)
	assert.False(t, s.store.Resized())
}

func TestGrowthWhenWrapped(t *testing.T) {
	s := newTestSystem(t, testConfig(4, 4, 8), 1, nil, nil)

	// advance the ring so live data wraps past the end
	s.Emit(3)
	s.Update(1.5)
	s.Update(0.1)
	require.Equal(t, Indices{3, 3, 3, 3}, s.store.Indices)

	s.Emit(3)
	require.Equal(t, 2, s.store.FirstFree)
	s.Update(0.1)
	s.Emit(1)
	require.Equal(t, 8, s.store.Capacity)
	requirePartition(t, s)
	assert.Equal(t, 4, s.store.Alive())

	var spawns []float32
	s.ForEachActive(func(_ int, rec core.Record) bool {
		spawns = append(spawns, rec.SpawnTime())
		return true
	})
	assert.InDeltaSlice(t, []float32{1.6, 1.6, 1.6, 1.7}, spawns, 1e-5)
}

func TestGrowIndices(t *testing.T) {
	cases := []struct {
		name  string
		old   Indices
		by    int
		pivot int
		want  Indices
	}{
		{
			name:  "unwrapped",
			old:   Indices{FirstRetired: 0, FirstActive: 1, FirstNew: 2, FirstFree: 3},
			by:    4,
			pivot: 3,
			want:  Indices{FirstRetired: 0, FirstActive: 1, FirstNew: 2, FirstFree: 3},
		},
		{
			name:  "free at start",
			old:   Indices{FirstRetired: 1, FirstActive: 2, FirstNew: 3, FirstFree: 0},
			by:    4,
			pivot: 0,
			want:  Indices{FirstRetired: 5, FirstActive: 6, FirstNew: 7, FirstFree: 0},
		},
		{
			name:  "wrapped middle",
			old:   Indices{FirstRetired: 3, FirstActive: 3, FirstNew: 0, FirstFree: 2},
			by:    2,
			pivot: 2,
			want:  Indices{FirstRetired: 5, FirstActive: 5, FirstNew: 0, FirstFree: 2},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, growIndices(tc.old, tc.by, tc.pivot))
		})
	}
}

func TestBackpressureDropsAtMaxCapacity(t *testing.T) {
	s := newTestSystem(t, testConfig(0, 4, 8), 100, nil, nil)

	s.Emit(20)
	assert.Equal(t, 8, s.store.Capacity)
	assert.Equal(t, 7, s.store.Alive())
	assert.Equal(t, 13, s.Stats().Dropped)
	requirePartition(t, s)

	s.Update(1)
	s.Emit(5)
	assert.Equal(t, 7, s.store.Alive())
	assert.Equal(t, 18, s.Stats().Dropped)
}

func TestZeroInitialCapacityGrowsOnFirstEmit(t *testing.T) {
	s := newTestSystem(t, testConfig(0, 16, 64), 1, nil, nil)
	require.Zero(t, s.store.Capacity)
	requirePartition(t, s)

	s.Emit(1)
	assert.Equal(t, 16, s.store.Capacity)
	assert.Equal(t, 1, s.store.Alive())
	requirePartition(t, s)
}

func TestNegativeInputsClampToZero(t *testing.T) {
	s := newTestSystem(t, testConfig(4, 4, 8), 1, nil, nil)

	s.Emit(-5)
	assert.Zero(t, s.store.Alive())

	s.Update(-1)
	assert.Equal(t, float32(0), s.PlayTime())
}

func TestOrderingAndPartitionUnderChurn(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	s, err := NewSystem(testConfig(0, 8, 128), Attributes{
		Lifetime: scalarFunc(func(seed float32) float32 { return 0.1 + seed }),
	}, nil, everyTick(3), nil)
	require.NoError(t, err)

	for frame := 0; frame < 400; frame++ {
		if frame%50 == 0 {
			s.Emit(r.IntN(40))
		}
		s.Update(float32(r.IntN(4)) / 60)
		requirePartition(t, s)

		last := float32(-1)
		s.ForEachActive(func(_ int, rec core.Record) bool {
			require.GreaterOrEqual(t, rec.SpawnTime(), last)
			last = rec.SpawnTime()
			return true
		})
	}
	assert.LessOrEqual(t, s.store.Capacity, 128)
}

func TestFramesInFlightDelaysFree(t *testing.T) {
	cfg := testConfig(8, 8, 8)
	cfg.FramesInFlight = 3
	s := newTestSystem(t, cfg, 1, nil, nil)

	s.Emit(2)
	s.Update(0)
	s.Update(1)
	require.Equal(t, 2, s.store.Regions().Retired)
	death := s.store.DeathFrame(0)

	s.Update(0)
	assert.Equal(t, 2, s.store.Regions().Retired)

	s.Update(0)
	assert.Zero(t, s.store.Regions().Retired)
	assert.Equal(t, death+2, s.Frame())
}

func TestClearKeepsCapacity(t *testing.T) {
	up := &recordingUploader{}
	s := newTestSystem(t, testConfig(4, 4, 16), 5, nil, up)
	s.Emit(6)
	s.Update(0)
	capBefore := s.store.Capacity

	s.Clear()
	assert.Equal(t, capBefore, s.store.Capacity)
	assert.Zero(t, s.store.Alive())
	assert.Equal(t, capBefore, s.store.Regions().Free)
	requirePartition(t, s)

	s.Update(0)
	assert.Equal(t, 1, up.writes)
}

func TestClearWaitsForFramesInFlight(t *testing.T) {
	cfg := testConfig(8, 8, 8)
	cfg.FramesInFlight = 2
	s := newTestSystem(t, cfg, 10, nil, nil)
	s.Emit(5)
	s.Update(0)

	s.Clear()
	assert.Zero(t, s.store.Alive())
	assert.Equal(t, 5, s.store.Regions().Retired)
	requirePartition(t, s)

	// only the slots that were already free can be reused this frame
	s.Emit(5)
	assert.Equal(t, 2, s.store.Alive())
	assert.Equal(t, 3, s.Stats().Dropped)
	s.ForEachActive(func(slot int, _ core.Record) bool {
		assert.GreaterOrEqual(t, slot, 5)
		return true
	})

	s.Update(0)
	assert.Zero(t, s.store.Regions().Retired)
	s.Emit(3)
	assert.Equal(t, 5, s.store.Alive())
	assert.Equal(t, 3, s.Stats().Dropped)
	requirePartition(t, s)
}

func TestFreeWaitsOnDeathFrameAhead(t *testing.T) {
	cfg := testConfig(8, 8, 8)
	s := newTestSystem(t, cfg, 1, nil, nil)
	s.Emit(2)
	s.Update(0)
	s.Update(1)
	require.Zero(t, s.store.Regions().Retired)

	s.Emit(1)
	s.Update(2)
	require.Zero(t, s.store.Regions().Active)
	s.store.FirstRetired = 2
	s.store.deathFrame[2] = s.frame + 5
	s.free()
	assert.Equal(t, 1, s.store.Regions().Retired)
}

func TestGravityIsPerParticle(t *testing.T) {
	s, err := NewSystem(testConfig(4, 4, 16), Attributes{
		Lifetime: constScalar(10),
		Gravity:  gravityRange{0, 10},
	}, nil, nil, nil)
	require.NoError(t, err)

	lo, hi := s.GravityRange()
	assert.Equal(t, gravityRange{0, 10}, gravityRange{lo, hi})

	s.Emit(1)
	first := s.Gravity(s.store.Record(0))
	assert.InDelta(t, 10*s.store.Record(0).FeatureSeeds()[core.GravitySeed], first, 1e-5)

	s.Update(0.1)
	s.Emit(1)
	assert.Equal(t, first, s.Gravity(s.store.Record(0)), "later emissions leave earlier particles alone")
	assert.NotEqual(t, first, s.Gravity(s.store.Record(1)))

	s, err = NewSystem(testConfig(4, 4, 16), Attributes{}, nil, nil, nil)
	require.NoError(t, err)
	s.Emit(1)
	assert.Zero(t, s.Gravity(s.store.Record(0)))
}

func TestSetLayoutRepacks(t *testing.T) {
	s := newTestSystem(t, testConfig(8, 8, 16), 5, nil, nil)
	s.Emit(3)

	l := core.NewLayout(true, true, core.SpaceLocal)
	s.SetLayout(l)
	assert.Equal(t, l, s.Layout())
	assert.Zero(t, s.store.Alive())
	assert.Len(t, s.store.Buffer, 8*l.Stride)
	assert.True(t, s.store.Resized())
}

func TestEmitterTransform(t *testing.T) {
	rot := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1})

	world := newTestSystem(t, testConfig(4, 4, 8), 1, nil, nil)
	world.SetTransform(mgl32.Vec3{5, 0, 0}, rot)
	world.Emit(1)
	rec := world.store.Record(0)
	assert.InDelta(t, 5, rec.Position().X(), 1e-5)
	// point source faces +Y, rotated a quarter turn about Z
	assert.InDelta(t, -1, rec.Direction().X(), 1e-5)
	_, _, ok := rec.WorldTransform()
	assert.False(t, ok)

	cfg := testConfig(4, 4, 8)
	cfg.Layout = core.NewLayout(false, false, core.SpaceLocal)
	local := newTestSystem(t, cfg, 1, nil, nil)
	local.SetTransform(mgl32.Vec3{5, 0, 0}, rot)
	local.Emit(1)
	rec = local.store.Record(0)
	assert.Equal(t, mgl32.Vec3{}, rec.Position())
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, rec.Direction())
	pos, _, ok := rec.WorldTransform()
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{5, 0, 0}, pos)
	assert.Equal(t, [4]float32{0, 0, 1, 1}, rec.SimulationUV())
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := []func(*Config){
		func(c *Config) { c.ChunkSize = 0 },
		func(c *Config) { c.MaxCapacity = 1 },
		func(c *Config) { c.InitialCapacity = c.MaxCapacity + 1 },
		func(c *Config) { c.FramesInFlight = 0 },
		func(c *Config) { c.Layout = core.Layout{} },
	}
	for i, mutate := range bad {
		c := DefaultConfig()
		mutate(&c)
		assert.ErrorIs(t, c.Validate(), ErrInvalidConfig, "case %d", i)
	}

	_, err := NewSystem(Config{}, Attributes{}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
