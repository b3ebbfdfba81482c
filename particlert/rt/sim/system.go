package sim

import (
	"fmt"
	"math/rand/v2"

	"github.com/gekko3d/gekko-particles/particlert/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// Stats is a snapshot of a System for profiling and tests.
type Stats struct {
	Alive    int
	Capacity int
	Regions  Regions
	Dropped  int
	Growths  int
	Uploads  int
	Frame    uint32
	PlayTime float32
}

type Option func(*System)

func WithLogger(l Logger) Option {
	return func(s *System) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLabel names the system in log lines.
func WithLabel(label string) Option {
	return func(s *System) { s.label = label }
}

// System is the ring buffer allocator: it emits particles into a Store,
// retires them when their lifetime runs out, frees their slots after the
// GPU cooldown and hands the dirty range to an Uploader every frame.
//
// A System is not safe for concurrent use.
type System struct {
	cfg      Config
	store    *Store
	attrs    Attributes
	source   SpawnSource
	policy   EmissionPolicy
	uploader Uploader
	logger   Logger
	label    string
	rng      *rand.Rand

	playTime float32
	frame    uint32

	position mgl32.Vec3
	rotation mgl32.Quat

	dropped          int
	droppedThisFrame int
	growths          int
	uploads          int
}

func NewSystem(cfg Config, attrs Attributes, source SpawnSource, policy EmissionPolicy, uploader Uploader, opts ...Option) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		source = pointSource{}
	}
	if policy == nil {
		policy = nopPolicy{}
	}
	if uploader == nil {
		uploader = nopUploader{}
	}

	s := &System{
		cfg:      cfg,
		store:    newStore(cfg.Layout, cfg.InitialCapacity),
		attrs:    attrs.withDefaults(),
		source:   source,
		policy:   policy,
		uploader: uploader,
		logger:   nopLogger{},
		label:    "particles",
		rng:      rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		rotation: mgl32.QuatIdent(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *System) Store() *Store       { return s.store }
func (s *System) Config() Config      { return s.cfg }
func (s *System) PlayTime() float32   { return s.playTime }
func (s *System) Frame() uint32       { return s.frame }
func (s *System) Layout() core.Layout { return s.store.Layout }

// GravityRange is the pair the renderer lerps by each record's gravity seed.
func (s *System) GravityRange() (lo, hi float32) { return s.attrs.Gravity.Bounds() }

// Gravity is the gravity modifier the particle in rec was spawned with.
func (s *System) Gravity(rec core.Record) float32 {
	return s.attrs.Gravity.Evaluate(rec.FeatureSeeds()[core.GravitySeed])
}

// SetTransform samples the owning entity's world pose for the next emissions.
func (s *System) SetTransform(position mgl32.Vec3, rotation mgl32.Quat) {
	s.position = position
	s.rotation = rotation
}

func (s *System) Stats() Stats {
	return Stats{
		Alive:    s.store.Alive(),
		Capacity: s.store.Capacity,
		Regions:  s.store.Regions(),
		Dropped:  s.dropped,
		Growths:  s.growths,
		Uploads:  s.uploads,
		Frame:    s.frame,
		PlayTime: s.playTime,
	}
}

// Emit adds count particles at the current play time. Negative counts are
// treated as zero. Particles that do not fit under MaxCapacity are dropped.
func (s *System) Emit(count int) {
	for i := 0; i < count; i++ {
		pos, dir := s.source.Sample(s.rng)
		s.add(pos, dir)
	}
}

// Update advances play time and runs retire, free, emission and upload in
// that order.
func (s *System) Update(elapsed float32) {
	if elapsed < 0 {
		elapsed = 0
	}
	prev := s.playTime
	s.playTime += elapsed
	s.frame++
	s.droppedThisFrame = 0

	s.retire()
	s.free()
	s.policy.Tick(prev, s.playTime, s)
	if s.uploader.UploadIfDirty(s.store) {
		s.uploads++
	}

	if s.droppedThisFrame > 0 && s.logger.DebugEnabled() {
		s.logger.Debugf("%s: dropped %d particles at max capacity %d", s.label, s.droppedThisFrame, s.cfg.MaxCapacity)
	}
}

// Clear kills every particle while keeping the allocated capacity. The
// slots go through the same frames-in-flight cooldown as natural deaths.
func (s *System) Clear() {
	s.store.retireAll(s.frame)
	s.free()
}

// SetLayout switches the record layout. The ring is rebuilt empty at the
// current capacity and the next upload re-sends everything.
func (s *System) SetLayout(l core.Layout) {
	if l == s.store.Layout {
		return
	}
	s.logger.Infof("%s: layout changed %s -> %s, repacking", s.label, s.store.Layout, l)
	s.cfg.Layout = l
	s.store = newStore(l, s.store.Capacity)
	s.store.resized = true
}

// ForEachActive walks live records, oldest first, from FirstActive to
// FirstFree. Returning false stops the walk.
func (s *System) ForEachActive(fn func(slot int, rec core.Record) bool) {
	st := s.store
	for i := st.FirstActive; i != st.FirstFree; i = st.next(i) {
		if !fn(i, st.Record(i)) {
			return
		}
	}
}

func (s *System) add(pos, dir mgl32.Vec3) {
	st := s.store
	for st.Capacity == 0 || st.next(st.FirstFree) == st.FirstRetired {
		by := min(s.cfg.ChunkSize, s.cfg.MaxCapacity-st.Capacity)
		if by <= 0 {
			s.dropped++
			s.droppedThisFrame++
			return
		}
		old := st.Capacity
		st.grow(by)
		s.growths++
		s.logger.Debugf("%s: grew ring %d -> %d", s.label, old, st.Capacity)
	}

	slot := st.FirstFree
	rec := st.Record(slot)
	l := &st.Layout
	a := &s.attrs

	dir = core.NormalizeOrUp(dir)
	if l.Space == core.SpaceWorld {
		pos = s.position.Add(s.rotation.Rotate(pos))
		dir = s.rotation.Rotate(dir)
	} else {
		rec.SetWorldTransform(s.position, s.rotation)
	}

	rec.SetPosition(pos)
	rec.SetDirection(dir)
	rec.SetSpawnTime(s.playTime)
	rec.SetStartLifetime(a.Lifetime.Evaluate(s.rng.Float32()))
	rec.SetStartSpeed(a.Speed.Evaluate(s.rng.Float32()))
	rec.SetStartColor(a.Color.Evaluate(s.rng.Float32()))

	if l.Use3DSize {
		rec.SetStartSize(mgl32.Vec3{
			a.SizeX.Evaluate(s.rng.Float32()),
			a.SizeY.Evaluate(s.rng.Float32()),
			a.SizeZ.Evaluate(s.rng.Float32()),
		})
	} else {
		rec.SetStartSize(mgl32.Vec3{a.SizeX.Evaluate(s.rng.Float32())})
	}
	if l.Use3DRotation {
		rec.SetStartRotation(mgl32.Vec3{
			a.RotationX.Evaluate(s.rng.Float32()),
			a.RotationY.Evaluate(s.rng.Float32()),
			a.RotationZ.Evaluate(s.rng.Float32()),
		})
	} else {
		rec.SetStartRotation(mgl32.Vec3{0, 0, a.RotationZ.Evaluate(s.rng.Float32())})
	}
	rec.SetFeatureSeeds([4]float32{s.rng.Float32(), s.rng.Float32(), s.rng.Float32(), s.rng.Float32()})
	rec.SetVelocitySeeds([4]float32{s.rng.Float32(), s.rng.Float32(), s.rng.Float32(), s.rng.Float32()})
	rec.SetSimulationUV([4]float32{0, 0, 1, 1})

	st.deathFrame[slot] = 0
	st.FirstFree = st.next(slot)
	st.pendingNew++
}

// retire stops at the first record still alive. Records are appended in
// spawn order, so nothing after it can be dead yet.
func (s *System) retire() {
	st := s.store
	for st.FirstActive != st.FirstNew {
		rec := st.Record(st.FirstActive)
		age := s.playTime - rec.SpawnTime()
		if age+s.cfg.Epsilon < rec.StartLifetime() {
			return
		}
		st.deathFrame[st.FirstActive] = s.frame
		st.FirstActive = st.next(st.FirstActive)
		st.pendingRetired++
	}
}

// free hands retired slots back once the GPU can no longer be reading them.
func (s *System) free() {
	st := s.store
	cooldown := int32(s.cfg.FramesInFlight - 1)
	for st.FirstRetired != st.FirstActive {
		// negative if deathFrame is ahead of frame, which also waits
		age := int32(s.frame - st.deathFrame[st.FirstRetired])
		if age < cooldown {
			return
		}
		st.FirstRetired = st.next(st.FirstRetired)
	}
}

func (s *System) String() string {
	return fmt.Sprintf("%s{cap=%d %+v}", s.label, s.store.Capacity, s.store.Indices)
}
