package sim

import (
	"fmt"

	"github.com/gekko3d/gekko-particles/particlert/rt/core"
)

// Indices are the four ring cursors. Read circularly from FirstRetired they
// split [0, Capacity) into retired, active, new and free regions, in that
// order, with free wrapping back to retired.
type Indices struct {
	FirstRetired int
	FirstActive  int
	FirstNew     int
	FirstFree    int
}

// Regions holds the length of each ring region.
type Regions struct {
	Retired int
	Active  int
	New     int
	Free    int
}

func (r Regions) Total() int { return r.Retired + r.Active + r.New + r.Free }

// Store owns the flat particle buffer and the ring cursors over it.
//
// One free slot is always kept between FirstFree and FirstRetired, so the
// ring is full when advancing FirstFree would land on FirstRetired.
type Store struct {
	Buffer   []float32
	Layout   core.Layout
	Capacity int
	Indices

	// deathFrame[slot] is the frame a retired slot died on. Only meaningful
	// inside the retired region.
	deathFrame []uint32

	resized        bool
	pendingNew     int
	pendingRetired int
}

func newStore(layout core.Layout, capacity int) *Store {
	return &Store{
		Buffer:     make([]float32, capacity*layout.Stride),
		Layout:     layout,
		Capacity:   capacity,
		deathFrame: make([]uint32, capacity),
	}
}

func (s *Store) next(i int) int {
	i++
	if i == s.Capacity {
		return 0
	}
	return i
}

// span is the circular distance from a to b.
func (s *Store) span(a, b int) int {
	if s.Capacity == 0 {
		return 0
	}
	d := b - a
	if d < 0 {
		d += s.Capacity
	}
	return d
}

func (s *Store) Regions() Regions {
	r := Regions{
		Retired: s.span(s.FirstRetired, s.FirstActive),
		Active:  s.span(s.FirstActive, s.FirstNew),
		New:     s.span(s.FirstNew, s.FirstFree),
	}
	r.Free = s.Capacity - r.Retired - r.Active - r.New
	return r
}

// Alive is the number of records in the active and new regions.
func (s *Store) Alive() int {
	return s.span(s.FirstActive, s.FirstFree)
}

// Resized reports whether the buffer was reallocated since the last upload.
func (s *Store) Resized() bool { return s.resized }

// Pending returns how many records were added and retired since the last upload.
func (s *Store) Pending() (added, retired int) { return s.pendingNew, s.pendingRetired }

// CommitUpload marks everything written so far as mirrored on the GPU.
func (s *Store) CommitUpload() {
	s.FirstNew = s.FirstFree
	s.resized = false
	s.pendingNew = 0
	s.pendingRetired = 0
}

func (s *Store) Record(slot int) core.Record {
	return core.RecordAt(s.Buffer, &s.Layout, slot)
}

// DeathFrame returns the frame slot retired on.
func (s *Store) DeathFrame(slot int) uint32 { return s.deathFrame[slot] }

// retireAll moves every active and new record into the retired region as
// if it had died on frame.
func (s *Store) retireAll(frame uint32) {
	for i := s.FirstActive; i != s.FirstFree; i = s.next(i) {
		s.deathFrame[i] = frame
		s.pendingRetired++
	}
	s.FirstActive = s.FirstFree
	s.FirstNew = s.FirstFree
	s.pendingNew = 0
}

// grow reallocates the buffer with by extra slots inserted right after
// FirstFree. The free region stays contiguous and every other slot keeps
// its region membership.
func (s *Store) grow(by int) {
	oldCap := s.Capacity
	newCap := oldCap + by
	stride := s.Layout.Stride
	pivot := s.FirstFree

	buf := make([]float32, newCap*stride)
	deaths := make([]uint32, newCap)
	if oldCap > 0 {
		copy(buf[:pivot*stride], s.Buffer[:pivot*stride])
		copy(buf[(pivot+by)*stride:], s.Buffer[pivot*stride:])
		copy(deaths[:pivot], s.deathFrame[:pivot])
		copy(deaths[pivot+by:], s.deathFrame[pivot:])
	}

	s.Buffer = buf
	s.deathFrame = deaths
	s.Indices = growIndices(s.Indices, by, pivot)
	s.Capacity = newCap
	s.resized = true
}

// growIndices shifts every cursor that sits physically after pivot by
// growBy. Cursors at or before pivot keep their slot.
func growIndices(old Indices, growBy, pivot int) Indices {
	shift := func(i int) int {
		if i > pivot {
			return i + growBy
		}
		return i
	}
	return Indices{
		FirstRetired: shift(old.FirstRetired),
		FirstActive:  shift(old.FirstActive),
		FirstNew:     shift(old.FirstNew),
		FirstFree:    shift(old.FirstFree),
	}
}

// checkPartition verifies the region invariant.
func (s *Store) checkPartition() error {
	if s.Capacity == 0 {
		if s.Indices != (Indices{}) {
			return fmt.Errorf("empty store with non-zero cursors %+v", s.Indices)
		}
		return nil
	}
	for _, i := range []int{s.FirstRetired, s.FirstActive, s.FirstNew, s.FirstFree} {
		if i < 0 || i >= s.Capacity {
			return fmt.Errorf("cursor %d outside [0, %d)", i, s.Capacity)
		}
	}
	r := s.Regions()
	used := r.Retired + r.Active + r.New
	if used > s.Capacity-1 {
		return fmt.Errorf("regions overlap: used %d of %d (%+v)", used, s.Capacity, s.Indices)
	}
	if used == 0 && s.FirstFree != s.FirstRetired {
		return fmt.Errorf("empty ring with split cursors %+v", s.Indices)
	}
	if used > 0 && s.span(s.FirstFree, s.FirstRetired) != r.Free {
		return fmt.Errorf("free region does not close the ring: %+v", s.Indices)
	}
	if len(s.Buffer) != s.Capacity*s.Layout.Stride || len(s.deathFrame) != s.Capacity {
		return fmt.Errorf("buffer size %d does not match capacity %d", len(s.Buffer), s.Capacity)
	}
	return nil
}
