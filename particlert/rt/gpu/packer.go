package gpu

import (
	"github.com/gekko3d/gekko-particles/particlert/rt/core"
	"github.com/gekko3d/gekko-particles/particlert/rt/sim"
)

// DrawRange is a contiguous run of instances for one draw call.
type DrawRange struct {
	FirstInstance uint32
	InstanceCount uint32
}

// UploadStats counts packer traffic since creation.
type UploadStats struct {
	Uploads     int
	Writes      int
	Bytes       uint64
	FullRepacks int
	// LastBytes is what the most recent upload sent.
	LastBytes uint64
}

// InstancePacker mirrors the dirty part of a sim.Store into a Sink.
//
// In steady state only the new region [FirstNew, FirstFree) is written,
// in at most two pieces when it wraps. A resize or layout change re-sends
// the whole live range instead.
type InstancePacker struct {
	sink     Sink
	layout   core.Layout
	capacity int

	mode     RenderMode
	mesh     *MeshGeometry
	geometry Geometry
	version  uint64

	stats UploadStats
}

func NewInstancePacker(sink Sink, layout core.Layout) *InstancePacker {
	p := &InstancePacker{
		sink:   sink,
		layout: layout,
	}
	p.rebuildGeometry()
	return p
}

func (p *InstancePacker) Sink() Sink              { return p.sink }
func (p *InstancePacker) Layout() core.Layout     { return p.layout }
func (p *InstancePacker) Stats() UploadStats      { return p.stats }
func (p *InstancePacker) Geometry() Geometry      { return p.geometry }
func (p *InstancePacker) GeometryVersion() uint64 { return p.version }
func (p *InstancePacker) RenderMode() RenderMode  { return p.geometry.Mode }

// ByteOffset is where slot starts in the GPU buffer.
func (p *InstancePacker) ByteOffset(slot int) uint64 {
	return uint64(slot) * p.layout.ByteStride()
}

// SetRenderMode swaps the vertex input description. Nothing happens when
// neither mode nor mesh changed.
func (p *InstancePacker) SetRenderMode(mode RenderMode, mesh *MeshGeometry) {
	if mode == p.mode && mesh == p.mesh {
		return
	}
	p.mode = mode
	p.mesh = mesh
	p.rebuildGeometry()
}

func (p *InstancePacker) rebuildGeometry() {
	p.geometry = buildGeometry(p.mode, p.mesh, p.layout)
	p.version++
}

func (p *InstancePacker) UploadIfDirty(store *sim.Store) bool {
	layoutChanged := store.Layout != p.layout
	full := store.Resized() || layoutChanged || store.Capacity != p.capacity
	if !full && store.FirstNew == store.FirstFree {
		return false
	}

	p.stats.LastBytes = 0
	if full {
		if layoutChanged {
			p.layout = store.Layout
			p.rebuildGeometry()
		}
		p.sink.Reserve(uint64(store.Capacity) * p.layout.ByteStride())
		p.capacity = store.Capacity
		p.writeRange(store, store.FirstActive, store.FirstFree)
		p.stats.FullRepacks++
	} else {
		p.writeRange(store, store.FirstNew, store.FirstFree)
	}

	p.stats.Uploads++
	p.stats.Bytes += p.stats.LastBytes
	store.CommitUpload()
	return true
}

func (p *InstancePacker) writeRange(store *sim.Store, from, to int) {
	if from == to {
		return
	}
	if from < to {
		p.writeSlots(store, from, to)
		return
	}
	p.writeSlots(store, from, store.Capacity)
	p.writeSlots(store, 0, to)
}

func (p *InstancePacker) writeSlots(store *sim.Store, from, to int) {
	if from == to {
		return
	}
	off := p.ByteOffset(from)
	n := uint64(to-from) * p.layout.ByteStride()
	p.sink.Write(store.Buffer, off, off, n)
	p.stats.Writes++
	p.stats.LastBytes += n
}

// DrawRanges covers the live records, active and new, as at most two
// instance runs.
func (p *InstancePacker) DrawRanges(store *sim.Store) []DrawRange {
	return appendRanges(nil, store)
}

func appendRanges(dst []DrawRange, store *sim.Store) []DrawRange {
	a, b := store.FirstActive, store.FirstFree
	switch {
	case a == b:
		return dst
	case a < b:
		return append(dst, DrawRange{FirstInstance: uint32(a), InstanceCount: uint32(b - a)})
	default:
		dst = append(dst, DrawRange{FirstInstance: uint32(a), InstanceCount: uint32(store.Capacity - a)})
		if b > 0 {
			dst = append(dst, DrawRange{FirstInstance: 0, InstanceCount: uint32(b)})
		}
		return dst
	}
}

// AppendDrawRanges is DrawRanges without the allocation.
func (p *InstancePacker) AppendDrawRanges(dst []DrawRange, store *sim.Store) []DrawRange {
	return appendRanges(dst, store)
}

var _ sim.Uploader = (*InstancePacker)(nil)
