package gpu

import (
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
)

// Sink is the write-only GPU side of the instance buffer.
type Sink interface {
	// Reserve makes room for byteSize bytes and reports whether the
	// backing storage was reallocated, which loses its previous contents.
	Reserve(byteSize uint64) bool
	// Write copies byteLength bytes of src starting at srcByteOffset to
	// dstByteOffset. Several disjoint writes may happen per frame.
	Write(src []float32, srcByteOffset, dstByteOffset, byteLength uint64)
}

func floatBytes(src []float32) []byte {
	if len(src) == 0 {
		return nil
	}
	return wgpu.ToBytes(src)
}

func alignTo4(n uint64) uint64 {
	if n%4 != 0 {
		n += 4 - n%4
	}
	return n
}

// WgpuSink streams into a vertex buffer with instance step mode.
type WgpuSink struct {
	Device *wgpu.Device
	Queue  *wgpu.Queue
	Label  string
	// Headroom is extra bytes allocated on each growth.
	Headroom uint64

	Buffer *wgpu.Buffer
}

func NewWgpuSink(device *wgpu.Device, label string) *WgpuSink {
	return &WgpuSink{
		Device: device,
		Queue:  device.GetQueue(),
		Label:  label,
	}
}

func (s *WgpuSink) Reserve(byteSize uint64) bool {
	if byteSize == 0 {
		return false
	}
	needed := alignTo4(byteSize + s.Headroom)
	if s.Buffer != nil && s.Buffer.GetSize() >= needed {
		return false
	}
	if s.Buffer != nil {
		s.Buffer.Release()
	}
	buf, err := s.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            s.Label,
		Size:             needed,
		Usage:            wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		panic(err)
	}
	s.Buffer = buf
	return true
}

func (s *WgpuSink) Write(src []float32, srcByteOffset, dstByteOffset, byteLength uint64) {
	if s.Buffer == nil || byteLength == 0 {
		return
	}
	data := floatBytes(src)[srcByteOffset : srcByteOffset+byteLength]
	_ = s.Queue.WriteBuffer(s.Buffer, dstByteOffset, data)
}

func (s *WgpuSink) Release() {
	if s.Buffer != nil {
		s.Buffer.Release()
		s.Buffer = nil
	}
}

// WriteOp is one recorded MemorySink write.
type WriteOp struct {
	SrcOffset, DstOffset, Length uint64
}

// MemorySink mirrors writes into a byte slice. Used headless and in tests.
type MemorySink struct {
	Data     []byte
	Writes   []WriteOp
	Reallocs int
}

func NewMemorySink() *MemorySink { return &MemorySink{} }

func (s *MemorySink) Reserve(byteSize uint64) bool {
	if uint64(len(s.Data)) >= byteSize {
		return false
	}
	s.Data = make([]byte, byteSize)
	s.Reallocs++
	return true
}

func (s *MemorySink) Write(src []float32, srcByteOffset, dstByteOffset, byteLength uint64) {
	copy(s.Data[dstByteOffset:dstByteOffset+byteLength], floatBytes(src)[srcByteOffset:srcByteOffset+byteLength])
	s.Writes = append(s.Writes, WriteOp{SrcOffset: srcByteOffset, DstOffset: dstByteOffset, Length: byteLength})
}

// ResetWrites forgets recorded writes, keeping the mirrored data.
func (s *MemorySink) ResetWrites() { s.Writes = s.Writes[:0] }

// Floats views the mirrored data as float32s.
func (s *MemorySink) Floats() []float32 {
	if len(s.Data) < 4 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&s.Data[0])), len(s.Data)/4)
}

var (
	_ Sink = (*WgpuSink)(nil)
	_ Sink = (*MemorySink)(nil)
)
