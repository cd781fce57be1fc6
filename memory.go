package gudavision

import (
	"fmt"
	"sync"
	"unsafe"
)

// MemcpyKind specifies the direction of memory transfer.
// On the host engine all memory is CPU-addressable, so the kinds only
// document intent; real drivers route them to different copy engines.
type MemcpyKind int

const (
	MemcpyHostToHost     MemcpyKind = iota // Host to host transfer
	MemcpyHostToDevice                     // Host to device transfer
	MemcpyDeviceToHost                     // Device to host transfer
	MemcpyDeviceToDevice                   // Device to device transfer
	MemcpyDefault                          // Default transfer (infer direction)
)

// DevicePtr represents a pointer to a raw memory region of a known size.
// The zero value is the null pointer. Use the typed views (Float32,
// Uint8, ...) to access the memory from kernels.
type DevicePtr struct {
	ptr  unsafe.Pointer
	size int
}

// NewDevicePtr wraps a raw region. It is meant for allocator
// implementations; kernels receive DevicePtrs from a Runtime.
func NewDevicePtr(p unsafe.Pointer, size int) DevicePtr {
	if p == nil {
		return DevicePtr{}
	}
	return DevicePtr{ptr: p, size: size}
}

// IsNil reports whether d is the null pointer.
func (d DevicePtr) IsNil() bool { return d.ptr == nil }

// Pointer returns the raw address.
func (d DevicePtr) Pointer() unsafe.Pointer { return d.ptr }

// Size returns the size in bytes of the memory region
func (d DevicePtr) Size() int {
	return d.size
}

func (d DevicePtr) String() string {
	return fmt.Sprintf("%p+%d", d.ptr, d.size)
}

// Offset returns a new DevicePtr offset by the given number of bytes.
// The returned DevicePtr shares the same underlying memory.
//
// Example:
//
//	d_array, _ := rt.Malloc(1024 * 4) // 1024 float32s
//	d_second_half := d_array.Offset(512 * 4)
func (d DevicePtr) Offset(bytes int) DevicePtr {
	if d.ptr == nil {
		return DevicePtr{}
	}
	return DevicePtr{
		ptr:  unsafe.Add(d.ptr, bytes),
		size: d.size - bytes,
	}
}

// Float32 returns a float32 slice view of the memory.
func (d DevicePtr) Float32() []float32 {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*float32)(d.ptr), d.size/4)
}

// Int64 returns an int64 slice view of the memory.
func (d DevicePtr) Int64() []int64 {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*int64)(d.ptr), d.size/8)
}

// Uint64 returns a uint64 slice view of the memory.
func (d DevicePtr) Uint64() []uint64 {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*uint64)(d.ptr), d.size/8)
}

// Uint8 returns a uint8 slice view of the memory.
func (d DevicePtr) Uint8() []uint8 {
	return d.Byte()
}

// Byte returns a byte slice view covering the entire region.
func (d DevicePtr) Byte() []byte {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*byte)(d.ptr), d.size)
}

// MemoryPool manages device memory allocation with efficient reuse.
// It maintains a free list of previously allocated blocks to reduce
// allocation overhead, and refuses allocations beyond its capacity.
type MemoryPool struct {
	mu         sync.Mutex
	allocated  map[uintptr]*allocation
	freeList   []*allocation
	capacity   int64
	reserved   int64 // bytes backing allocated blocks, free or not
	totalAlloc int64
	peakAlloc  int64
}

type allocation struct {
	buf  []byte
	size int
	used bool
}

// NewMemoryPool creates a pool that hands out at most capacity bytes.
// A non-positive capacity means DefaultDeviceMemory.
func NewMemoryPool(capacity int64) *MemoryPool {
	if capacity <= 0 {
		capacity = DefaultDeviceMemory
	}
	return &MemoryPool{
		allocated: make(map[uintptr]*allocation),
		capacity:  capacity,
	}
}

// Allocate allocates memory from the pool
func (mp *MemoryPool) Allocate(size int) (DevicePtr, Status) {
	if size <= 0 {
		return DevicePtr{}, ErrorInvalidValue
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	// Round up to alignment
	alignedSize := (size + MemoryAlignment - 1) &^ (MemoryAlignment - 1)

	// Try to reuse from free list
	for i, alloc := range mp.freeList {
		if alloc.size >= alignedSize {
			mp.freeList = append(mp.freeList[:i], mp.freeList[i+1:]...)
			alloc.used = true
			mp.track(int64(alloc.size))
			return DevicePtr{ptr: unsafe.Pointer(&alloc.buf[0]), size: size}, Success
		}
	}

	// Drop cached blocks before giving up on capacity
	for mp.reserved+int64(alignedSize) > mp.capacity && len(mp.freeList) > 0 {
		last := mp.freeList[len(mp.freeList)-1]
		mp.freeList = mp.freeList[:len(mp.freeList)-1]
		delete(mp.allocated, uintptr(unsafe.Pointer(&last.buf[0])))
		mp.reserved -= int64(last.size)
	}
	if mp.reserved+int64(alignedSize) > mp.capacity {
		return DevicePtr{}, ErrorMemoryAllocation
	}

	// Over-allocate so the region can start on an aligned address
	raw := make([]byte, alignedSize+MemoryAlignment)
	off := int(MemoryAlignment - uintptr(unsafe.Pointer(&raw[0]))%MemoryAlignment)
	if off == MemoryAlignment {
		off = 0
	}
	alloc := &allocation{
		buf:  raw[off : off+alignedSize : off+alignedSize],
		size: alignedSize,
		used: true,
	}
	p := unsafe.Pointer(&alloc.buf[0])
	mp.allocated[uintptr(p)] = alloc
	mp.reserved += int64(alignedSize)
	mp.track(int64(alignedSize))

	return DevicePtr{ptr: p, size: size}, Success
}

func (mp *MemoryPool) track(n int64) {
	mp.totalAlloc += n
	if mp.totalAlloc > mp.peakAlloc {
		mp.peakAlloc = mp.totalAlloc
	}
}

// Free returns memory to the pool
func (mp *MemoryPool) Free(ptr DevicePtr) Status {
	if ptr.ptr == nil {
		return Success
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	alloc, ok := mp.allocated[uintptr(ptr.ptr)]
	if !ok || !alloc.used {
		return ErrorInvalidDevicePointer
	}

	alloc.used = false
	mp.freeList = append(mp.freeList, alloc)
	mp.totalAlloc -= int64(alloc.size)

	return Success
}

// Owns reports whether ptr is a live allocation of this pool.
func (mp *MemoryPool) Owns(ptr DevicePtr) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	alloc, ok := mp.allocated[uintptr(ptr.ptr)]
	return ok && alloc.used
}

// GetStats returns memory pool statistics
func (mp *MemoryPool) GetStats() (allocated, peak int64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.totalAlloc, mp.peakAlloc
}

// Memcpy copies size bytes between DevicePtrs and Go slices.
// Supported operands are DevicePtr, []byte, []float32, []int64 and []uint64.
func Memcpy(dst, src interface{}, size int, kind MemcpyKind) error {
	dstBytes, err := asBytes("Memcpy", dst)
	if err != nil {
		return err
	}
	srcBytes, err := asBytes("Memcpy", src)
	if err != nil {
		return err
	}
	if size < 0 || size > len(dstBytes) || size > len(srcBytes) {
		return NewInvalidArgError("Memcpy",
			fmt.Sprintf("size %d exceeds operands (dst %d, src %d)", size, len(dstBytes), len(srcBytes)))
	}
	copy(dstBytes[:size], srcBytes[:size])
	return nil
}

func asBytes(op string, v interface{}) ([]byte, error) {
	switch d := v.(type) {
	case DevicePtr:
		return d.Byte(), nil
	case []byte:
		return d, nil
	case []float32:
		if len(d) == 0 {
			return nil, nil
		}
		return unsafe.Slice((*byte)(unsafe.Pointer(&d[0])), len(d)*4), nil
	case []int64:
		if len(d) == 0 {
			return nil, nil
		}
		return unsafe.Slice((*byte)(unsafe.Pointer(&d[0])), len(d)*8), nil
	case []uint64:
		if len(d) == 0 {
			return nil, nil
		}
		return unsafe.Slice((*byte)(unsafe.Pointer(&d[0])), len(d)*8), nil
	default:
		return nil, NewInvalidArgError(op, fmt.Sprintf("unsupported operand type: %T", v))
	}
}
