package allocator

import (
	"fmt"
	"sync"

	gv "github.com/LynnColeArt/gudavision"
)

// Buffer is a scoped region that remembers its allocator, so release is
// always routed to the Free of the class it was allocated from.
type Buffer struct {
	alloc Allocator
	ptr   gv.DevicePtr
	once  sync.Once
}

// Acquire allocates size bytes from a. The error is a gudavision memory
// error whose Op is the allocation call of the class, wrapping
// gv.ErrOutOfMemory.
func Acquire(a Allocator, size int) (*Buffer, error) {
	ptr, ok := a.TryAllocate(size)
	if !ok {
		return nil, gv.NewMemoryError(a.call(),
			fmt.Sprintf("%s: cannot allocate %d bytes", a.class, size), gv.ErrOutOfMemory)
	}
	return &Buffer{alloc: a, ptr: ptr}, nil
}

// Ptr returns the region. It is null after Release.
func (b *Buffer) Ptr() gv.DevicePtr {
	return b.ptr
}

// Class returns the memory class the buffer was allocated from.
func (b *Buffer) Class() gv.MemoryClass { return b.alloc.class }

// View returns a non-owning tensor view over the buffer.
func (b *Buffer) View(dtype gv.DType, shape ...int64) gv.TensorView {
	return gv.TensorView{Ptr: b.ptr, Shape: shape, DType: dtype, Class: b.alloc.class}
}

// Release frees the region. Calling it more than once is safe.
func (b *Buffer) Release() {
	b.once.Do(func() {
		b.alloc.Free(b.ptr)
		b.ptr = gv.DevicePtr{}
	})
}
