package allocator_test

import (
	"errors"
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gv "github.com/LynnColeArt/gudavision"
	"github.com/LynnColeArt/gudavision/allocator"
	"github.com/LynnColeArt/gudavision/internal/gudatest"
)

// failingRuntime refuses every allocation.
type failingRuntime struct {
	gv.Runtime
	frees int
}

func (failingRuntime) Vendor() gv.Vendor { return gv.ActiveVendor() }

func (failingRuntime) Malloc(int) (gv.DevicePtr, gv.Status) {
	return gv.DevicePtr{}, gv.ErrorMemoryAllocation
}

func (failingRuntime) MallocHost(int) (gv.DevicePtr, gv.Status) {
	return gv.DevicePtr{}, gv.ErrorMemoryAllocation
}

func (r *failingRuntime) Free(gv.DevicePtr) gv.Status {
	r.frees++
	return gv.ErrorInvalidDevicePointer
}

func TestTryAllocateEveryClass(t *testing.T) {
	e := gudatest.NewEngine(t)
	for _, class := range []gv.MemoryClass{gv.Host, gv.Device, gv.DeviceHost} {
		t.Run(class.String(), func(t *testing.T) {
			a := allocator.For(class, e)
			require.Equal(t, class, a.Class())

			ptr, ok := a.TryAllocate(4096)
			require.True(t, ok)
			require.False(t, ptr.IsNil())
			require.GreaterOrEqual(t, ptr.Size(), 4096)

			b := ptr.Byte()
			b[0], b[4095] = 1, 2
			assert.Equal(t, byte(2), b[4095])

			a.Free(ptr)
			a.Free(ptr) // second release is ignored
			a.Free(gv.DevicePtr{})
		})
	}
}

func TestTryAllocateRejectsNonPositive(t *testing.T) {
	e := gudatest.NewEngine(t)
	for _, a := range []allocator.Allocator{allocator.Host(), allocator.Device(e), allocator.DeviceHost(e)} {
		_, ok := a.TryAllocate(0)
		assert.False(t, ok, a.String())
		_, ok = a.TryAllocate(-1)
		assert.False(t, ok, a.String())
	}
}

func TestHostExhaustionReportsFalse(t *testing.T) {
	if bits.UintSize < 64 {
		t.Skip("needs a 64-bit address space")
	}
	_, ok := allocator.Host().TryAllocate(1 << 50)
	assert.False(t, ok)
}

func TestDeviceExhaustionReportsFalse(t *testing.T) {
	e := gudatest.NewEngine(t, gv.WithMemoryLimit(1<<16))
	a := allocator.Device(e)

	ptr, ok := a.TryAllocate(1 << 16)
	require.True(t, ok)
	_, ok = a.TryAllocate(1)
	assert.False(t, ok)

	a.Free(ptr)
	ptr, ok = a.TryAllocate(1 << 10)
	assert.True(t, ok)
	a.Free(ptr)
}

func TestRuntimeFailureReportsFalse(t *testing.T) {
	rt := &failingRuntime{}
	for _, a := range []allocator.Allocator{allocator.Device(rt), allocator.DeviceHost(rt)} {
		ptr, ok := a.TryAllocate(64)
		assert.False(t, ok)
		assert.True(t, ptr.IsNil())
	}

	allocator.Device(rt).Free(gv.DevicePtr{})
	assert.Zero(t, rt.frees, "null is never passed to the runtime")

	_, ok := allocator.Device(nil).TryAllocate(64)
	assert.False(t, ok)
}

func TestBuffer(t *testing.T) {
	e := gudatest.NewEngine(t)
	buf, err := allocator.Acquire(allocator.Device(e), 6*4)
	require.NoError(t, err)
	assert.Equal(t, gv.Device, buf.Class())

	v := buf.View(gv.Float32, 2, 3)
	assert.EqualValues(t, 6, v.NumElements())
	assert.EqualValues(t, 24, v.Bytes())
	assert.Equal(t, gv.Device, v.Class)

	allocated, _ := e.MemoryStats()
	assert.Positive(t, allocated)

	buf.Release()
	buf.Release()
	assert.True(t, buf.Ptr().IsNil())
	allocated, _ = e.MemoryStats()
	assert.Zero(t, allocated)
}

func TestAcquireFailure(t *testing.T) {
	rt := &failingRuntime{}
	v := gv.ActiveVendor()
	tests := []struct {
		name   string
		alloc  allocator.Allocator
		size   int
		wantOp string
	}{
		{"device", allocator.Device(rt), 64, v.Dispatch("Malloc")},
		{"device-host", allocator.DeviceHost(rt), 64, v.Dispatch("MallocHost")},
		{"host", allocator.Host(), 1 << 50, "mmap"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := allocator.Acquire(tt.alloc, tt.size)
			require.Error(t, err)
			assert.True(t, gv.IsMemoryError(err))
			assert.ErrorIs(t, err, gv.ErrOutOfMemory)

			var e *gv.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tt.wantOp, e.Op)
			assert.Contains(t, e.Message, tt.name+":")
			assert.NotContains(t, err.Error(), "in Malloc:", "cause must not name a class")
		})
	}
}
