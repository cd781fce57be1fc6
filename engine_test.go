package gudavision_test

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gv "github.com/LynnColeArt/gudavision"
	"github.com/LynnColeArt/gudavision/internal/gudatest"
)

// Test basic memory allocation and deallocation
func TestMemoryAllocation(t *testing.T) {
	e := gudatest.NewEngine(t)
	sizes := []int{100, 1000, 10000, 1000000}

	for _, size := range sizes {
		ptr, st := e.Malloc(size * 4)
		require.Equal(t, gv.Success, st, "allocate %d bytes", size*4)

		slice := ptr.Float32()
		require.Len(t, slice, size)
		for i := 0; i < min(100, size); i++ {
			slice[i] = float32(i)
		}
		for i := 0; i < min(100, size); i++ {
			assert.Equal(t, float32(i), slice[i], "memory corruption at index %d", i)
		}

		require.Equal(t, gv.Success, e.Free(ptr))
	}
}

func TestMallocInvalidAndLimit(t *testing.T) {
	e := gudatest.NewEngine(t, gv.WithMemoryLimit(4096))

	_, st := e.Malloc(0)
	assert.Equal(t, gv.ErrorInvalidValue, st)
	_, st = e.Malloc(-8)
	assert.Equal(t, gv.ErrorInvalidValue, st)

	_, st = e.Malloc(8192)
	assert.Equal(t, gv.ErrorMemoryAllocation, st)

	a, st := e.Malloc(4096)
	require.Equal(t, gv.Success, st)
	_, st = e.Malloc(64)
	assert.Equal(t, gv.ErrorMemoryAllocation, st, "pool is exhausted")

	require.Equal(t, gv.Success, e.Free(a))
	b, st := e.Malloc(2048)
	require.Equal(t, gv.Success, st, "freed block is reused")
	assert.Equal(t, gv.Success, e.Free(b))
}

func TestFreeNullAndTwice(t *testing.T) {
	e := gudatest.NewEngine(t)
	assert.Equal(t, gv.Success, e.Free(gv.DevicePtr{}))

	ptr, st := e.Malloc(256)
	require.Equal(t, gv.Success, st)
	assert.Equal(t, gv.Success, e.Free(ptr))
	assert.Equal(t, gv.ErrorInvalidDevicePointer, e.Free(ptr))
}

func TestMemoryStats(t *testing.T) {
	e := gudatest.NewEngine(t)
	ptr, _ := e.Malloc(1000)
	allocated, peak := e.MemoryStats()
	assert.Equal(t, int64(1024), allocated, "rounded up to alignment")
	assert.Equal(t, int64(1024), peak)

	e.Free(ptr)
	allocated, peak = e.MemoryStats()
	assert.Zero(t, allocated)
	assert.Equal(t, int64(1024), peak)
}

// Test memory copy operations
func TestMemcpy(t *testing.T) {
	const N = 1000
	e := gudatest.NewEngine(t)
	rng := rand.New(rand.NewSource(1))

	hSrc := make([]float32, N)
	hDst := make([]float32, N)
	for i := range hSrc {
		hSrc[i] = rng.Float32()
	}

	dSrc := gudatest.MallocOrFail(t, e, N*4)
	dDst := gudatest.MallocOrFail(t, e, N*4)

	gudatest.MemcpyOrFail(t, dSrc, hSrc, N*4, gv.MemcpyHostToDevice)
	gudatest.MemcpyOrFail(t, dDst, dSrc, N*4, gv.MemcpyDeviceToDevice)
	gudatest.MemcpyOrFail(t, hDst, dDst, N*4, gv.MemcpyDeviceToHost)
	assert.Equal(t, hSrc, hDst)

	err := gv.Memcpy(hDst, dSrc, N*8, gv.MemcpyDeviceToHost)
	assert.True(t, gv.IsInvalidArgError(err), "oversized copy: %v", err)
	err = gv.Memcpy(hDst, "nope", 4, gv.MemcpyDeviceToHost)
	assert.True(t, gv.IsInvalidArgError(err))
}

func TestMemcpyAsync(t *testing.T) {
	e := gudatest.NewEngine(t)
	src := gudatest.UploadFloat32(t, e, []float32{1, 2, 3, 4})
	dst := gudatest.MallocOrFail(t, e, 16)

	require.Equal(t, gv.Success, e.MemcpyAsync(nil, dst, src, 16, gv.MemcpyDeviceToDevice))
	gudatest.SynchronizeOrFail(t, e, nil)
	assert.Equal(t, []float32{1, 2, 3, 4}, dst.Float32())

	assert.Equal(t, gv.ErrorInvalidValue, e.MemcpyAsync(nil, dst, src, 32, gv.MemcpyDeviceToDevice))
	assert.Equal(t, gv.Success, e.MemcpyAsync(nil, dst, src, 0, gv.MemcpyDeviceToDevice))
}

// Test basic kernel launch
func TestKernelLaunch(t *testing.T) {
	const N = 10000
	e := gudatest.NewEngine(t)
	data := gudatest.MallocOrFail(t, e, N*4)
	slice := data.Float32()

	kernel := gv.KernelFunc(func(tid gv.ThreadID) {
		idx := tid.Global()
		if idx < N {
			slice[idx] = float32(idx)
		}
	})

	grid, block := gv.GridFor(N)
	require.Equal(t, gv.Success, e.LaunchKernel(nil, kernel, grid, block))
	gudatest.SynchronizeOrFail(t, e, nil)

	for i := 0; i < N; i++ {
		if slice[i] != float32(i) {
			t.Fatalf("slice[%d] = %f, want %d", i, slice[i], i)
		}
	}
}

func TestLaunchCoversEveryThreadOnce(t *testing.T) {
	e := gudatest.NewEngine(t, gv.WithWorkers(3))
	grid := gv.Dim3{X: 3, Y: 2, Z: 2}
	block := gv.Dim3{X: 4, Y: 2}
	total := grid.Size() * block.Size()

	hits := make([]int32, total)
	kernel := gv.KernelFunc(func(tid gv.ThreadID) {
		b := (tid.BlockIdx.Z*tid.GridDim.Y+tid.BlockIdx.Y)*tid.GridDim.X + tid.BlockIdx.X
		th := (tid.ThreadIdx.Z*tid.BlockDim.Y+tid.ThreadIdx.Y)*tid.BlockDim.X + tid.ThreadIdx.X
		atomic.AddInt32(&hits[b*block.Size()+th], 1)
	})
	require.Equal(t, gv.Success, e.LaunchKernel(nil, kernel, grid, block))
	gudatest.SynchronizeOrFail(t, e, nil)

	for i, h := range hits {
		assert.EqualValues(t, 1, h, "thread %d", i)
	}
}

func TestLaunchInvalidConfiguration(t *testing.T) {
	e := gudatest.NewEngine(t)
	noop := gv.KernelFunc(func(gv.ThreadID) {})

	tests := []struct {
		name        string
		grid, block gv.Dim3
	}{
		{"empty grid", gv.Dim3{}, gv.Dim3{X: 32}},
		{"empty block", gv.Dim3{X: 1}, gv.Dim3{}},
		{"negative", gv.Dim3{X: -1}, gv.Dim3{X: 32}},
		{"block too large", gv.Dim3{X: 1}, gv.Dim3{X: 64, Y: 32}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, gv.ErrorInvalidConfiguration, e.LaunchKernel(nil, noop, tt.grid, tt.block))
		})
	}
	assert.Equal(t, gv.ErrorInvalidValue, e.LaunchKernel(nil, nil, gv.Dim3{X: 1}, gv.Dim3{X: 1}))
}

func TestKernelPanicIsLaunchFailure(t *testing.T) {
	e := gudatest.NewEngine(t)
	kernel := gv.KernelFunc(func(tid gv.ThreadID) {
		if tid.Global() == 7 {
			panic("out of range")
		}
	})
	require.Equal(t, gv.Success, e.LaunchKernel(nil, kernel, gv.Dim3{X: 4}, gv.Dim3{X: 4}))

	st := e.StreamSynchronize(nil)
	assert.Equal(t, gv.ErrorLaunchFailure, st)
	assert.True(t, gv.IsExecutionError(st.Err("LaunchKernel")))

	assert.Equal(t, gv.Success, e.StreamSynchronize(nil), "error is cleared once reported")
}

func TestStreamFIFO(t *testing.T) {
	e := gudatest.NewEngine(t)
	s, st := e.StreamCreate()
	require.Equal(t, gv.Success, st)
	defer e.StreamDestroy(s)

	var (
		mu    sync.Mutex
		order []int
	)
	for i := 0; i < 50; i++ {
		i := i
		k := gv.KernelFunc(func(tid gv.ThreadID) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
		require.Equal(t, gv.Success, e.LaunchKernel(s, k, gv.Dim3{X: 1}, gv.Dim3{X: 1}))
	}
	gudatest.SynchronizeOrFail(t, e, s)

	require.Len(t, order, 50)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestEventOrdersStreams(t *testing.T) {
	e := gudatest.NewEngine(t)
	producer, _ := e.StreamCreate()
	consumer, _ := e.StreamCreate()
	defer e.StreamDestroy(producer)
	defer e.StreamDestroy(consumer)

	release := make(chan struct{})
	var produced atomic.Bool
	producer.Submit(func() {
		<-release
		produced.Store(true)
	})
	ev := producer.Record()
	assert.Equal(t, gv.ErrorNotReady, ev.Query())

	require.Equal(t, gv.Success, consumer.WaitEvent(ev))
	var sawProduced atomic.Bool
	consumer.Submit(func() { sawProduced.Store(produced.Load()) })

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, gv.ErrorNotReady, consumer.Query())

	close(release)
	gudatest.SynchronizeOrFail(t, e, consumer)
	assert.True(t, sawProduced.Load())
	assert.Equal(t, gv.Success, ev.Query())
}

func TestStreamDestroy(t *testing.T) {
	e := gudatest.NewEngine(t)
	s, _ := e.StreamCreate()

	var ran atomic.Bool
	s.Submit(func() { ran.Store(true) })
	require.Equal(t, gv.Success, e.StreamDestroy(s))
	assert.True(t, ran.Load(), "pending work drains before destroy")

	assert.Equal(t, gv.ErrorInvalidResourceHandle, s.Submit(func() {}))
	assert.Equal(t, gv.ErrorInvalidResourceHandle, e.StreamDestroy(s))
	assert.Equal(t, gv.ErrorInvalidResourceHandle, e.StreamDestroy(e.DefaultStream()))
	assert.Equal(t, gv.ErrorInvalidResourceHandle, e.StreamDestroy(nil))
}

func TestDeviceSynchronize(t *testing.T) {
	e := gudatest.NewEngine(t)
	s, _ := e.StreamCreate()
	defer e.StreamDestroy(s)

	var n atomic.Int32
	for i := 0; i < 4; i++ {
		s.Submit(func() { n.Add(1) })
		e.DefaultStream().Submit(func() { n.Add(1) })
	}
	assert.Equal(t, gv.Success, e.DeviceSynchronize())
	assert.EqualValues(t, 8, n.Load())
}

func TestMallocHost(t *testing.T) {
	e := gudatest.NewEngine(t)
	ptr, st := e.MallocHost(1 << 12)
	require.Equal(t, gv.Success, st)
	require.False(t, ptr.IsNil())

	b := ptr.Byte()
	for i := range b {
		b[i] = byte(i)
	}
	assert.Equal(t, byte(255), b[255])

	assert.Equal(t, gv.Success, e.FreeHost(ptr))
	assert.Equal(t, gv.ErrorInvalidDevicePointer, e.FreeHost(ptr))
	assert.Equal(t, gv.Success, e.FreeHost(gv.DevicePtr{}))

	_, st = e.MallocHost(0)
	assert.Equal(t, gv.ErrorInvalidValue, st)
}

func TestDeviceGetAttribute(t *testing.T) {
	e := gudatest.NewEngine(t)

	sm, st := e.DeviceGetAttribute(gv.AttrMultiProcessorCount)
	require.Equal(t, gv.Success, st)
	assert.Equal(t, e.Device().NumCores, sm)

	threads, st := e.DeviceGetAttribute(gv.AttrMaxThreadsPerMultiProcessor)
	require.Equal(t, gv.Success, st)
	assert.Equal(t, gv.MaxThreadsPerBlock, threads)

	_, st = e.DeviceGetAttribute(gv.Attribute(42))
	assert.Equal(t, gv.ErrorInvalidValue, st)
}

func TestEngineOptions(t *testing.T) {
	e := gudatest.NewEngine(t, gv.WithVendor(gv.HIP), gv.WithDeviceName("dcu0"))
	assert.Equal(t, gv.HIP, e.Vendor())
	assert.Equal(t, "dcu0", e.Device().Name)
}

func TestGridFor(t *testing.T) {
	for _, n := range []int{1, 255, 256, 257, 100000} {
		grid, block := gv.GridFor(n)
		assert.GreaterOrEqual(t, grid.Size()*block.Size(), n)
		assert.Less(t, (grid.Size()-1)*block.Size(), n)
	}
}
