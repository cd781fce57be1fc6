package gudavision

// Runtime is the vendor runtime contract every kernel and allocator is
// written against. Each method mirrors one vendor entry point, named by
// Vendor().Dispatch of the method name, and reports a Status instead of
// raising.
//
// Launches and async copies only enqueue work on a stream; results are
// visible after StreamSynchronize (or an Event) on that stream.
type Runtime interface {
	Vendor() Vendor

	Malloc(size int) (DevicePtr, Status)
	Free(ptr DevicePtr) Status
	MallocHost(size int) (DevicePtr, Status)
	FreeHost(ptr DevicePtr) Status
	MemcpyAsync(stream *Stream, dst, src DevicePtr, size int, kind MemcpyKind) Status

	DeviceGetAttribute(attr Attribute) (int, Status)

	StreamCreate() (*Stream, Status)
	StreamDestroy(stream *Stream) Status
	LaunchKernel(stream *Stream, kernel Kernel, grid, block Dim3) Status
	StreamSynchronize(stream *Stream) Status
	DeviceSynchronize() Status
}

// Kernel represents a compute kernel that can be executed in parallel.
// Implementations should be thread-safe as Execute will be called
// concurrently from multiple threads.
type Kernel interface {
	Execute(tid ThreadID)
}

// KernelFunc adapts a function to Kernel.
type KernelFunc func(tid ThreadID)

// Execute implements Kernel.
func (fn KernelFunc) Execute(tid ThreadID) {
	fn(tid)
}

// Dim3 represents 3D dimensions for grid and block configurations.
// Zero Y or Z components are treated as 1, as with CUDA's dim3.
type Dim3 struct {
	X, Y, Z int
}

// Size returns the total number of elements
func (d Dim3) Size() int {
	d = d.normalize()
	return d.X * d.Y * d.Z
}

func (d Dim3) normalize() Dim3 {
	if d.Y == 0 {
		d.Y = 1
	}
	if d.Z == 0 {
		d.Z = 1
	}
	return d
}

func (d Dim3) valid() bool {
	return d.X > 0 && d.Y > 0 && d.Z > 0
}

// ThreadID identifies a thread's position within the execution hierarchy.
// It provides the same indexing semantics as CUDA's built-in variables:
// blockIdx, threadIdx, blockDim, and gridDim.
type ThreadID struct {
	BlockIdx  Dim3 // Block index within the grid
	ThreadIdx Dim3 // Thread index within the block
	BlockDim  Dim3 // Dimensions of the block
	GridDim   Dim3 // Dimensions of the grid
}

// Global returns the global thread index along X
func (tid ThreadID) Global() int {
	return tid.BlockIdx.X*tid.BlockDim.X + tid.ThreadIdx.X
}

// GlobalX returns the global X index
func (tid ThreadID) GlobalX() int {
	return tid.BlockIdx.X*tid.BlockDim.X + tid.ThreadIdx.X
}

// GlobalY returns the global Y index
func (tid ThreadID) GlobalY() int {
	return tid.BlockIdx.Y*tid.BlockDim.Y + tid.ThreadIdx.Y
}

// GlobalZ returns the global Z index
func (tid ThreadID) GlobalZ() int {
	return tid.BlockIdx.Z*tid.BlockDim.Z + tid.ThreadIdx.Z
}
