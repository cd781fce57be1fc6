// Package gudavision configuration constants
package gudavision

// Cache sizes used to report device attributes (in bytes)
const (
	// L1 cache size per core (typical for modern CPUs)
	L1CacheSize = 32 * 1024 // 32KB

	// L2 cache size per core, reported as opt-in shared memory per block
	L2CacheSize = 256 * 1024 // 256KB
)

// Thread and block dimensions
const (
	// Default block size for 1D kernels
	DefaultBlockSize = 256

	// Maximum threads per block (CUDA compatibility)
	MaxThreadsPerBlock = 1024
)

// Memory pool parameters
const (
	// Memory alignment for device allocations
	MemoryAlignment = 64

	// Default device memory capacity of an Engine
	DefaultDeviceMemory = 16 * 1024 * 1024 * 1024 // 16GB
)

// Stream parameters
const (
	// Pending tasks a stream buffers before Submit blocks
	DefaultStreamQueueDepth = 1000
)

// GridFor returns the 1D grid and block covering n threads with the
// default block size.
func GridFor(n int) (grid, block Dim3) {
	blocks := (n + DefaultBlockSize - 1) / DefaultBlockSize
	if blocks == 0 {
		blocks = 1
	}
	return Dim3{X: blocks, Y: 1, Z: 1}, Dim3{X: DefaultBlockSize, Y: 1, Z: 1}
}
