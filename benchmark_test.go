package gudavision_test

import (
	"fmt"
	"testing"

	gv "github.com/LynnColeArt/gudavision"
	"github.com/LynnColeArt/gudavision/internal/gudatest"
)

// Benchmark memory bandwidth
func BenchmarkMemoryBandwidth(b *testing.B) {
	e := gudatest.NewEngine(b)
	sizes := []int{
		1 << 10,        // 1KB
		gv.L1CacheSize, // 32KB
		gv.L2CacheSize, // 256KB
		1 << 26,        // 64MB
	}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("Copy_%s", formatBytes(size)), func(b *testing.B) {
			src := gudatest.MallocOrFail(b, e, size)
			dst := gudatest.MallocOrFail(b, e, size)

			b.SetBytes(int64(size * 2)) // Read + Write
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				e.MemcpyAsync(nil, dst, src, size, gv.MemcpyDeviceToDevice)
			}
			e.StreamSynchronize(nil)
		})
	}
}

// Benchmark the fixed cost of a launch plus synchronize
func BenchmarkLaunchLatency(b *testing.B) {
	e := gudatest.NewEngine(b)
	noop := gv.KernelFunc(func(gv.ThreadID) {})
	for _, blocks := range []int{1, 64, 4096} {
		b.Run(fmt.Sprintf("Blocks_%d", blocks), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				e.LaunchKernel(nil, noop, gv.Dim3{X: blocks}, gv.Dim3{X: gv.DefaultBlockSize})
				e.StreamSynchronize(nil)
			}
		})
	}
}

// Benchmark device pool churn, the pattern of per-call kernel workspaces
func BenchmarkMallocFree(b *testing.B) {
	e := gudatest.NewEngine(b)
	for _, size := range []int{256, 1 << 16, 1 << 22} {
		b.Run(formatBytes(size), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				p, _ := e.Malloc(size)
				e.Free(p)
			}
		})
	}
}

func formatBytes(bytes int) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%dB", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%d%cB", bytes/int(div), "KMGTPE"[exp])
}
