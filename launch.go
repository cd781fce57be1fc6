package gudavision

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// LaunchKernel implements Runtime. The grid is validated and enqueued on
// stream (the default stream when nil); the call returns immediately.
func (e *Engine) LaunchKernel(stream *Stream, kernel Kernel, grid, block Dim3) Status {
	if kernel == nil {
		return ErrorInvalidValue
	}
	grid, block = grid.normalize(), block.normalize()
	if !grid.valid() || !block.valid() || block.Size() > MaxThreadsPerBlock {
		e.log.Debug("invalid launch configuration",
			zap.String("call", e.vendor.Dispatch("LaunchKernel")),
			zap.Any("grid", grid), zap.Any("block", block))
		return ErrorInvalidConfiguration
	}
	s := e.stream(stream)
	return s.Submit(func() {
		e.launchInternal(s, kernel, grid, block)
	})
}

// launchInternal implements the core kernel execution logic
func (e *Engine) launchInternal(s *Stream, kernel Kernel, grid, block Dim3) {
	gridSize := grid.Size()
	blockSize := block.Size()

	numWorkers := e.workers
	if gridSize < numWorkers {
		numWorkers = gridSize
	}

	// Cache-aware scheduling: each worker processes a contiguous run of
	// blocks to maximize cache reuse
	blocksPerWorker := (gridSize + numWorkers - 1) / numWorkers

	var (
		wg       sync.WaitGroup
		failOnce sync.Once
	)
	wg.Add(numWorkers)

	for workerID := 0; workerID < numWorkers; workerID++ {
		startBlock := workerID * blocksPerWorker
		endBlock := startBlock + blocksPerWorker
		if endBlock > gridSize {
			endBlock = gridSize
		}

		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					failOnce.Do(func() {
						e.log.Error("kernel fault",
							zap.Int("stream", s.id),
							zap.String("panic", fmt.Sprint(r)))
						s.fail(ErrorLaunchFailure)
					})
				}
			}()

			for blockID := startBlock; blockID < endBlock; blockID++ {
				blockIdx := linearTo3D(blockID, grid)

				// Threads of a block run sequentially on one goroutine
				for threadID := 0; threadID < blockSize; threadID++ {
					kernel.Execute(ThreadID{
						BlockIdx:  blockIdx,
						ThreadIdx: linearTo3D(threadID, block),
						BlockDim:  block,
						GridDim:   grid,
					})
				}
			}
		}()
	}

	wg.Wait()
}

// linearTo3D converts a linear index to 3D coordinates
func linearTo3D(linear int, dim Dim3) Dim3 {
	z := linear / (dim.X * dim.Y)
	y := (linear % (dim.X * dim.Y)) / dim.X
	x := linear % dim.X
	return Dim3{X: x, Y: y, Z: z}
}
