// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gudavision provides the vendor-neutral GPU runtime layer used by
// the vision kernels of an inference-deployment toolkit.
//
// The package has three parts:
//   - the backend selector: two vendor tables (CUDA and HIP/DCU), one of
//     which is made active by build tags, mapping neutral runtime tokens,
//     attribute aliases and status codes to vendor symbols
//   - the Runtime contract every kernel is written against
//   - Engine, a Runtime that executes grids of thread blocks on the host CPU
//     with CUDA stream semantics
//
// Kernel launches are explicitly asynchronous. A launch enqueues work on a
// Stream and returns; Stream.Synchronize blocks until the stream drains.
//
// Example usage:
//
//	rt := gudavision.NewEngine()
//	defer rt.Destroy()
//
//	stream, _ := rt.StreamCreate()
//	d, st := rt.Malloc(n * 4)
//	if st != gudavision.Success {
//		return st.Err("Malloc")
//	}
//	defer rt.Free(d)
//
//	grid := gudavision.Dim3{X: (n + 255) / 256, Y: 1, Z: 1}
//	block := gudavision.Dim3{X: 256, Y: 1, Z: 1}
//	rt.LaunchKernel(stream, myKernel, grid, block)
//	stream.Synchronize()
package gudavision
