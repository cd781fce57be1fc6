// Package gudatest holds the helpers shared by the package tests: engine
// setup with cleanup, must-succeed wrappers around runtime calls and
// tolerance-based float comparison.
package gudatest

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/zap/zaptest"
	"gonum.org/v1/gonum/floats/scalar"

	gv "github.com/LynnColeArt/gudavision"
)

// NewEngine creates an engine logging to the test log and destroys it
// when the test ends.
func NewEngine(t testing.TB, opts ...gv.Option) *gv.Engine {
	t.Helper()
	opts = append([]gv.Option{gv.WithLogger(zaptest.NewLogger(t))}, opts...)
	e := gv.NewEngine(opts...)
	t.Cleanup(e.Destroy)
	return e
}

// MallocOrFail allocates device memory and fails the test if unsuccessful.
// The region is freed when the test ends.
func MallocOrFail(t testing.TB, rt gv.Runtime, size int) gv.DevicePtr {
	t.Helper()
	ptr, st := rt.Malloc(size)
	if st != gv.Success {
		t.Fatalf("Failed to allocate %d bytes: %v", size, st)
	}
	t.Cleanup(func() { rt.Free(ptr) })
	return ptr
}

// UploadFloat32 allocates a device buffer holding data.
func UploadFloat32(t testing.TB, rt gv.Runtime, data []float32) gv.DevicePtr {
	t.Helper()
	ptr := MallocOrFail(t, rt, len(data)*4)
	MemcpyOrFail(t, ptr, data, len(data)*4, gv.MemcpyHostToDevice)
	return ptr
}

// UploadUint8 allocates a device buffer holding data.
func UploadUint8(t testing.TB, rt gv.Runtime, data []uint8) gv.DevicePtr {
	t.Helper()
	ptr := MallocOrFail(t, rt, len(data))
	MemcpyOrFail(t, ptr, data, len(data), gv.MemcpyHostToDevice)
	return ptr
}

// MemcpyOrFail copies data and fails the test if unsuccessful
func MemcpyOrFail(t testing.TB, dst, src interface{}, size int, kind gv.MemcpyKind) {
	t.Helper()
	if err := gv.Memcpy(dst, src, size, kind); err != nil {
		t.Fatalf("Memcpy failed: %v", err)
	}
}

// SynchronizeOrFail synchronizes stream and fails the test if unsuccessful
func SynchronizeOrFail(t testing.TB, rt gv.Runtime, stream *gv.Stream) {
	t.Helper()
	if st := rt.StreamSynchronize(stream); st != gv.Success {
		t.Fatalf("Synchronize failed: %v", st)
	}
}

// Tolerance defines tolerance parameters for floating-point comparison
type Tolerance struct {
	Abs float64 // for values near zero
	Rel float64 // fraction of the larger magnitude
}

// DefaultTolerance suits single kernels with a handful of float32 ops.
func DefaultTolerance() Tolerance { return Tolerance{Abs: 1e-6, Rel: 1e-5} }

// RelaxedTolerance suits accumulations and float16 round trips.
func RelaxedTolerance() Tolerance { return Tolerance{Abs: 1e-3, Rel: 1e-3} }

// NearEqual reports whether a and b agree within tol. NaNs compare equal
// to each other.
func NearEqual(a, b float32, tol Tolerance) bool {
	if math.IsNaN(float64(a)) && math.IsNaN(float64(b)) {
		return true
	}
	return scalar.EqualWithinAbsOrRel(float64(a), float64(b), tol.Abs, tol.Rel)
}

// AssertClose fails the test with a diff when got and want differ beyond tol.
func AssertClose(t testing.TB, want, got []float32, tol Tolerance) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(tol.Rel, tol.Abs), cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("values differ beyond tolerance (-want +got):\n%s", diff)
	}
}
