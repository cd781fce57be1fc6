//go:build gudacheck
// +build gudacheck

package gudavision

import "fmt"

const checksEnabled = true

// Assertf panics when cond is false. Kernels use it for shape checks that
// callers are expected to have done already.
func Assertf(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf("gudavision: assertion failed: "+format, args...))
	}
}
