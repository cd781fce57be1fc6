//go:build !gudacheck
// +build !gudacheck

package gudavision

const checksEnabled = false

// Assertf is a no-op without the gudacheck build tag.
func Assertf(cond bool, format string, args ...interface{}) {}
