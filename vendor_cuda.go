//go:build !dcu
// +build !dcu

package gudavision

// ActiveVendor returns the vendor runtime this binary was built for.
// Build with -tags dcu to select HIP.
func ActiveVendor() Vendor { return CUDA }
