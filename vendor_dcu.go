//go:build dcu
// +build dcu

package gudavision

// ActiveVendor returns the vendor runtime this binary was built for.
func ActiveVendor() Vendor { return HIP }
