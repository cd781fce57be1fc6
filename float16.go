package gudavision

import (
	"math"
)

// Half represents a 16-bit IEEE 754 half precision number
type Half uint16

// Half conversion constants
const (
	float16SignMask     = 0x8000
	float16ExponentMask = 0x7C00
	float16MantissaMask = 0x03FF
	float16ExponentBias = 15
	float16MantissaBits = 10
)

// ToFloat32 converts Half to float32. The conversion is exact.
func (f Half) ToFloat32() float32 {
	sign := uint32(f&float16SignMask) << 16
	exponent := uint32(f&float16ExponentMask) >> float16MantissaBits
	mantissa := uint32(f & float16MantissaMask)

	switch exponent {
	case 0:
		// Zero or subnormal: mantissa * 2^-24
		v := float32(mantissa) * (1.0 / (1 << 24))
		if sign != 0 {
			return -v
		}
		return v
	case 0x1F:
		if mantissa == 0 {
			return math.Float32frombits(sign | 0x7F800000) // Infinity
		}
		return math.Float32frombits(sign | 0x7FC00000 | (mantissa << 13)) // NaN
	}

	return math.Float32frombits(sign | ((exponent + 127 - float16ExponentBias) << 23) | (mantissa << 13))
}

// FromFloat32 converts float32 to Half with round-to-nearest-even.
func FromFloat32(f float32) Half {
	bits := math.Float32bits(f)
	sign := uint16((bits >> 16) & float16SignMask)
	exponent := int((bits >> 23) & 0xFF)
	mantissa := bits & 0x7FFFFF

	if exponent == 0xFF {
		if mantissa == 0 {
			return Half(sign | float16ExponentMask) // Infinity
		}
		return Half(sign | float16ExponentMask | 0x200 | uint16(mantissa>>13)) // quiet NaN
	}

	exp := exponent - 127 + float16ExponentBias
	if exp >= 0x1F {
		return Half(sign | float16ExponentMask)
	}

	if exp <= 0 {
		// Subnormal half or underflow to signed zero
		if exp < -10 {
			return Half(sign)
		}
		mantissa |= 0x800000
		shift := uint32(14 - exp)
		half := mantissa >> shift
		rem := mantissa & (1<<shift - 1)
		mid := uint32(1) << (shift - 1)
		if rem > mid || (rem == mid && half&1 == 1) {
			half++
		}
		return Half(sign | uint16(half))
	}

	half := uint32(exp)<<float16MantissaBits | mantissa>>13
	rem := mantissa & 0x1FFF
	// A carry out of the mantissa bumps the exponent, rounding up to Inf at the top.
	if rem > 0x1000 || (rem == 0x1000 && half&1 == 1) {
		half++
	}
	return Half(sign | uint16(half))
}

// Float16Slice wraps a byte slice as little-endian Half values
type Float16Slice struct {
	data []byte
}

// NewFloat16Slice creates a Half slice from a byte slice
func NewFloat16Slice(data []byte) Float16Slice {
	return Float16Slice{data: data}
}

// Len returns the number of Half elements
func (s Float16Slice) Len() int {
	return len(s.data) / 2
}

// Get returns the Half at index i
func (s Float16Slice) Get(i int) Half {
	return Half(uint16(s.data[i*2]) | (uint16(s.data[i*2+1]) << 8))
}

// Set sets the Half at index i
func (s Float16Slice) Set(i int, val Half) {
	s.data[i*2] = byte(val)
	s.data[i*2+1] = byte(val >> 8)
}

// GetFloat32 returns the value at index i as float32
func (s Float16Slice) GetFloat32(i int) float32 {
	return s.Get(i).ToFloat32()
}

// SetFloat32 sets the value at index i from float32
func (s Float16Slice) SetFloat32(i int, val float32) {
	s.Set(i, FromFloat32(val))
}

// Float16 returns a Half slice view of the memory
func (d DevicePtr) Float16() Float16Slice {
	if d.ptr == nil {
		return Float16Slice{}
	}
	return NewFloat16Slice(d.Byte())
}
