package gudavision

import (
	"fmt"
	"strings"
)

// DType is the element type tag of a buffer.
type DType int

const (
	Float32 DType = iota
	Float16
	Uint8
	Int64
)

// ParseDType accepts the dtype tags used across the toolkit.
func ParseDType(tag string) (DType, error) {
	switch strings.ToLower(tag) {
	case "float", "float32", "fp32":
		return Float32, nil
	case "half", "float16", "fp16":
		return Float16, nil
	case "uint8", "u8":
		return Uint8, nil
	case "int64", "i64":
		return Int64, nil
	}
	return 0, NewInvalidArgError("ParseDType", fmt.Sprintf("unknown dtype %q", tag))
}

// Size returns the element size in bytes.
func (t DType) Size() int {
	switch t {
	case Float32:
		return 4
	case Float16:
		return 2
	case Uint8:
		return 1
	case Int64:
		return 8
	}
	return 0
}

func (t DType) String() string {
	switch t {
	case Float32:
		return "float32"
	case Float16:
		return "float16"
	case Uint8:
		return "uint8"
	case Int64:
		return "int64"
	}
	return fmt.Sprintf("DType(%d)", int(t))
}

// MemoryClass says which allocator family a region came from. A region
// must be released through the Free of the same class.
type MemoryClass int

const (
	Host MemoryClass = iota
	Device
	DeviceHost // pinned host memory registered with the runtime
)

func (c MemoryClass) String() string {
	switch c {
	case Host:
		return "host"
	case Device:
		return "device"
	case DeviceHost:
		return "device-host"
	}
	return fmt.Sprintf("MemoryClass(%d)", int(c))
}

// TensorView is a non-owning view of a buffer passed into kernels.
type TensorView struct {
	Ptr   DevicePtr
	Shape []int64
	DType DType
	Class MemoryClass
}

// NumElements is the product of Shape.
func (v TensorView) NumElements() int64 {
	n := int64(1)
	for _, d := range v.Shape {
		n *= d
	}
	return n
}

// Bytes is the number of bytes the view spans.
func (v TensorView) Bytes() int64 {
	return v.NumElements() * int64(v.DType.Size())
}

func (v TensorView) String() string {
	return fmt.Sprintf("%s%v@%s", v.DType, v.Shape, v.Class)
}
