// Package iou3d computes bird's-eye-view overlap and IoU of 3D boxes and
// runs greedy non-max suppression on the device.
//
// Boxes are stored on the device as BoxDim float32 values each:
// x, y, z, dx, dy, dz, heading. Only the ground-plane footprint
// (x, y, dx, dy, heading) takes part in the computations.
package iou3d

import (
	"fmt"

	gv "github.com/LynnColeArt/gudavision"
)

// BoxDim is the number of float32 values per box.
const BoxDim = 7

// Box3D is a 3D box whose footprint is a dx by dy rectangle centered on
// (X, Y) and rotated by Heading radians.
type Box3D struct {
	X, Y, Z    float32
	DX, DY, DZ float32
	Heading    float32
}

// Area is the footprint area.
func (b Box3D) Area() float32 { return b.DX * b.DY }

func (b Box3D) String() string {
	return fmt.Sprintf("box(%.3g,%.3g %.3gx%.3g @%.3g)", b.X, b.Y, b.DX, b.DY, b.Heading)
}

// boxAt decodes box i of a packed buffer.
func boxAt(s []float32, i int) Box3D {
	p := s[i*BoxDim : i*BoxDim+BoxDim : i*BoxDim+BoxDim]
	return Box3D{X: p[0], Y: p[1], Z: p[2], DX: p[3], DY: p[4], DZ: p[5], Heading: p[6]}
}

// Pack flattens boxes into the device layout.
func Pack(boxes []Box3D) []float32 {
	out := make([]float32, 0, len(boxes)*BoxDim)
	for _, b := range boxes {
		out = append(out, b.X, b.Y, b.Z, b.DX, b.DY, b.DZ, b.Heading)
	}
	return out
}

// Unpack is the inverse of Pack.
func Unpack(s []float32) []Box3D {
	boxes := make([]Box3D, len(s)/BoxDim)
	for i := range boxes {
		boxes[i] = boxAt(s, i)
	}
	return boxes
}

// Upload copies boxes into a device buffer of at least len(boxes)*BoxDim*4 bytes.
func Upload(dst gv.DevicePtr, boxes []Box3D) error {
	packed := Pack(boxes)
	return gv.Memcpy(dst, packed, len(packed)*4, gv.MemcpyHostToDevice)
}
