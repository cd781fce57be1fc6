package iou3d

import (
	"fmt"

	gv "github.com/LynnColeArt/gudavision"
)

// Variant selects rotated or axis-aligned footprints.
type Variant int

const (
	Rotated Variant = iota
	Normal
)

func (v Variant) String() string {
	if v == Normal {
		return "normal"
	}
	return "rotated"
}

// IoU dispatches to IoUBEV or IoUNormal.
func (v Variant) IoU(a, b Box3D) float32 {
	if v == Normal {
		return IoUNormal(a, b)
	}
	return IoUBEV(a, b)
}

// Overlap dispatches to OverlapBEV or OverlapNormal.
func (v Variant) Overlap(a, b Box3D) float32 {
	if v == Normal {
		return OverlapNormal(a, b)
	}
	return OverlapBEV(a, b)
}

const tile = 16

// BoxesOverlapBEV writes the na x nb matrix of rotated intersection areas
// into out, row-major by box of a.
func BoxesOverlapBEV(rt gv.Runtime, stream *gv.Stream, a gv.DevicePtr, na int, b gv.DevicePtr, nb int, out gv.DevicePtr) error {
	return pairwise(rt, stream, "BoxesOverlapBEV", Rotated.Overlap, a, na, b, nb, out)
}

// BoxesIoUBEV writes the na x nb matrix of rotated IoU values into out.
func BoxesIoUBEV(rt gv.Runtime, stream *gv.Stream, a gv.DevicePtr, na int, b gv.DevicePtr, nb int, out gv.DevicePtr) error {
	return pairwise(rt, stream, "BoxesIoUBEV", Rotated.IoU, a, na, b, nb, out)
}

// BoxesOverlapNormal writes the na x nb matrix of axis-aligned intersection areas.
func BoxesOverlapNormal(rt gv.Runtime, stream *gv.Stream, a gv.DevicePtr, na int, b gv.DevicePtr, nb int, out gv.DevicePtr) error {
	return pairwise(rt, stream, "BoxesOverlapNormal", Normal.Overlap, a, na, b, nb, out)
}

// BoxesIoUNormal writes the na x nb matrix of axis-aligned IoU values.
func BoxesIoUNormal(rt gv.Runtime, stream *gv.Stream, a gv.DevicePtr, na int, b gv.DevicePtr, nb int, out gv.DevicePtr) error {
	return pairwise(rt, stream, "BoxesIoUNormal", Normal.IoU, a, na, b, nb, out)
}

func pairwise(rt gv.Runtime, stream *gv.Stream, op string, fn func(a, b Box3D) float32,
	a gv.DevicePtr, na int, b gv.DevicePtr, nb int, out gv.DevicePtr) error {
	if na < 0 || nb < 0 {
		return gv.NewInvalidArgError(op, fmt.Sprintf("negative box count %d x %d", na, nb))
	}
	if na == 0 || nb == 0 {
		return nil
	}
	if a.IsNil() || b.IsNil() || out.IsNil() {
		return gv.ErrNullPointer
	}
	if a.Size() < na*BoxDim*4 || b.Size() < nb*BoxDim*4 || out.Size() < na*nb*4 {
		return gv.NewInvalidArgError(op, "buffer smaller than box count")
	}

	as, bs, res := a.Float32(), b.Float32(), out.Float32()
	kernel := gv.KernelFunc(func(tid gv.ThreadID) {
		j, i := tid.GlobalX(), tid.GlobalY()
		if i >= na || j >= nb {
			return
		}
		res[i*nb+j] = fn(boxAt(as, i), boxAt(bs, j))
	})
	grid := gv.Dim3{X: (nb + tile - 1) / tile, Y: (na + tile - 1) / tile, Z: 1}
	block := gv.Dim3{X: tile, Y: tile, Z: 1}
	return rt.LaunchKernel(stream, kernel, grid, block).Err("LaunchKernel")
}
