// Package preprocess implements the fused image preprocessing kernel:
// aspect-preserving resize, letterbox padding, HWC to CHW transpose and
// normalization in a single device pass.
package preprocess

import (
	"fmt"
	"math"

	gv "github.com/LynnColeArt/gudavision"
)

const tile = 16

// Interpolation is the resampling policy of the resize step.
type Interpolation int

const (
	Bilinear Interpolation = iota
	Nearest
)

// Options tunes the fused kernel.
type Options struct {
	Interpolation Interpolation
	// SwapRB exchanges the first and third channels (BGR <-> RGB).
	SwapRB bool
	// Normalize scales every output value; zero means 1/255.
	Normalize float32
}

// Transform describes where the source image landed in the destination.
type Transform struct {
	Scale float32
	PadX  float32
	PadY  float32
}

// NewTransform computes the uniform scale that fits srcW x srcH inside
// dstW x dstH and the centering offsets of the letterbox.
func NewTransform(srcW, srcH, dstW, dstH int) Transform {
	scale := float32(math.Min(float64(dstW)/float64(srcW), float64(dstH)/float64(srcH)))
	return Transform{
		Scale: scale,
		PadX:  (float32(dstW) - float32(srcW)*scale) / 2,
		PadY:  (float32(dstH) - float32(srcH)*scale) / 2,
	}
}

// ToSource maps a destination coordinate back into the source image.
func (t Transform) ToSource(x, y float32) (float32, float32) {
	return (x - t.PadX) / t.Scale, (y - t.PadY) / t.Scale
}

// ToDestination maps a source coordinate into the destination tensor.
func (t Transform) ToDestination(x, y float32) (float32, float32) {
	return x*t.Scale + t.PadX, y*t.Scale + t.PadY
}

// Letterbox enqueues the fused preprocessing kernel. src holds srcH rows
// of srcW interleaved uint8 pixels with len(padding) channels; dst
// receives len(padding) planes of dstH x dstW float32. Pixels outside the
// resized image take the per-channel padding value, normalized like the
// image.
func Letterbox(rt gv.Runtime, stream *gv.Stream,
	src gv.DevicePtr, srcW, srcH int,
	dst gv.DevicePtr, dstW, dstH int,
	padding []float32, opts Options) (Transform, error) {

	channels := len(padding)
	if channels < 1 || channels > 4 {
		return Transform{}, gv.NewInvalidArgError("Letterbox", fmt.Sprintf("unsupported channel count %d", channels))
	}
	if src.IsNil() || dst.IsNil() {
		return Transform{}, gv.ErrNullPointer
	}
	gv.Assertf(srcW > 0 && srcH > 0 && dstW > 0 && dstH > 0, "letterbox: empty image %dx%d -> %dx%d", srcW, srcH, dstW, dstH)
	gv.Assertf(src.Size() >= srcW*srcH*channels, "letterbox: source buffer too small")
	gv.Assertf(dst.Size() >= dstW*dstH*channels*4, "letterbox: destination buffer too small")

	t := NewTransform(srcW, srcH, dstW, dstH)
	norm := opts.Normalize
	if norm == 0 {
		norm = 1.0 / 255
	}

	var pad [4]float32
	copy(pad[:], padding)
	var order [4]int
	for c := range order {
		order[c] = c
	}
	if opts.SwapRB && channels >= 3 {
		order[0], order[2] = 2, 0
	}

	in := src.Uint8()
	out := dst.Float32()
	area := dstW * dstH
	interp := opts.Interpolation

	kernel := gv.KernelFunc(func(tid gv.ThreadID) {
		dx, dy := tid.GlobalX(), tid.GlobalY()
		if dx >= dstW || dy >= dstH {
			return
		}
		// Pixel centers are mapped, so an unscaled image lands exactly on
		// source pixels.
		sx := (float32(dx)+0.5-t.PadX)/t.Scale - 0.5
		sy := (float32(dy)+0.5-t.PadY)/t.Scale - 0.5

		var v [4]float32
		switch {
		case sx <= -1 || sx >= float32(srcW) || sy <= -1 || sy >= float32(srcH):
			v = pad
		case interp == Nearest:
			x := int(math.Floor(float64(sx) + 0.5))
			y := int(math.Floor(float64(sy) + 0.5))
			if x < 0 || x >= srcW || y < 0 || y >= srcH {
				v = pad
				break
			}
			p := (y*srcW + x) * channels
			for c := 0; c < channels; c++ {
				v[c] = float32(in[p+c])
			}
		default:
			x0 := int(math.Floor(float64(sx)))
			y0 := int(math.Floor(float64(sy)))
			lx := sx - float32(x0)
			ly := sy - float32(y0)
			hx, hy := 1-lx, 1-ly
			w00, w01, w10, w11 := hy*hx, hy*lx, ly*hx, ly*lx
			for c := 0; c < channels; c++ {
				at := func(x, y int) float32 {
					if x < 0 || x >= srcW || y < 0 || y >= srcH {
						return pad[c]
					}
					return float32(in[(y*srcW+x)*channels+c])
				}
				v[c] = w00*at(x0, y0) + w01*at(x0+1, y0) + w10*at(x0, y0+1) + w11*at(x0+1, y0+1)
			}
		}

		pix := dy*dstW + dx
		for c := 0; c < channels; c++ {
			out[order[c]*area+pix] = v[c] * norm
		}
	})

	grid := gv.Dim3{X: (dstW + tile - 1) / tile, Y: (dstH + tile - 1) / tile, Z: 1}
	block := gv.Dim3{X: tile, Y: tile, Z: 1}
	if err := rt.LaunchKernel(stream, kernel, grid, block).Err("LaunchKernel"); err != nil {
		return Transform{}, err
	}
	return t, nil
}

// YoloPreprocess is the YOLO-family entry point: BGR input, bilinear
// resize, RGB planar output scaled to [0, 1].
func YoloPreprocess(rt gv.Runtime, stream *gv.Stream,
	src gv.DevicePtr, srcW, srcH int,
	dst gv.DevicePtr, dstW, dstH int,
	padding []float32) (Transform, error) {
	return Letterbox(rt, stream, src, srcW, srcH, dst, dstW, dstH, padding, Options{SwapRB: true})
}
