// Package gridsample samples 5-D volumes at normalized grid locations.
package gridsample

import (
	"fmt"
	"math"
	"strings"

	gv "github.com/LynnColeArt/gudavision"
)

// Mode is the sampling filter.
type Mode int

const (
	Bilinear Mode = iota // trilinear over the volume
	Nearest
)

// Padding decides what out-of-range locations read.
type Padding int

const (
	Zeros Padding = iota
	Border
	Reflect
)

// ParseMode accepts "bilinear" and "nearest".
func ParseMode(tag string) (Mode, error) {
	switch strings.ToLower(tag) {
	case "bilinear", "trilinear":
		return Bilinear, nil
	case "nearest":
		return Nearest, nil
	}
	return 0, gv.NewInvalidArgError("GridSample3D", fmt.Sprintf("unknown mode %q", tag))
}

// ParsePadding accepts "zeros", "border" and "reflect"/"reflection".
func ParsePadding(tag string) (Padding, error) {
	switch strings.ToLower(tag) {
	case "zeros":
		return Zeros, nil
	case "border":
		return Border, nil
	case "reflect", "reflection":
		return Reflect, nil
	}
	return 0, gv.NewInvalidArgError("GridSample3D", fmt.Sprintf("unknown padding %q", tag))
}

// Params describes a sampling of an [N,C,D,H,W] input at an
// [N,OutD,OutH,OutW,3] grid of (x, y, z) coordinates in [-1, 1].
type Params struct {
	N, C             int
	D, H, W          int
	OutD, OutH, OutW int
	Mode             Mode
	Padding          Padding
	AlignCorners     bool
}

func (p Params) valid() bool {
	return p.N > 0 && p.C > 0 && p.D > 0 && p.H > 0 && p.W > 0 &&
		p.OutD > 0 && p.OutH > 0 && p.OutW > 0
}

// unnormalize maps [-1, 1] onto pixel coordinates.
func unnormalize(c float32, size int, alignCorners bool) float32 {
	if alignCorners {
		return (c + 1) / 2 * float32(size-1)
	}
	return ((c+1)*float32(size) - 1) / 2
}

func clipCoord(c float32, size int) float32 {
	return float32(math.Min(float64(size-1), math.Max(0, float64(c))))
}

// reflectCoord reflects c into [twiceLow/2, twiceHigh/2].
func reflectCoord(c float32, twiceLow, twiceHigh int) float32 {
	if twiceLow == twiceHigh {
		return 0
	}
	lo := float64(twiceLow) / 2
	span := float64(twiceHigh-twiceLow) / 2
	in := math.Abs(float64(c) - lo)
	extra := math.Mod(in, span)
	if int(math.Floor(in/span))%2 == 0 {
		return float32(extra + lo)
	}
	return float32(span - extra + lo)
}

func sourceIndex(c float32, size int, pad Padding, alignCorners bool) float32 {
	c = unnormalize(c, size, alignCorners)
	switch pad {
	case Border:
		c = clipCoord(c, size)
	case Reflect:
		if alignCorners {
			c = reflectCoord(c, 0, 2*(size-1))
		} else {
			c = reflectCoord(c, -1, 2*size-1)
		}
		c = clipCoord(c, size)
	}
	return c
}

// GridSample3D enqueues the sampling kernel on stream, one thread per
// output location and batch, looping over channels.
func GridSample3D(rt gv.Runtime, stream *gv.Stream, p Params, input, grid, output gv.DevicePtr) error {
	const op = "GridSample3D"
	if !p.valid() {
		return gv.NewInvalidArgError(op, fmt.Sprintf("invalid shape %+v", p))
	}
	if input.IsNil() || grid.IsNil() || output.IsNil() {
		return gv.ErrNullPointer
	}
	inVol := p.D * p.H * p.W
	outVol := p.OutD * p.OutH * p.OutW
	if input.Size() < p.N*p.C*inVol*4 || grid.Size() < p.N*outVol*3*4 || output.Size() < p.N*p.C*outVol*4 {
		return gv.NewInvalidArgError(op, "buffer smaller than shape")
	}

	in, g, out := input.Float32(), grid.Float32(), output.Float32()
	total := p.N * outVol

	kernel := gv.KernelFunc(func(tid gv.ThreadID) {
		idx := tid.Global()
		if idx >= total {
			return
		}
		n, o := idx/outVol, idx%outVol
		gp := g[idx*3 : idx*3+3 : idx*3+3]
		ix := sourceIndex(gp[0], p.W, p.Padding, p.AlignCorners)
		iy := sourceIndex(gp[1], p.H, p.Padding, p.AlignCorners)
		iz := sourceIndex(gp[2], p.D, p.Padding, p.AlignCorners)

		read := func(plane []float32, z, y, x int) float32 {
			if x < 0 || y < 0 || z < 0 || x >= p.W || y >= p.H || z >= p.D {
				return 0
			}
			return plane[(z*p.H+y)*p.W+x]
		}

		for c := 0; c < p.C; c++ {
			plane := in[(n*p.C+c)*inVol : (n*p.C+c+1)*inVol]
			dst := &out[(n*p.C+c)*outVol+o]
			if p.Mode == Nearest {
				*dst = read(plane,
					int(math.RoundToEven(float64(iz))),
					int(math.RoundToEven(float64(iy))),
					int(math.RoundToEven(float64(ix))))
				continue
			}
			x0, y0, z0 := floor(ix), floor(iy), floor(iz)
			fx, fy, fz := ix-float32(x0), iy-float32(y0), iz-float32(z0)
			var acc float32
			for dz := 0; dz < 2; dz++ {
				wz := 1 - fz
				if dz == 1 {
					wz = fz
				}
				for dy := 0; dy < 2; dy++ {
					wy := 1 - fy
					if dy == 1 {
						wy = fy
					}
					for dx := 0; dx < 2; dx++ {
						wx := 1 - fx
						if dx == 1 {
							wx = fx
						}
						w := wx * wy * wz
						if w == 0 {
							continue
						}
						acc += w * read(plane, z0+dz, y0+dy, x0+dx)
					}
				}
			}
			*dst = acc
		}
	})

	gridDim, block := gv.GridFor(total)
	return rt.LaunchKernel(stream, kernel, gridDim, block).Err("LaunchKernel")
}

func floor(v float32) int { return int(math.Floor(float64(v))) }

// IdentityGrid returns the grid that, with AlignCorners set, samples
// every voxel of an outD x outH x outW volume at its own position.
func IdentityGrid(n, outD, outH, outW int) []float32 {
	coord := func(i, size int) float32 {
		if size == 1 {
			return 0
		}
		return 2*float32(i)/float32(size-1) - 1
	}
	g := make([]float32, 0, n*outD*outH*outW*3)
	for b := 0; b < n; b++ {
		for z := 0; z < outD; z++ {
			for y := 0; y < outH; y++ {
				for x := 0; x < outW; x++ {
					g = append(g, coord(x, outW), coord(y, outH), coord(z, outD))
				}
			}
		}
	}
	return g
}
