// Package pooling implements adaptive average and max pooling over the
// two trailing spatial axes of a device tensor.
package pooling

import (
	"fmt"
	"math"
	"strings"

	gv "github.com/LynnColeArt/gudavision"
)

// Type selects the reduction.
type Type int

const (
	Avg Type = iota
	Max
)

// ParseType accepts the pooling tags "avg" (or "average") and "max".
func ParseType(tag string) (Type, error) {
	switch strings.ToLower(tag) {
	case "avg", "average", "mean":
		return Avg, nil
	case "max":
		return Max, nil
	}
	return 0, gv.NewInvalidArgError("AdaptivePool", fmt.Sprintf("unknown pooling type %q", tag))
}

func (t Type) String() string {
	if t == Max {
		return "max"
	}
	return "avg"
}

// Params describes one adaptive pooling launch. Dims are ordered
// outermost first, typically [N, C, H, W]; every axis but the last two
// must agree between input and output.
type Params struct {
	InputDims  []int64
	OutputDims []int64
	Type       Type
	InDType    gv.DType
	OutDType   gv.DType
}

// NewParams builds Params from the string tags used by the toolkit.
func NewParams(inputDims, outputDims []int64, poolingType, dtype, outDType string) (Params, error) {
	t, err := ParseType(poolingType)
	if err != nil {
		return Params{}, err
	}
	in, err := gv.ParseDType(dtype)
	if err != nil {
		return Params{}, err
	}
	out, err := gv.ParseDType(outDType)
	if err != nil {
		return Params{}, err
	}
	return Params{InputDims: inputDims, OutputDims: outputDims, Type: t, InDType: in, OutDType: out}, nil
}

// Window returns the input range [start, end) covered by output cell i
// when in cells are pooled into out.
func Window(i, in, out int) (start, end int) {
	start = (i * in) / out
	end = ((i+1)*in + out - 1) / out
	return start, end
}

func (p Params) check(output, input gv.DevicePtr) {
	r := len(p.InputDims)
	gv.Assertf(r >= 2 && r == len(p.OutputDims), "adaptive pool: rank %d vs %d", r, len(p.OutputDims))
	for i := 0; i < r-2; i++ {
		gv.Assertf(p.InputDims[i] == p.OutputDims[i], "adaptive pool: dim %d differs (%d vs %d)",
			i, p.InputDims[i], p.OutputDims[i])
	}
	for i := r - 2; i < r; i++ {
		gv.Assertf(p.InputDims[i] > 0 && p.OutputDims[i] > 0, "adaptive pool: empty spatial dim %d", i)
	}
	gv.Assertf(int64(input.Size()) >= numel(p.InputDims)*int64(p.InDType.Size()), "adaptive pool: input buffer too small")
	gv.Assertf(int64(output.Size()) >= numel(p.OutputDims)*int64(p.OutDType.Size()), "adaptive pool: output buffer too small")
}

// AdaptivePool enqueues the pooling kernel on stream and returns without
// waiting. Every output cell reduces its window in float32; conversion to
// the output dtype happens only at the final write.
func AdaptivePool(rt gv.Runtime, stream *gv.Stream, p Params, output, input gv.DevicePtr) error {
	if output.IsNil() || input.IsNil() {
		return gv.ErrNullPointer
	}
	p.check(output, input)

	load, err := loader(p.InDType, input)
	if err != nil {
		return err
	}
	store, err := storer(p.OutDType, output)
	if err != nil {
		return err
	}

	r := len(p.InputDims)
	inH, inW := int(p.InputDims[r-2]), int(p.InputDims[r-1])
	outH, outW := int(p.OutputDims[r-2]), int(p.OutputDims[r-1])
	total := int(numel(p.OutputDims))
	typ := p.Type

	kernel := gv.KernelFunc(func(tid gv.ThreadID) {
		idx := tid.Global()
		if idx >= total {
			return
		}
		ow := idx % outW
		oh := (idx / outW) % outH
		plane := idx / (outW * outH)
		base := plane * inH * inW

		hs, he := Window(oh, inH, outH)
		ws, we := Window(ow, inW, outW)

		var acc float32
		if typ == Max {
			acc = float32(math.Inf(-1))
		}
		for h := hs; h < he; h++ {
			row := base + h*inW
			for w := ws; w < we; w++ {
				v := load(row + w)
				if typ == Max {
					if v > acc {
						acc = v
					}
				} else {
					acc += v
				}
			}
		}
		if typ == Avg {
			acc /= float32((he - hs) * (we - ws))
		}
		store(idx, acc)
	})

	grid, block := gv.GridFor(total)
	return rt.LaunchKernel(stream, kernel, grid, block).Err("LaunchKernel")
}

// AdaptivePoolTensors pools input into output, taking dims and dtypes
// from the views.
func AdaptivePoolTensors(rt gv.Runtime, stream *gv.Stream, typ Type, output, input gv.TensorView) error {
	return AdaptivePool(rt, stream, Params{
		InputDims:  input.Shape,
		OutputDims: output.Shape,
		Type:       typ,
		InDType:    input.DType,
		OutDType:   output.DType,
	}, output.Ptr, input.Ptr)
}

func loader(t gv.DType, p gv.DevicePtr) (func(int) float32, error) {
	switch t {
	case gv.Float32:
		s := p.Float32()
		return func(i int) float32 { return s[i] }, nil
	case gv.Float16:
		s := p.Float16()
		return s.GetFloat32, nil
	}
	return nil, gv.NewInvalidArgError("AdaptivePool", fmt.Sprintf("unsupported input dtype %s", t))
}

func storer(t gv.DType, p gv.DevicePtr) (func(int, float32), error) {
	switch t {
	case gv.Float32:
		s := p.Float32()
		return func(i int, v float32) { s[i] = v }, nil
	case gv.Float16:
		s := p.Float16()
		return s.SetFloat32, nil
	}
	return nil, gv.NewInvalidArgError("AdaptivePool", fmt.Sprintf("unsupported output dtype %s", t))
}

func numel(dims []int64) int64 {
	n := int64(1)
	for _, d := range dims {
		n *= d
	}
	return n
}
