package gudavision_test

import (
	"math"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gv "github.com/LynnColeArt/gudavision"
	"github.com/LynnColeArt/gudavision/internal/gudatest"
)

func TestFloat16Conversion(t *testing.T) {
	tests := []struct {
		name string
		in   float32
		bits gv.Half
	}{
		{"zero", 0, 0x0000},
		{"negative zero", float32(math.Copysign(0, -1)), 0x8000},
		{"one", 1, 0x3C00},
		{"minus two", -2, 0xC000},
		{"half", 0.5, 0x3800},
		{"max", 65504, 0x7BFF},
		{"overflow", 70000, 0x7C00},
		{"smallest normal", 1.0 / 16384, 0x0400},
		{"smallest subnormal", 1.0 / (1 << 24), 0x0001},
		{"underflow", 1.0 / (1 << 26), 0x0000},
		{"inf", float32(math.Inf(1)), 0x7C00},
		{"rounds to even", 1 + 1.0/2048, 0x3C00},
		{"rounds up", 1 + 3.0/2048, 0x3C02},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.bits, gv.FromFloat32(tt.in))
		})
	}
}

func TestFloat16RoundTripExact(t *testing.T) {
	// Every finite half converts to float32 and back unchanged.
	for b := 0; b < 1<<16; b++ {
		h := gv.Half(b)
		if h&0x7C00 == 0x7C00 {
			continue
		}
		if got := gv.FromFloat32(h.ToFloat32()); got != h {
			t.Fatalf("round trip of %#04x gave %#04x", b, uint16(got))
		}
	}
	assert.True(t, math.IsNaN(float64(gv.Half(0x7E00).ToFloat32())))
}

func TestFloat16Slice(t *testing.T) {
	s := gv.NewFloat16Slice(make([]byte, 8))
	assert.Equal(t, 4, s.Len())
	s.SetFloat32(2, 1.5)
	assert.Equal(t, gv.Half(0x3E00), s.Get(2))
	assert.Equal(t, float32(1.5), s.GetFloat32(2))
}

func TestHalfBacksFloat16Buffers(t *testing.T) {
	e := gudatest.NewEngine(t)
	ptr := gudatest.MallocOrFail(t, e, 3*gv.Float16.Size())
	view := gv.TensorView{Ptr: ptr, Shape: []int64{3}, DType: gv.Float16, Class: gv.Device}
	assert.Equal(t, int64(6), view.Bytes())

	s := ptr.Float16()
	require.Equal(t, 3, s.Len())
	s.Set(1, gv.Half(0xC000))
	assert.Equal(t, float32(-2), s.GetFloat32(1))
	assert.Equal(t, e.Device().NumCores, runtime.NumCPU())
}
