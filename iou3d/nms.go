package iou3d

import (
	"fmt"

	gv "github.com/LynnColeArt/gudavision"
	"github.com/LynnColeArt/gudavision/allocator"
)

// threadsPerBlock is the number of boxes covered by one mask word.
const threadsPerBlock = 64

// MaskWords returns the number of 64-bit mask words per box row.
func MaskWords(n int) int {
	return (n + threadsPerBlock - 1) / threadsPerBlock
}

// Workspace holds the device buffers of one NMS launch over n boxes.
// Keep and NumKeep hold the result after the stream is synchronized.
type Workspace struct {
	N       int
	Mask    gv.DevicePtr // n x MaskWords(n) uint64
	Removed gv.DevicePtr // MaskWords(n) uint64
	Keep    gv.DevicePtr // n int64
	NumKeep gv.DevicePtr // 1 int64

	bufs []*allocator.Buffer
}

// NewWorkspace allocates a workspace for n boxes from a.
func NewWorkspace(a allocator.Allocator, n int) (*Workspace, error) {
	if n <= 0 {
		return nil, gv.NewInvalidArgError("NewWorkspace", fmt.Sprintf("box count %d", n))
	}
	words := MaskWords(n)
	ws := &Workspace{N: n}
	sizes := []int{n * words * 8, words * 8, n * 8, 8}
	ptrs := []*gv.DevicePtr{&ws.Mask, &ws.Removed, &ws.Keep, &ws.NumKeep}
	for i, size := range sizes {
		buf, err := allocator.Acquire(a, size)
		if err != nil {
			ws.Release()
			return nil, err
		}
		ws.bufs = append(ws.bufs, buf)
		*ptrs[i] = buf.Ptr()
	}
	return ws, nil
}

// Release frees every buffer of the workspace.
func (ws *Workspace) Release() {
	for _, b := range ws.bufs {
		b.Release()
	}
	ws.bufs = nil
}

// NMSAsync enqueues the suppression mask kernel and the selection kernel
// on stream. Boxes must already be sorted by descending score. A box is
// suppressed when its IoU with an already kept box is at least thresh.
func NMSAsync(rt gv.Runtime, stream *gv.Stream, v Variant, boxes gv.DevicePtr, n int, thresh float32, ws *Workspace) error {
	const op = "NMS"
	if n <= 0 {
		return gv.NewInvalidArgError(op, fmt.Sprintf("box count %d", n))
	}
	if ws == nil || ws.N < n {
		return gv.NewInvalidArgError(op, "workspace too small")
	}
	if boxes.IsNil() {
		return gv.ErrNullPointer
	}
	if boxes.Size() < n*BoxDim*4 {
		return gv.NewInvalidArgError(op, "box buffer smaller than box count")
	}

	words := MaskWords(n)
	bs := boxes.Float32()
	mask := ws.Mask.Uint64()
	iou := v.IoU

	// Each thread owns one row box and one 64-box column block. Only the
	// upper triangle of blocks is computed; selection never reads the rest.
	maskKernel := gv.KernelFunc(func(tid gv.ThreadID) {
		rowBlock, colBlock := tid.BlockIdx.Y, tid.BlockIdx.X
		if rowBlock > colBlock {
			return
		}
		row := rowBlock*threadsPerBlock + tid.ThreadIdx.X
		if row >= n {
			return
		}
		cur := boxAt(bs, row)
		start := colBlock * threadsPerBlock
		end := start + threadsPerBlock
		if end > n {
			end = n
		}
		if rowBlock == colBlock {
			start = row + 1
		}
		var bits uint64
		for j := start; j < end; j++ {
			if iou(cur, boxAt(bs, j)) >= thresh {
				bits |= 1 << uint(j%threadsPerBlock)
			}
		}
		mask[row*words+colBlock] = bits
	})
	grid := gv.Dim3{X: words, Y: words, Z: 1}
	block := gv.Dim3{X: threadsPerBlock, Y: 1, Z: 1}
	if err := rt.LaunchKernel(stream, maskKernel, grid, block).Err("LaunchKernel"); err != nil {
		return err
	}

	removed := ws.Removed.Uint64()
	keep := ws.Keep.Int64()
	count := ws.NumKeep.Int64()
	selectKernel := gv.KernelFunc(func(gv.ThreadID) {
		for i := range removed[:words] {
			removed[i] = 0
		}
		var k int64
		for i := 0; i < n; i++ {
			nb, bit := i/threadsPerBlock, uint(i%threadsPerBlock)
			if removed[nb]&(1<<bit) != 0 {
				continue
			}
			keep[k] = int64(i)
			k++
			row := mask[i*words : (i+1)*words]
			for j := nb; j < words; j++ {
				removed[j] |= row[j]
			}
		}
		count[0] = k
	})
	one := gv.Dim3{X: 1, Y: 1, Z: 1}
	return rt.LaunchKernel(stream, selectKernel, one, one).Err("LaunchKernel")
}

// NMS runs rotated-footprint suppression over n packed boxes on the
// device and returns the kept indices in score order.
func NMS(rt gv.Runtime, stream *gv.Stream, boxes gv.DevicePtr, n int, thresh float32) ([]int64, error) {
	return runNMS(rt, stream, Rotated, boxes, n, thresh)
}

// NMSNormal is NMS over axis-aligned footprints.
func NMSNormal(rt gv.Runtime, stream *gv.Stream, boxes gv.DevicePtr, n int, thresh float32) ([]int64, error) {
	return runNMS(rt, stream, Normal, boxes, n, thresh)
}

func runNMS(rt gv.Runtime, stream *gv.Stream, v Variant, boxes gv.DevicePtr, n int, thresh float32) ([]int64, error) {
	if n == 0 {
		return []int64{}, nil
	}
	ws, err := NewWorkspace(allocator.Device(rt), n)
	if err != nil {
		return nil, err
	}
	defer ws.Release()

	// The result is staged through pinned memory. It is acquired before
	// anything is enqueued so a failure here leaves no kernel behind.
	staged, err := allocator.Acquire(allocator.DeviceHost(rt), (n+1)*8)
	if err != nil {
		return nil, err
	}
	defer staged.Release()

	// Work already on the stream may still write to ws; it must finish
	// before the deferred releases return the buffers to the pool.
	drain := func(err error) ([]int64, error) {
		rt.StreamSynchronize(stream)
		return nil, err
	}

	if err := NMSAsync(rt, stream, v, boxes, n, thresh, ws); err != nil {
		return drain(err)
	}
	host := staged.Ptr()
	if st := rt.MemcpyAsync(stream, host, ws.NumKeep, 8, gv.MemcpyDeviceToHost); st != gv.Success {
		return drain(st.Err("MemcpyAsync"))
	}
	if st := rt.MemcpyAsync(stream, host.Offset(8), ws.Keep, n*8, gv.MemcpyDeviceToHost); st != gv.Success {
		return drain(st.Err("MemcpyAsync"))
	}
	if st := rt.StreamSynchronize(stream); st != gv.Success {
		return nil, st.Err("StreamSynchronize")
	}

	vals := host.Int64()
	k := vals[0]
	out := make([]int64, k)
	copy(out, vals[1:1+k])
	return out, nil
}

// GreedySelect is the host form of the suppression pass over a
// precomputed row-major n x n overlap matrix.
func GreedySelect(matrix []float32, n int, thresh float32) []int64 {
	removed := make([]bool, n)
	keep := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		if removed[i] {
			continue
		}
		keep = append(keep, int64(i))
		for j := i + 1; j < n; j++ {
			if matrix[i*n+j] >= thresh {
				removed[j] = true
			}
		}
	}
	return keep
}
