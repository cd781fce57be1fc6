//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package allocator

import (
	"sync"
	"unsafe"

	gv "github.com/LynnColeArt/gudavision"
)

// Without mmap the Go heap backs host memory; live regions are kept
// reachable here until freed.
var live sync.Map // uintptr -> []byte

func hostAlloc(size int) (gv.DevicePtr, bool) {
	buf := make([]byte, size)
	p := unsafe.Pointer(&buf[0])
	live.Store(uintptr(p), buf)
	return gv.NewDevicePtr(p, size), true
}

func hostFree(ptr gv.DevicePtr) {
	live.Delete(uintptr(ptr.Pointer()))
}
