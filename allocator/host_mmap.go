//go:build linux || darwin || freebsd || netbsd || openbsd

package allocator

import (
	"unsafe"

	"golang.org/x/sys/unix"

	gv "github.com/LynnColeArt/gudavision"
)

// Host memory comes from anonymous mappings so that exhaustion surfaces
// as ENOMEM instead of aborting the Go runtime.
func hostAlloc(size int) (gv.DevicePtr, bool) {
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return gv.DevicePtr{}, false
	}
	return gv.NewDevicePtr(unsafe.Pointer(&buf[0]), size), true
}

// hostFree unmaps the region. Munmap rejects regions it does not track,
// which makes a repeated free a no-op.
func hostFree(ptr gv.DevicePtr) {
	_ = unix.Munmap(unsafe.Slice((*byte)(ptr.Pointer()), ptr.Size()))
}
