//go:build linux || darwin || freebsd || netbsd || openbsd

package gudavision

import (
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// MallocHost implements Runtime. Pinned memory is an anonymous mapping
// locked into RAM. When the lock is refused (RLIMIT_MEMLOCK) the mapping
// stays pageable unless strict pinning is configured.
func (e *Engine) MallocHost(size int) (DevicePtr, Status) {
	if size <= 0 {
		return DevicePtr{}, ErrorInvalidValue
	}
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		e.log.Debug("pinned allocation failed",
			zap.String("call", e.vendor.Dispatch("MallocHost")),
			zap.Int("size", size), zap.Error(err))
		return DevicePtr{}, ErrorMemoryAllocation
	}
	if err := unix.Mlock(buf); err != nil {
		if e.strictPinning {
			_ = unix.Munmap(buf)
			e.log.Debug("page lock refused", zap.Int("size", size), zap.Error(err))
			return DevicePtr{}, ErrorMemoryAllocation
		}
		e.log.Warn("pinned allocation left pageable", zap.Int("size", size), zap.Error(err))
	}

	p := unsafe.Pointer(&buf[0])
	e.mu.Lock()
	e.pinned[uintptr(p)] = buf
	e.mu.Unlock()
	return NewDevicePtr(p, size), Success
}

// FreeHost implements Runtime.
func (e *Engine) FreeHost(ptr DevicePtr) Status {
	if ptr.IsNil() {
		return Success
	}
	e.mu.Lock()
	buf, ok := e.pinned[uintptr(ptr.Pointer())]
	delete(e.pinned, uintptr(ptr.Pointer()))
	e.mu.Unlock()
	if !ok {
		return ErrorInvalidDevicePointer
	}
	_ = unix.Munlock(buf)
	if err := unix.Munmap(buf); err != nil {
		return ErrorInvalidValue
	}
	return Success
}
