//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package gudavision

import "unsafe"

// MallocHost implements Runtime. Without mmap/mlock the region is plain
// heap memory held by the engine until FreeHost.
func (e *Engine) MallocHost(size int) (DevicePtr, Status) {
	if size <= 0 {
		return DevicePtr{}, ErrorInvalidValue
	}
	if e.strictPinning {
		return DevicePtr{}, ErrorMemoryAllocation
	}
	buf := make([]byte, size)
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
	_, ok := e.pinned[uintptr(ptr.Pointer())]
	delete(e.pinned, uintptr(ptr.Pointer()))
	e.mu.Unlock()
	if !ok {
		return ErrorInvalidDevicePointer
	}
	return Success
}
