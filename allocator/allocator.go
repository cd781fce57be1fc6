// Package allocator implements the memory allocator family: host heap,
// device and pinned device-host memory behind one try-allocate/free
// contract.
//
// Allocators hold no ownership and no mutable state. A region returned by
// TryAllocate belongs to the caller, who must release it through the Free
// of the same memory class; Buffer does that bookkeeping.
package allocator

import (
	"go.uber.org/zap"

	gv "github.com/LynnColeArt/gudavision"
)

// Allocator is one (try-allocate, free) capability pair of a memory class.
type Allocator struct {
	class gv.MemoryClass
	rt    gv.Runtime
	log   *zap.Logger
}

// Host returns the process heap allocator.
func Host() Allocator {
	return Allocator{class: gv.Host, log: zap.NewNop()}
}

// Device returns the allocator of GPU-resident memory of rt.
func Device(rt gv.Runtime) Allocator {
	return Allocator{class: gv.Device, rt: rt, log: zap.NewNop()}
}

// DeviceHost returns the pinned host memory allocator of rt.
func DeviceHost(rt gv.Runtime) Allocator {
	return Allocator{class: gv.DeviceHost, rt: rt, log: zap.NewNop()}
}

// For returns the allocator of class, using rt for the runtime-backed ones.
func For(class gv.MemoryClass, rt gv.Runtime) Allocator {
	switch class {
	case gv.Device:
		return Device(rt)
	case gv.DeviceHost:
		return DeviceHost(rt)
	default:
		return Host()
	}
}

// WithLogger returns a copy of a that logs failed runtime calls at debug level.
func (a Allocator) WithLogger(l *zap.Logger) Allocator {
	if l != nil {
		a.log = l
	}
	return a
}

// call names the allocation entry point of the class.
func (a Allocator) call() string {
	v := gv.ActiveVendor()
	if a.rt != nil {
		v = a.rt.Vendor()
	}
	switch a.class {
	case gv.Device:
		return v.Dispatch("Malloc")
	case gv.DeviceHost:
		return v.Dispatch("MallocHost")
	}
	return "mmap"
}

// Class returns the memory class of a.
func (a Allocator) Class() gv.MemoryClass { return a.class }

func (a Allocator) String() string { return a.class.String() + " allocator" }

// TryAllocate allocates size bytes. It reports false instead of failing
// when the memory cannot be provided or the runtime call does not
// succeed; a true result always comes with a non-null pointer.
func (a Allocator) TryAllocate(size int) (gv.DevicePtr, bool) {
	if size <= 0 {
		return gv.DevicePtr{}, false
	}
	var (
		ptr gv.DevicePtr
		st  gv.Status
	)
	switch a.class {
	case gv.Host:
		var ok bool
		ptr, ok = hostAlloc(size)
		if !ok {
			a.log.Debug("host allocation failed", zap.Int("size", size))
		}
		return ptr, ok && !ptr.IsNil()
	case gv.Device:
		if a.rt == nil {
			return gv.DevicePtr{}, false
		}
		ptr, st = a.rt.Malloc(size)
	case gv.DeviceHost:
		if a.rt == nil {
			return gv.DevicePtr{}, false
		}
		ptr, st = a.rt.MallocHost(size)
	default:
		return gv.DevicePtr{}, false
	}
	if st != gv.Success || ptr.IsNil() {
		a.log.Debug("runtime allocation failed",
			zap.Stringer("class", a.class),
			zap.Int("size", size),
			zap.String("status", st.Name(a.rt.Vendor())))
		return gv.DevicePtr{}, false
	}
	return ptr, true
}

// Free releases ptr. Null and already released pointers are ignored.
func (a Allocator) Free(ptr gv.DevicePtr) {
	if ptr.IsNil() {
		return
	}
	var st gv.Status
	switch a.class {
	case gv.Host:
		hostFree(ptr)
		return
	case gv.Device:
		if a.rt == nil {
			return
		}
		st = a.rt.Free(ptr)
	case gv.DeviceHost:
		if a.rt == nil {
			return
		}
		st = a.rt.FreeHost(ptr)
	}
	if st != gv.Success {
		a.log.Debug("free ignored",
			zap.Stringer("class", a.class),
			zap.Stringer("ptr", ptr),
			zap.String("status", st.Name(a.rt.Vendor())))
	}
}
