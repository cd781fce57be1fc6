package gudavision

import (
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// DeviceProperties describes the compute device behind an Engine: the host CPU
// with its cores and a bounded amount of device memory.
type DeviceProperties struct {
	ID         int      // Unique device identifier
	Name       string   // Human-readable device name
	TotalMem   uint64   // Device memory capacity in bytes
	NumCores   int      // Number of CPU cores, reported as multiprocessors
	MaxThreads int      // Maximum threads per multiprocessor
	Features   []string // Instruction set extensions detected at startup
}

// Engine is a Runtime that executes kernels on the host CPU with the
// stream, memory and launch semantics of a GPU runtime. It answers to the
// symbol names of whichever vendor the binary was built for.
type Engine struct {
	vendor        Vendor
	device        *DeviceProperties
	memory        *MemoryPool
	queueDepth    int
	workers       int
	strictPinning bool
	log           *zap.Logger

	mu            sync.Mutex
	streams       map[int]*Stream
	streamID      int32
	defaultStream *Stream
	pinned        map[uintptr][]byte
}

// Option configures an Engine.
type Option func(*Engine)

// WithVendor overrides the vendor the engine reports.
func WithVendor(v Vendor) Option { return func(e *Engine) { e.vendor = v } }

// WithMemoryLimit bounds the device memory pool.
func WithMemoryLimit(bytes int64) Option {
	return func(e *Engine) {
		if bytes > 0 {
			e.device.TotalMem = uint64(bytes)
		}
	}
}

// WithQueueDepth sets how many tasks a stream buffers before Submit blocks.
func WithQueueDepth(n int) Option { return func(e *Engine) { e.queueDepth = n } }

// WithWorkers sets the number of goroutines a launch fans out to.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithStrictPinning makes MallocHost fail when the pages cannot be locked.
func WithStrictPinning(strict bool) Option { return func(e *Engine) { e.strictPinning = strict } }

// WithDeviceName sets the reported device name.
func WithDeviceName(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.device.Name = name
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine creates an engine with its default stream.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		vendor: ActiveVendor(),
		device: &DeviceProperties{
			ID:         0,
			Name:       "CPU",
			TotalMem:   DefaultDeviceMemory,
			NumCores:   runtime.NumCPU(),
			MaxThreads: MaxThreadsPerBlock,
			Features:   cpuFeatureList(),
		},
		queueDepth: DefaultStreamQueueDepth,
		workers:    runtime.NumCPU(),
		log:        zap.NewNop(),
		streams:    make(map[int]*Stream),
		pinned:     make(map[uintptr][]byte),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.memory = NewMemoryPool(int64(e.device.TotalMem))
	e.defaultStream, _ = e.StreamCreate()

	e.log.Info("engine created",
		zap.String("vendor", e.vendor.Name),
		zap.String("device", e.device.Name),
		zap.Uint64("memory", e.device.TotalMem),
		zap.Int("workers", e.workers),
		zap.Strings("features", e.device.Features))
	return e
}

// Vendor implements Runtime.
func (e *Engine) Vendor() Vendor { return e.vendor }

// Device returns the device description.
func (e *Engine) Device() *DeviceProperties { return e.device }

// DefaultStream returns the stream used when a nil stream is passed.
func (e *Engine) DefaultStream() *Stream { return e.defaultStream }

// MemoryStats returns allocated and peak device memory in bytes.
func (e *Engine) MemoryStats() (allocated, peak int64) { return e.memory.GetStats() }

// Malloc implements Runtime.
func (e *Engine) Malloc(size int) (DevicePtr, Status) {
	ptr, st := e.memory.Allocate(size)
	if st != Success {
		e.log.Debug("device allocation failed",
			zap.String("call", e.vendor.Dispatch("Malloc")),
			zap.Int("size", size),
			zap.Stringer("status", vendorStatus{st, e.vendor}))
	}
	return ptr, st
}

// Free implements Runtime.
func (e *Engine) Free(ptr DevicePtr) Status {
	return e.memory.Free(ptr)
}

// DeviceGetAttribute implements Runtime.
func (e *Engine) DeviceGetAttribute(attr Attribute) (int, Status) {
	switch attr {
	case AttrMultiProcessorCount:
		return e.device.NumCores, Success
	case AttrMaxThreadsPerMultiProcessor:
		return e.device.MaxThreads, Success
	case AttrMaxSharedMemoryPerBlockOptin:
		return L2CacheSize, Success
	}
	return 0, ErrorInvalidValue
}

// StreamCreate implements Runtime.
func (e *Engine) StreamCreate() (*Stream, Status) {
	id := int(atomic.AddInt32(&e.streamID, 1))
	s := newStream(id, e.queueDepth)

	e.mu.Lock()
	e.streams[id] = s
	e.mu.Unlock()

	e.log.Debug("stream created", zap.Int("stream", id))
	return s, Success
}

// StreamDestroy implements Runtime. Pending work is drained first.
func (e *Engine) StreamDestroy(stream *Stream) Status {
	if stream == nil || stream == e.defaultStream {
		return ErrorInvalidResourceHandle
	}
	e.mu.Lock()
	_, ok := e.streams[stream.id]
	delete(e.streams, stream.id)
	e.mu.Unlock()
	if !ok {
		return ErrorInvalidResourceHandle
	}
	stream.destroy()
	return Success
}

// StreamSynchronize implements Runtime.
func (e *Engine) StreamSynchronize(stream *Stream) Status {
	return e.stream(stream).Synchronize()
}

// DeviceSynchronize waits for all streams and returns the first failure.
func (e *Engine) DeviceSynchronize() Status {
	e.mu.Lock()
	streams := make([]*Stream, 0, len(e.streams))
	for _, s := range e.streams {
		streams = append(streams, s)
	}
	e.mu.Unlock()

	result := Success
	for _, s := range streams {
		if st := s.Synchronize(); st != Success && result == Success {
			result = st
		}
	}
	return result
}

// MemcpyAsync implements Runtime.
func (e *Engine) MemcpyAsync(stream *Stream, dst, src DevicePtr, size int, kind MemcpyKind) Status {
	if size < 0 || size > dst.Size() || size > src.Size() {
		return ErrorInvalidValue
	}
	if size == 0 {
		return Success
	}
	if dst.IsNil() || src.IsNil() {
		return ErrorInvalidDevicePointer
	}
	return e.stream(stream).Submit(func() {
		copy(dst.Byte()[:size], src.Byte()[:size])
	})
}

// Destroy synchronizes and tears down every stream.
func (e *Engine) Destroy() {
	e.DeviceSynchronize()

	e.mu.Lock()
	streams := e.streams
	e.streams = make(map[int]*Stream)
	e.mu.Unlock()

	for _, s := range streams {
		s.destroy()
	}
	e.log.Debug("engine destroyed", zap.Int("streams", len(streams)))
}

func (e *Engine) stream(s *Stream) *Stream {
	if s == nil {
		return e.defaultStream
	}
	return s
}

// vendorStatus renders a status with a specific vendor's naming.
type vendorStatus struct {
	st Status
	v  Vendor
}

func (s vendorStatus) String() string { return s.st.Name(s.v) }
