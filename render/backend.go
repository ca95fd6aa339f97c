package render

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Backend is a raster pipeline capable of executing a Program over an
// output surface. The built-in software backend always exists; GPU
// implementations register through RegisterBackend.
type Backend interface {
	// Name returns the backend name (e.g. "software", "wgpu").
	Name() string

	// Supports reports whether the backend can produce the format.
	Supports(format gputypes.TextureFormat) bool

	// Execute runs the program once per pixel of dst, writing encoded
	// output. Synchronous: it returns only after dst is complete.
	Execute(dst *PixelBuffer, space ColorSpace, prog Program, inputs []*Texture) error

	// Release frees backend-owned resources. Idempotent.
	Release()
}

// BackendFactory builds a Backend against a shared GPU device. Factories
// returning an error are skipped and the software backend is used instead.
type BackendFactory func(provider gpucontext.DeviceProvider) (Backend, error)

var (
	factoryMu sync.RWMutex
	factory   BackendFactory
)

// RegisterBackend installs a GPU backend factory. Only one factory can be
// registered; subsequent calls replace the previous one. Typically called
// from a backend package's init via blank import.
func RegisterBackend(f BackendFactory) {
	factoryMu.Lock()
	factory = f
	factoryMu.Unlock()
}

func newBackend(provider gpucontext.DeviceProvider) Backend {
	factoryMu.RLock()
	f := factory
	factoryMu.RUnlock()
	if f != nil && provider != nil && provider.Device() != nil {
		b, err := f(provider)
		if err == nil {
			return b
		}
		Logger().Warn("GPU backend unavailable, falling back to software", "err", err)
	}
	return &softwareBackend{}
}

// softwareBackend executes programs on the CPU, one row at a time.
type softwareBackend struct{}

func (softwareBackend) Name() string { return "software" }

func (softwareBackend) Supports(format gputypes.TextureFormat) bool {
	return FormatSupported(format)
}

func (softwareBackend) Execute(dst *PixelBuffer, space ColorSpace, prog Program, inputs []*Texture) (err error) {
	if dst == nil {
		return &ExecutionError{Backend: "software", Diagnostic: "nil output surface"}
	}
	if prog == nil {
		return &ExecutionError{Backend: "software", Diagnostic: "nil transform program"}
	}
	for _, in := range inputs {
		if in == nil || in.buf == nil {
			return &ExecutionError{Backend: "software", Diagnostic: "nil input binding"}
		}
	}
	// A panicking program is reported as a pipeline failure, not a crash.
	defer func() {
		if r := recover(); r != nil {
			err = &ExecutionError{
				Backend:    "software",
				Diagnostic: fmt.Sprintf("program %q panicked: %v", prog.Name(), r),
			}
		}
	}()
	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			dst.Set(x, y, space.encode(prog.Shade(x, y, inputs)))
		}
	}
	return nil
}

func (softwareBackend) Release() {}
