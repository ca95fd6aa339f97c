package render

import (
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Context is an execution context for transform passes: the raster backend
// plus the resources it owns. At most one pass may render against a context
// at a time; Render serializes through the context mutex.
//
// A context may be shared across passes to amortize backend setup. Sharing
// is caller-owned: the caller that created the context must Release it, and
// Pass.Dispose never releases a context it did not create.
type Context struct {
	mu       sync.Mutex
	backend  Backend
	released bool
}

// NewContext creates a context backed by the software rasterizer, or by a
// registered GPU backend when one is available without a shared device.
func NewContext() *Context {
	return &Context{backend: newBackend(nil)}
}

// NewSharedContext creates a context on a caller-provided GPU device. The
// device stays owned by the provider; Release frees only backend-side
// wrappers. Falls back to the software backend when no GPU backend is
// registered or the provider has no device.
func NewSharedContext(provider gpucontext.DeviceProvider) *Context {
	return &Context{backend: newBackend(provider)}
}

// Backend returns the backend name for diagnostics.
func (c *Context) Backend() string {
	return c.backend.Name()
}

func (c *Context) execute(dst *PixelBuffer, space ColorSpace, prog Program, inputs []*Texture) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return &ExecutionError{Backend: c.backend.Name(), Diagnostic: "context released"}
	}
	return c.backend.Execute(dst, space, prog, inputs)
}

func (c *Context) supports(format gputypes.TextureFormat) bool {
	return c.backend.Supports(format)
}

// Release frees backend resources. Idempotent; releasing twice is a no-op.
func (c *Context) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return
	}
	c.released = true
	c.backend.Release()
}
