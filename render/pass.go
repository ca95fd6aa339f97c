package render

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Pass executes a transform program over a full output surface.
//
// Lifecycle: NewPass allocates the surface, SetInputs binds textures,
// Render executes (repeatable after mutating program parameters),
// ReadPixels copies the surface to the host, Texture exposes it to a
// downstream pass without a host round-trip, Dispose releases it.
type Pass struct {
	width    int
	height   int
	format   gputypes.TextureFormat
	space    ColorSpace
	prog     Program
	ctx      *Context
	ownsCtx  bool
	out      *PixelBuffer
	inputs   []*Texture
	rendered bool
	disposed bool
}

// NewPass allocates an output surface of the given size and format.
//
// ctx may be nil, in which case the pass creates and owns a context and
// releases it on Dispose. A caller-supplied ctx is shared: the pass never
// releases it. Fails with ErrUnsupportedFormat when the context's backend
// cannot produce the format; nothing is left allocated on failure.
func NewPass(width, height int, format gputypes.TextureFormat, space ColorSpace, prog Program, ctx *Context) (*Pass, error) {
	ownsCtx := false
	if ctx == nil {
		ctx = NewContext()
		ownsCtx = true
	}
	if !ctx.supports(format) {
		if ownsCtx {
			ctx.Release()
		}
		return nil, fmt.Errorf("%w: %v on %s backend", ErrUnsupportedFormat, format, ctx.Backend())
	}
	out, err := NewPixelBuffer(width, height, format)
	if err != nil {
		if ownsCtx {
			ctx.Release()
		}
		return nil, err
	}
	return &Pass{
		width:   width,
		height:  height,
		format:  format,
		space:   space,
		prog:    prog,
		ctx:     ctx,
		ownsCtx: ownsCtx,
		out:     out,
	}, nil
}

// SetInputs binds input textures in program order. Rebinding between
// renders is allowed.
func (p *Pass) SetInputs(inputs ...*Texture) {
	p.inputs = inputs
}

// Program returns the bound transform program, for parameter mutation
// between renders.
func (p *Pass) Program() Program { return p.prog }

// Width returns the output surface width.
func (p *Pass) Width() int { return p.width }

// Height returns the output surface height.
func (p *Pass) Height() int { return p.height }

// Render executes the program once per output pixel, regenerating the
// output surface in place. On backend failure every pass-owned resource is
// released before the error propagates, so a failed pass leaks nothing;
// the pass is unusable afterwards.
func (p *Pass) Render() error {
	if p.disposed {
		return ErrDisposed
	}
	Logger().Debug("render pass",
		"program", p.prog.Name(),
		"backend", p.ctx.Backend(),
		"size", fmt.Sprintf("%dx%d", p.width, p.height))
	if err := p.ctx.execute(p.out, p.space, p.prog, p.inputs); err != nil {
		p.Dispose()
		return err
	}
	p.rendered = true
	return nil
}

// ReadPixels synchronously copies the output surface into a host buffer.
// It blocks until the backend pipeline has completed the last Render.
func (p *Pass) ReadPixels() (*PixelBuffer, error) {
	if p.disposed {
		return nil, ErrDisposed
	}
	if !p.rendered {
		return nil, fmt.Errorf("render: pass %q read before render", p.prog.Name())
	}
	return p.out.Clone(), nil
}

// Texture exposes the output surface as a sampleable input for a
// downstream pass, without copying. The texture aliases the surface and is
// invalidated by Dispose.
func (p *Pass) Texture() (*Texture, error) {
	if p.disposed {
		return nil, ErrDisposed
	}
	if !p.rendered {
		return nil, fmt.Errorf("render: pass %q sampled before render", p.prog.Name())
	}
	return NewTexture(p.out), nil
}

// Dispose releases the output surface, input bindings, and the execution
// context when the pass owns it. Safe to call multiple times.
func (p *Pass) Dispose() {
	if p.disposed {
		return
	}
	p.disposed = true
	p.out = nil
	p.inputs = nil
	if p.ownsCtx {
		p.ctx.Release()
	}
}
