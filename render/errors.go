package render

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat means the execution context cannot produce the
	// requested output pixel format.
	ErrUnsupportedFormat = errors.New("render: unsupported pixel format")

	// ErrDisposed means the pass was used after Dispose.
	ErrDisposed = errors.New("render: pass disposed")
)

// ExecutionError reports a backend pipeline failure during Render.
// It always carries the backend name and its diagnostic text.
type ExecutionError struct {
	Backend    string
	Diagnostic string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("render: %s backend execution failed: %s", e.Backend, e.Diagnostic)
}
