package render_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/hdrkit/gainmap/render"
)

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	render.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer render.SetLogger(nil)

	p, err := render.NewPass(2, 2, gputypes.TextureFormatRGBA8Unorm,
		render.ColorSpaceLinear, fillProgram{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Dispose()
	if err := p.Render(); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "render pass") || !strings.Contains(out, "program=fill") {
		t.Fatalf("debug log missing pass record: %q", out)
	}

	// Restoring the default silences output again.
	render.SetLogger(nil)
	buf.Reset()
	if err := p.Render(); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Fatalf("default logger produced output: %q", buf.String())
	}
}
