package image

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/bytepress/bytepress/internal/processor"
)

// Vector sources cannot be quality-compressed directly; they are rasterized
// once, at a fixed density, before any codec work.
const rasterizeDPI = "300"

func rsvgAvailable() bool {
	_, err := exec.LookPath("rsvg-convert")
	return err == nil
}

// rasterizeSVG renders an SVG document to PNG at 300 DPI via rsvg-convert.
func rasterizeSVG(ctx context.Context, data []byte) ([]byte, error) {
	if !rsvgAvailable() {
		return nil, fmt.Errorf("%w: rsvg-convert binary not available", processor.ErrProcessingFailed)
	}

	cmd := exec.CommandContext(ctx, "rsvg-convert",
		"--format", "png",
		"--dpi-x", rasterizeDPI,
		"--dpi-y", rasterizeDPI,
	)
	cmd.Stdin = bytes.NewReader(data)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("rsvg-convert failed: %w, stderr: %s", err, stderr.String())
	}

	return stdout.Bytes(), nil
}
