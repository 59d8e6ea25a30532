package image

import (
	"bytes"
	"context"
	"image"
	"math"

	"github.com/bytepress/bytepress/internal/logger"
	"github.com/disintegration/imaging"
)

const (
	// Outputs under this size tend to look broken on a viewing device.
	upscaleFloorBytes = 100 * 1024

	// Midpoint of the 190-200KB band the guard aims for.
	upscaleTargetBytes = 195 * 1024

	maxUpscaleFactor = 4.0
	upscaleQuality   = 90
)

// UpscaleOutcome reports what the guard did. When Upscaled is false the bytes
// are the caller's input, untouched.
type UpscaleOutcome struct {
	Data     []byte
	Width    int
	Height   int
	Upscaled bool
}

// UpscaleIfNeeded is the safety net applied after a transform pipeline
// completes. Results under 100KB are scaled up toward the target band and
// re-encoded as JPEG at quality 90; everything else passes through untouched.
//
// Byte size tracks pixel count, and pixel count tracks the square of the
// linear scale, so the factor is the square root of the size ratio, clamped
// to 4x. The guard runs exactly once: the upscaled result is never re-checked
// against the floor. A failure inside the guard must not discard the primary
// result, so every error path falls back to the input with Upscaled=false.
func UpscaleIfNeeded(ctx context.Context, data []byte) *UpscaleOutcome {
	passthrough := func() *UpscaleOutcome {
		return &UpscaleOutcome{Data: data, Upscaled: false}
	}

	if int64(len(data)) >= upscaleFloorBytes {
		return passthrough()
	}

	log := logger.FromContext(ctx)

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		log.Warn("upscale guard: decode failed, keeping original", "error", err)
		return passthrough()
	}

	factor := math.Sqrt(float64(upscaleTargetBytes) / float64(len(data)))
	if factor > maxUpscaleFactor {
		factor = maxUpscaleFactor
	}

	bounds := img.Bounds()
	newW := int(math.Round(float64(bounds.Dx()) * factor))
	newH := int(math.Round(float64(bounds.Dy()) * factor))

	// Exact target dimensions, no letterboxing.
	scaled := imaging.Resize(img, newW, newH, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, scaled, imaging.JPEG, imaging.JPEGQuality(upscaleQuality)); err != nil {
		log.Warn("upscale guard: encode failed, keeping original", "error", err)
		return passthrough()
	}

	return &UpscaleOutcome{
		Data:     buf.Bytes(),
		Width:    newW,
		Height:   newH,
		Upscaled: true,
	}
}
