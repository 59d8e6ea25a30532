package image

import (
	"bytes"
	"context"
	"testing"

	"github.com/bytepress/bytepress/internal/format"
)

func TestUpscaleIfNeeded_LargeInputPassesThrough(t *testing.T) {
	data := make([]byte, upscaleFloorBytes)
	out := UpscaleIfNeeded(context.Background(), data)

	if out.Upscaled {
		t.Error("input at the floor should pass through untouched")
	}
	if !bytes.Equal(out.Data, data) {
		t.Error("passthrough should return the input bytes")
	}
}

func TestUpscaleIfNeeded_TinyResultGetsScaled(t *testing.T) {
	src := encodeJPEG(t, noiseImage(50, 50), 40)
	if int64(len(src)) >= upscaleFloorBytes {
		t.Fatalf("test image is %d bytes, expected under the floor", len(src))
	}

	out := UpscaleIfNeeded(context.Background(), src)
	if !out.Upscaled {
		t.Fatal("tiny result should be upscaled")
	}

	// A few-KB source hits the 4x clamp.
	if out.Width != 200 || out.Height != 200 {
		t.Errorf("dimensions = %dx%d, want 200x200 at the 4x clamp", out.Width, out.Height)
	}
	if format.Sniff(out.Data) != format.JPEG {
		t.Error("upscaled output should be JPEG")
	}
	if len(out.Data) == 0 {
		t.Error("upscaled output should not be empty")
	}
}

func TestUpscaleIfNeeded_AspectRatioPreserved(t *testing.T) {
	src := encodeJPEG(t, noiseImage(60, 30), 40)
	out := UpscaleIfNeeded(context.Background(), src)
	if !out.Upscaled {
		t.Fatal("tiny result should be upscaled")
	}
	if out.Width != 2*out.Height {
		t.Errorf("dimensions = %dx%d, want 2:1 aspect preserved", out.Width, out.Height)
	}
}

func TestUpscaleIfNeeded_DecodeFailureFallsBack(t *testing.T) {
	data := []byte("definitely not an image")
	out := UpscaleIfNeeded(context.Background(), data)

	if out.Upscaled {
		t.Error("undecodable input must fall back to passthrough")
	}
	if !bytes.Equal(out.Data, data) {
		t.Error("fallback should return the input bytes")
	}
}

func TestUpscaleIfNeeded_RunsOnce(t *testing.T) {
	src := encodeJPEG(t, noiseImage(50, 50), 40)
	first := UpscaleIfNeeded(context.Background(), src)
	if !first.Upscaled {
		t.Fatal("expected first pass to upscale")
	}

	// The guard is single-pass by contract: callers never re-feed the output.
	// If they did, a still-small result would scale again, so this documents
	// that the caller owns the once-only rule.
	if int64(len(first.Data)) < upscaleFloorBytes {
		second := UpscaleIfNeeded(context.Background(), first.Data)
		if second.Upscaled && second.Width > 4*first.Width {
			t.Error("second pass scaled beyond the clamp")
		}
	}
}
