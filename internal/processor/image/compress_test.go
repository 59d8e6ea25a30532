package image

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/bytepress/bytepress/internal/processor"
	"github.com/bytepress/bytepress/internal/targetsize"
)

func TestCompressProcessor_Name(t *testing.T) {
	p := NewCompressProcessor(nil)
	if p.Name() != "compress" {
		t.Errorf("Name() = %q, want compress", p.Name())
	}
}

func TestCompressProcessor_RequiresTarget(t *testing.T) {
	p := NewCompressProcessor(nil)
	src := encodeJPEG(t, noiseImage(32, 32), 90)

	_, err := p.Process(context.Background(), &processor.Options{}, bytes.NewReader(src))
	if !errors.Is(err, processor.ErrInvalidConfig) {
		t.Errorf("Process without target = %v, want ErrInvalidConfig", err)
	}

	_, err = p.Process(context.Background(), nil, bytes.NewReader(src))
	if !errors.Is(err, processor.ErrInvalidConfig) {
		t.Errorf("Process with nil options = %v, want ErrInvalidConfig", err)
	}
}

func TestCompressProcessor_GenerousTarget(t *testing.T) {
	p := NewCompressProcessor(nil)
	src := encodeJPEG(t, noiseImage(64, 64), 90)

	opts := &processor.Options{TargetSizeBytes: int64(len(src)) * 4}
	result, err := p.Process(context.Background(), opts, bytes.NewReader(src))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if !result.Metadata.TargetMet {
		t.Error("generous target should be met")
	}
	if result.Metadata.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1 for a generous target", result.Metadata.Attempts)
	}
	if result.Metadata.Quality != 90 {
		t.Errorf("Quality = %d, want the starting knob 90", result.Metadata.Quality)
	}
	if result.ContentType != "image/jpeg" {
		t.Errorf("ContentType = %q, want image/jpeg", result.ContentType)
	}
	if result.Metadata.Width != 64 || result.Metadata.Height != 64 {
		t.Errorf("dimensions = %dx%d, want 64x64", result.Metadata.Width, result.Metadata.Height)
	}
}

func TestCompressProcessor_SteppedDescent(t *testing.T) {
	p := NewCompressProcessor(nil)
	src := encodeJPEG(t, noiseImage(128, 128), 95)

	// Roughly half of the source size forces the search to step down.
	opts := &processor.Options{TargetSizeBytes: int64(len(src)) / 2}
	result, err := p.Process(context.Background(), opts, bytes.NewReader(src))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	limit := int64(float64(opts.TargetSizeBytes) * (1 + targetsize.Fine.ToleranceRatio))
	if result.Metadata.TargetMet {
		if result.Metadata.AchievedSize > limit {
			t.Errorf("AchievedSize = %d exceeds tolerance limit %d", result.Metadata.AchievedSize, limit)
		}
	} else if result.Metadata.Quality != targetsize.Fine.AggressiveFloor {
		t.Errorf("missed target should end at the aggressive floor %d, got quality %d",
			targetsize.Fine.AggressiveFloor, result.Metadata.Quality)
	}
	if result.Metadata.Attempts < 1 {
		t.Errorf("Attempts = %d, want at least 1", result.Metadata.Attempts)
	}
	if result.Size != result.Metadata.AchievedSize {
		t.Errorf("Size = %d, Metadata.AchievedSize = %d, want equal", result.Size, result.Metadata.AchievedSize)
	}
}

func TestCompressProcessor_UnreachableTargetBestEffort(t *testing.T) {
	p := NewCompressProcessor(nil)
	src := encodeJPEG(t, noiseImage(128, 128), 95)

	opts := &processor.Options{TargetSizeBytes: 100}
	result, err := p.Process(context.Background(), opts, bytes.NewReader(src))
	if err != nil {
		t.Fatalf("Process() error = %v, want best-effort result", err)
	}
	if result.Metadata.TargetMet {
		t.Error("a 100 byte target should not be met")
	}
	if result.Metadata.Quality != targetsize.Fine.AggressiveFloor {
		t.Errorf("Quality = %d, want aggressive floor %d", result.Metadata.Quality, targetsize.Fine.AggressiveFloor)
	}
	if result.Size <= 0 {
		t.Error("best-effort result should still carry bytes")
	}
}

func TestCompressProcessor_PercentTarget(t *testing.T) {
	p := NewCompressProcessor(nil)
	src := encodeJPEG(t, noiseImage(64, 64), 95)

	opts := &processor.Options{TargetPercent: 90}
	result, err := p.Process(context.Background(), opts, bytes.NewReader(src))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Size <= 0 {
		t.Error("expected a non-empty result")
	}
}

func TestCompressProcessor_PNGStaysPNG(t *testing.T) {
	p := NewCompressProcessor(nil)
	src := encodePNG(t, flatImage(64, 64))

	opts := &processor.Options{TargetSizeBytes: int64(len(src)) * 4}
	result, err := p.Process(context.Background(), opts, bytes.NewReader(src))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.ContentType != "image/png" {
		t.Errorf("ContentType = %q, want image/png", result.ContentType)
	}
	if result.Metadata.Format != "png" {
		t.Errorf("Format = %q, want png", result.Metadata.Format)
	}
}

func TestCompressProcessor_CorruptInput(t *testing.T) {
	p := NewCompressProcessor(nil)
	opts := &processor.Options{TargetSizeBytes: 1000}

	_, err := p.Process(context.Background(), opts, bytes.NewReader([]byte("not an image")))
	if !errors.Is(err, processor.ErrCorruptedFile) {
		t.Errorf("Process(garbage) = %v, want ErrCorruptedFile", err)
	}
}

func TestCompressProcessor_FileTooLarge(t *testing.T) {
	cfg := processor.DefaultConfig()
	cfg.MaxFileSize = 10
	p := NewCompressProcessor(cfg)
	src := encodeJPEG(t, noiseImage(32, 32), 90)

	_, err := p.Process(context.Background(), &processor.Options{TargetSizeBytes: 1000}, bytes.NewReader(src))
	if !errors.Is(err, processor.ErrFileTooLarge) {
		t.Errorf("Process(oversized) = %v, want ErrFileTooLarge", err)
	}
}

func TestCompressProcessor_QualityOverridesStartingKnob(t *testing.T) {
	p := NewCompressProcessor(nil)
	src := encodeJPEG(t, noiseImage(64, 64), 90)

	opts := &processor.Options{TargetSizeBytes: int64(len(src)) * 4, Quality: 70}
	result, err := p.Process(context.Background(), opts, bytes.NewReader(src))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Metadata.Quality != 70 {
		t.Errorf("Quality = %d, want the requested starting knob 70", result.Metadata.Quality)
	}
}
