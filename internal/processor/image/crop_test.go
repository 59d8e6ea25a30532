package image

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/bytepress/bytepress/internal/processor"
)

func TestCropProcessor_Crops(t *testing.T) {
	p := NewCropProcessor(nil)
	src := encodePNG(t, noiseImage(100, 100))

	opts := &processor.Options{CropX: 10, CropY: 20, CropWidth: 30, CropHeight: 40}
	result, err := p.Process(context.Background(), opts, bytes.NewReader(src))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Metadata.Width != 30 || result.Metadata.Height != 40 {
		t.Errorf("dimensions = %dx%d, want 30x40", result.Metadata.Width, result.Metadata.Height)
	}
	if result.ContentType != "image/png" {
		t.Errorf("ContentType = %q, want image/png", result.ContentType)
	}
}

func TestCropProcessor_Validation(t *testing.T) {
	p := NewCropProcessor(nil)
	src := encodePNG(t, noiseImage(50, 50))

	tests := []struct {
		name string
		opts *processor.Options
	}{
		{"zero size", &processor.Options{CropX: 0, CropY: 0}},
		{"negative origin", &processor.Options{CropX: -1, CropY: 0, CropWidth: 10, CropHeight: 10}},
		{"outside bounds", &processor.Options{CropX: 45, CropY: 0, CropWidth: 10, CropHeight: 10}},
		{"taller than image", &processor.Options{CropX: 0, CropY: 0, CropWidth: 10, CropHeight: 60}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Process(context.Background(), tt.opts, bytes.NewReader(src))
			if !errors.Is(err, processor.ErrInvalidConfig) {
				t.Errorf("Process() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}
