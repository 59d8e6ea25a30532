package processor

import (
	"context"
	"errors"
	"io"

	"github.com/bytepress/bytepress/internal/format"
)

var (
	ErrUnsupportedType  = errors.New("processor: unsupported file type")
	ErrProcessingFailed = errors.New("processor: processing failed")
	ErrInvalidConfig    = errors.New("processor: invalid configuration")
	ErrFileTooLarge     = errors.New("processor: file too large")
	ErrCorruptedFile    = errors.New("processor: file appears corrupted")
)

type Processor interface {
	Process(ctx context.Context, opts *Options, input io.Reader) (*Result, error)
	SupportedTypes() []string
	Name() string
}

// Options carries the request-scoped parameters for one operation. Fields not
// relevant to a given processor are ignored by it.
type Options struct {
	Width   int
	Height  int
	Quality int
	Fit     string
	Format  format.Format

	// Target-size compression.
	TargetSizeBytes int64
	TargetPercent   float64
	ToleranceRatio  float64

	// Crop rectangle, in source pixel coordinates.
	CropX, CropY, CropWidth, CropHeight int

	// Rotation in degrees (90, 180, 270) and mirroring.
	Angle          int
	FlipHorizontal bool
	FlipVertical   bool
}

type Result struct {
	Data        io.Reader
	ContentType string
	Filename    string
	Size        int64
	Metadata    ResultMetadata
}

type ResultMetadata struct {
	Width        int     `json:"width,omitempty"`
	Height       int     `json:"height,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
	Format       string  `json:"format,omitempty"`
	Quality      int     `json:"quality,omitempty"`
	Attempts     int     `json:"attempts,omitempty"`
	TargetMet    bool    `json:"target_met,omitempty"`
	AchievedSize int64   `json:"achieved_size,omitempty"`
	Upscaled     bool    `json:"upscaled,omitempty"`
}

type Config struct {
	MaxFileSize  int64
	TempDir      string
	Quality      int
	MaxDimension int
}

func DefaultConfig() *Config {
	return &Config{
		MaxFileSize:  100 * 1024 * 1024,
		TempDir:      "/tmp/bytepress",
		Quality:      85,
		MaxDimension: 4096,
	}
}
