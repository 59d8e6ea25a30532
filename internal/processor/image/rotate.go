package image

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"

	"github.com/bytepress/bytepress/internal/format"
	"github.com/bytepress/bytepress/internal/processor"
	"github.com/disintegration/imaging"
)

var _ processor.Processor = (*RotateProcessor)(nil)

type RotateProcessor struct {
	config *processor.Config
	codec  *codec
}

func NewRotateProcessor(cfg *processor.Config) *RotateProcessor {
	if cfg == nil {
		cfg = processor.DefaultConfig()
	}
	return &RotateProcessor{config: cfg, codec: newCodec(cfg)}
}

func (p *RotateProcessor) Name() string {
	return "rotate"
}

func (p *RotateProcessor) SupportedTypes() []string {
	return []string{
		"image/jpeg",
		"image/png",
		"image/webp",
		"image/gif",
		"image/bmp",
	}
}

func (p *RotateProcessor) Process(ctx context.Context, opts *processor.Options, input io.Reader) (*processor.Result, error) {
	if opts == nil || (opts.Angle == 0 && !opts.FlipHorizontal && !opts.FlipVertical) {
		return nil, fmt.Errorf("%w: angle or flip is required", processor.ErrInvalidConfig)
	}

	img, srcFormat, err := decodeImage(input)
	if err != nil {
		return nil, err
	}

	rotated, err := applyRotation(img, opts.Angle)
	if err != nil {
		return nil, err
	}
	if opts.FlipHorizontal {
		rotated = imaging.FlipH(rotated)
	}
	if opts.FlipVertical {
		rotated = imaging.FlipV(rotated)
	}

	outFormat := opts.Format
	if outFormat == format.Unknown {
		outFormat = srcFormat
	}

	quality := opts.Quality
	if quality <= 0 {
		quality = p.config.Quality
	}

	data, err := p.codec.encode(ctx, rotated, outFormat, quality)
	if err != nil {
		return nil, err
	}

	bounds := rotated.Bounds()
	return &processor.Result{
		Data:        bytes.NewReader(data),
		ContentType: outFormat.ContentType(),
		Filename:    "rotated" + outFormat.Ext(),
		Size:        int64(len(data)),
		Metadata: processor.ResultMetadata{
			Width:   bounds.Dx(),
			Height:  bounds.Dy(),
			Format:  outFormat.String(),
			Quality: quality,
		},
	}, nil
}

func applyRotation(img image.Image, angle int) (image.Image, error) {
	switch angle {
	case 0:
		return img, nil
	case 90:
		return imaging.Rotate90(img), nil
	case 180:
		return imaging.Rotate180(img), nil
	case 270:
		return imaging.Rotate270(img), nil
	default:
		return nil, fmt.Errorf("%w: angle must be 90, 180 or 270, got %d", processor.ErrInvalidConfig, angle)
	}
}
