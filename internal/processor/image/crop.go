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

var _ processor.Processor = (*CropProcessor)(nil)

type CropProcessor struct {
	config *processor.Config
	codec  *codec
}

func NewCropProcessor(cfg *processor.Config) *CropProcessor {
	if cfg == nil {
		cfg = processor.DefaultConfig()
	}
	return &CropProcessor{config: cfg, codec: newCodec(cfg)}
}

func (p *CropProcessor) Name() string {
	return "crop"
}

func (p *CropProcessor) SupportedTypes() []string {
	return []string{
		"image/jpeg",
		"image/png",
		"image/webp",
		"image/gif",
		"image/bmp",
	}
}

func (p *CropProcessor) Process(ctx context.Context, opts *processor.Options, input io.Reader) (*processor.Result, error) {
	if opts == nil || opts.CropWidth <= 0 || opts.CropHeight <= 0 {
		return nil, fmt.Errorf("%w: crop width and height are required", processor.ErrInvalidConfig)
	}
	if opts.CropX < 0 || opts.CropY < 0 {
		return nil, fmt.Errorf("%w: crop origin must not be negative", processor.ErrInvalidConfig)
	}

	img, srcFormat, err := decodeImage(input)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	if opts.CropX+opts.CropWidth > bounds.Dx() || opts.CropY+opts.CropHeight > bounds.Dy() {
		return nil, fmt.Errorf("%w: crop rectangle %dx%d+%d+%d outside image bounds %dx%d",
			processor.ErrInvalidConfig, opts.CropWidth, opts.CropHeight, opts.CropX, opts.CropY,
			bounds.Dx(), bounds.Dy())
	}

	rect := image.Rect(opts.CropX, opts.CropY, opts.CropX+opts.CropWidth, opts.CropY+opts.CropHeight)
	cropped := imaging.Crop(img, rect)

	outFormat := opts.Format
	if outFormat == format.Unknown {
		outFormat = srcFormat
	}

	quality := opts.Quality
	if quality <= 0 {
		quality = p.config.Quality
	}

	data, err := p.codec.encode(ctx, cropped, outFormat, quality)
	if err != nil {
		return nil, err
	}

	return &processor.Result{
		Data:        bytes.NewReader(data),
		ContentType: outFormat.ContentType(),
		Filename:    "cropped" + outFormat.Ext(),
		Size:        int64(len(data)),
		Metadata: processor.ResultMetadata{
			Width:   opts.CropWidth,
			Height:  opts.CropHeight,
			Format:  outFormat.String(),
			Quality: quality,
		},
	}, nil
}
