package image

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"

	"github.com/bytepress/bytepress/internal/format"
	"github.com/bytepress/bytepress/internal/processor"
)

var _ processor.Processor = (*ConvertProcessor)(nil)

type ConvertProcessor struct {
	config *processor.Config
	codec  *codec
}

func NewConvertProcessor(cfg *processor.Config) *ConvertProcessor {
	if cfg == nil {
		cfg = processor.DefaultConfig()
	}
	return &ConvertProcessor{config: cfg, codec: newCodec(cfg)}
}

func (p *ConvertProcessor) Name() string {
	return "convert"
}

func (p *ConvertProcessor) SupportedTypes() []string {
	return []string{
		"image/jpeg",
		"image/png",
		"image/webp",
		"image/gif",
		"image/bmp",
		"image/svg+xml",
	}
}

func (p *ConvertProcessor) Process(ctx context.Context, opts *processor.Options, input io.Reader) (*processor.Result, error) {
	if opts == nil || opts.Format == format.Unknown {
		return nil, fmt.Errorf("%w: target format is required", processor.ErrInvalidConfig)
	}
	if opts.Format == format.SVG {
		return nil, fmt.Errorf("%w: cannot convert to svg", processor.ErrInvalidConfig)
	}

	data, err := io.ReadAll(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", processor.ErrCorruptedFile, err)
	}

	if format.Sniff(data).Vector() {
		data, err = rasterizeSVG(ctx, data)
		if err != nil {
			return nil, err
		}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", processor.ErrCorruptedFile, err)
	}

	quality := opts.Quality
	if quality <= 0 {
		quality = p.config.Quality
	}

	out, err := p.codec.encode(ctx, img, opts.Format, quality)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &processor.Result{
		Data:        bytes.NewReader(out),
		ContentType: opts.Format.ContentType(),
		Filename:    "converted" + opts.Format.Ext(),
		Size:        int64(len(out)),
		Metadata: processor.ResultMetadata{
			Width:   bounds.Dx(),
			Height:  bounds.Dy(),
			Format:  opts.Format.String(),
			Quality: quality,
		},
	}, nil
}
