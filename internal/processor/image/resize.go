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

var _ processor.Processor = (*ResizeProcessor)(nil)

type ResizeProcessor struct {
	config *processor.Config
	codec  *codec
}

func NewResizeProcessor(cfg *processor.Config) *ResizeProcessor {
	if cfg == nil {
		cfg = processor.DefaultConfig()
	}
	return &ResizeProcessor{config: cfg, codec: newCodec(cfg)}
}

func (p *ResizeProcessor) Name() string {
	return "resize"
}

func (p *ResizeProcessor) SupportedTypes() []string {
	return []string{
		"image/jpeg",
		"image/png",
		"image/webp",
		"image/gif",
		"image/bmp",
	}
}

func (p *ResizeProcessor) Process(ctx context.Context, opts *processor.Options, input io.Reader) (*processor.Result, error) {
	if opts == nil || (opts.Width <= 0 && opts.Height <= 0) {
		return nil, fmt.Errorf("%w: width or height is required", processor.ErrInvalidConfig)
	}

	img, srcFormat, err := decodeImage(input)
	if err != nil {
		return nil, err
	}

	origBounds := img.Bounds()
	targetW, targetH := fillDimensions(origBounds.Dx(), origBounds.Dy(), opts.Width, opts.Height)
	resized := resizeWithFit(img, targetW, targetH, opts.Fit)

	outFormat := opts.Format
	if outFormat == format.Unknown {
		outFormat = srcFormat
	}

	quality := opts.Quality
	if quality <= 0 {
		quality = p.config.Quality
	}

	data, err := p.codec.encode(ctx, resized, outFormat, quality)
	if err != nil {
		return nil, err
	}

	actual := resized.Bounds()
	return &processor.Result{
		Data:        bytes.NewReader(data),
		ContentType: outFormat.ContentType(),
		Filename:    "resized" + outFormat.Ext(),
		Size:        int64(len(data)),
		Metadata: processor.ResultMetadata{
			Width:   actual.Dx(),
			Height:  actual.Dy(),
			Format:  outFormat.String(),
			Quality: quality,
		},
	}, nil
}

func resizeWithFit(img image.Image, width, height int, fit string) image.Image {
	switch fit {
	case "cover":
		return imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)
	case "fill":
		return imaging.Resize(img, width, height, imaging.Lanczos)
	default:
		return imaging.Fit(img, width, height, imaging.Lanczos)
	}
}

// fillDimensions completes a missing dimension from the source aspect ratio.
func fillDimensions(origW, origH, targetW, targetH int) (int, int) {
	if targetW == 0 && targetH == 0 {
		return origW, origH
	}
	if targetW == 0 {
		ratio := float64(origW) / float64(origH)
		targetW = int(float64(targetH) * ratio)
	} else if targetH == 0 {
		ratio := float64(origH) / float64(origW)
		targetH = int(float64(targetW) * ratio)
	}
	return targetW, targetH
}

// decodeImage decodes a raster payload and maps the stdlib format name onto
// the service's format enum. Formats we can decode but not encode (gif, bmp)
// come back as JPEG so downstream encodes have a valid target.
func decodeImage(input io.Reader) (image.Image, format.Format, error) {
	img, name, err := image.Decode(input)
	if err != nil {
		return nil, format.Unknown, fmt.Errorf("%w: %v", processor.ErrCorruptedFile, err)
	}
	f, err := format.Parse(name)
	if err != nil {
		f = format.JPEG
	}
	return img, f, nil
}
