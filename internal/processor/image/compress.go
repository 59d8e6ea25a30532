package image

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/bytepress/bytepress/internal/format"
	"github.com/bytepress/bytepress/internal/metrics"
	"github.com/bytepress/bytepress/internal/processor"
	"github.com/bytepress/bytepress/internal/targetsize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var _ processor.Processor = (*CompressProcessor)(nil)

// CompressProcessor re-encodes an image so its byte size lands at or under a
// requested target, searching the quality knob with a stepped descent.
type CompressProcessor struct {
	config *processor.Config
	search targetsize.Config
	codec  *codec
}

func NewCompressProcessor(cfg *processor.Config) *CompressProcessor {
	if cfg == nil {
		cfg = processor.DefaultConfig()
	}
	return &CompressProcessor{
		config: cfg,
		search: targetsize.Fine,
		codec:  newCodec(cfg),
	}
}

func (p *CompressProcessor) Name() string {
	return "compress"
}

func (p *CompressProcessor) SupportedTypes() []string {
	return []string{
		"image/jpeg",
		"image/png",
		"image/webp",
		"image/svg+xml",
	}
}

func (p *CompressProcessor) Process(ctx context.Context, opts *processor.Options, input io.Reader) (*processor.Result, error) {
	if opts == nil || (opts.TargetSizeBytes <= 0 && opts.TargetPercent <= 0) {
		return nil, fmt.Errorf("%w: target size is required", processor.ErrInvalidConfig)
	}

	data, err := io.ReadAll(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", processor.ErrCorruptedFile, err)
	}
	if p.config.MaxFileSize > 0 && int64(len(data)) > p.config.MaxFileSize {
		return nil, processor.ErrFileTooLarge
	}

	sourceFormat := format.Sniff(data)
	if sourceFormat.Vector() {
		data, err = rasterizeSVG(ctx, data)
		if err != nil {
			return nil, err
		}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", processor.ErrCorruptedFile, err)
	}

	outFormat, err := p.outputFormat(opts, sourceFormat)
	if err != nil {
		return nil, err
	}

	target := opts.TargetSizeBytes
	if target <= 0 {
		target = int64(float64(len(data)) * opts.TargetPercent / 100.0)
	}

	cfg := p.search
	if opts.ToleranceRatio > 0 {
		cfg.ToleranceRatio = opts.ToleranceRatio
	}
	if opts.Quality > 0 {
		cfg.InitialKnob = opts.Quality
	}

	out, err := targetsize.Search(ctx, func(ctx context.Context, knob int) ([]byte, error) {
		return p.codec.encode(ctx, img, outFormat, knob)
	}, target, cfg)
	if err != nil {
		return nil, err
	}

	metrics.ObserveCompression(outFormat.String(), int64(len(data)), out.AchievedSize, out.AttemptsUsed, out.TargetMet)

	bounds := img.Bounds()
	return &processor.Result{
		Data:        bytes.NewReader(out.Bytes),
		ContentType: outFormat.ContentType(),
		Filename:    "compressed" + outFormat.Ext(),
		Size:        out.AchievedSize,
		Metadata: processor.ResultMetadata{
			Width:        bounds.Dx(),
			Height:       bounds.Dy(),
			Format:       outFormat.String(),
			Quality:      out.KnobUsed,
			Attempts:     out.AttemptsUsed,
			TargetMet:    out.TargetMet,
			AchievedSize: out.AchievedSize,
		},
	}, nil
}

// outputFormat resolves the encode target. SVG is an input-only format here:
// compressed vector sources come back as JPEG unless the request says
// otherwise.
func (p *CompressProcessor) outputFormat(opts *processor.Options, source format.Format) (format.Format, error) {
	f := opts.Format
	if f == format.Unknown {
		f = source
	}
	if f == format.SVG || f == format.Unknown {
		f = format.JPEG
	}
	if f != format.JPEG && f != format.PNG && f != format.WEBP {
		return format.Unknown, fmt.Errorf("%w: cannot compress to %s", processor.ErrInvalidConfig, f)
	}
	return f, nil
}
