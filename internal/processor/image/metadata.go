package image

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/bytepress/bytepress/internal/processor"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var _ processor.Processor = (*MetadataProcessor)(nil)

type MetadataProcessor struct {
	config *processor.Config
}

func NewMetadataProcessor(cfg *processor.Config) *MetadataProcessor {
	if cfg == nil {
		cfg = processor.DefaultConfig()
	}
	return &MetadataProcessor{config: cfg}
}

func (p *MetadataProcessor) Name() string {
	return "metadata"
}

func (p *MetadataProcessor) SupportedTypes() []string {
	return []string{
		"image/jpeg",
		"image/png",
		"image/gif",
		"image/webp",
		"image/bmp",
	}
}

type Metadata struct {
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Format    string `json:"format"`
	SizeBytes int64  `json:"size_bytes"`
}

func (p *MetadataProcessor) Process(ctx context.Context, opts *processor.Options, input io.Reader) (*processor.Result, error) {
	data, err := io.ReadAll(input)
	if err != nil {
		return nil, processor.ErrCorruptedFile
	}

	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, processor.ErrCorruptedFile
	}

	meta := Metadata{
		Width:     cfg.Width,
		Height:    cfg.Height,
		Format:    name,
		SizeBytes: int64(len(data)),
	}

	payload, err := json.Marshal(meta)
	if err != nil {
		return nil, processor.ErrProcessingFailed
	}

	return &processor.Result{
		Data:        bytes.NewReader(payload),
		ContentType: "application/json",
		Size:        int64(len(payload)),
		Metadata: processor.ResultMetadata{
			Width:  cfg.Width,
			Height: cfg.Height,
			Format: name,
		},
	}, nil
}
