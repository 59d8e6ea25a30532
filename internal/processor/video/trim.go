package video

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bytepress/bytepress/internal/processor"
)

// Trim cuts a window out of the video by stream copy: no re-encode, original
// quality preserved exactly, cuts land on keyframe boundaries.
func (e *Engine) Trim(ctx context.Context, opts *Options, input io.Reader) (*processor.Result, error) {
	if opts == nil || opts.EndSeconds <= opts.StartSeconds {
		return nil, fmt.Errorf("%w: end must be after start", processor.ErrInvalidConfig)
	}
	if opts.StartSeconds < 0 {
		return nil, fmt.Errorf("%w: start must not be negative", processor.ErrInvalidConfig)
	}

	tempDir, err := e.createTempDir("trim")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	inputPath := filepath.Join(tempDir, "input")
	if err := e.writeInputFile(inputPath, input); err != nil {
		return nil, err
	}

	meta, err := e.probeFile(ctx, inputPath)
	if err != nil {
		return nil, err
	}
	if opts.EndSeconds > meta.Duration {
		return nil, fmt.Errorf("%w: end %.2fs beyond duration %.2fs",
			processor.ErrInvalidConfig, opts.EndSeconds, meta.Duration)
	}

	outputFormat := opts.OutputFormat
	if outputFormat == "" {
		outputFormat = "mp4"
	}
	outputPath := filepath.Join(tempDir, "output."+outputFormat)

	args := []string{
		"-ss", fmt.Sprintf("%.3f", opts.StartSeconds),
		"-to", fmt.Sprintf("%.3f", opts.EndSeconds),
		"-i", inputPath,
		"-c", "copy",
		"-movflags", "+faststart",
		"-y",
		outputPath,
	}
	if err := e.runFFmpeg(ctx, args); err != nil {
		return nil, err
	}

	outputData, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read output: %v", ErrTranscodeFailed, err)
	}

	return &processor.Result{
		Data:        bytes.NewReader(outputData),
		ContentType: contentTypeFor(outputFormat),
		Filename:    "trimmed." + outputFormat,
		Size:        int64(len(outputData)),
		Metadata: processor.ResultMetadata{
			Width:    meta.Width,
			Height:   meta.Height,
			Duration: opts.EndSeconds - opts.StartSeconds,
			Format:   outputFormat,
		},
	}, nil
}
