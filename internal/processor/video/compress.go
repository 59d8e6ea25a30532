package video

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bytepress/bytepress/internal/logger"
	"github.com/bytepress/bytepress/internal/metrics"
	"github.com/bytepress/bytepress/internal/processor"
)

// Compress re-encodes a video so its file size lands near the target. The
// bitrate is planned closed-form from the probed duration; no trial encodes.
func (e *Engine) Compress(ctx context.Context, opts *Options, input io.Reader) (*processor.Result, error) {
	if opts == nil || opts.TargetSizeKB <= 0 {
		return nil, fmt.Errorf("%w: target size is required", processor.ErrInvalidConfig)
	}
	if _, err := ParseResolution(string(opts.Resolution)); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)

	tempDir, err := e.createTempDir("compress")
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
	if e.config.MaxDuration > 0 && int(meta.Duration) > e.config.MaxDuration {
		return nil, fmt.Errorf("%w: video is %.0fs, max is %ds", ErrVideoTooLong, meta.Duration, e.config.MaxDuration)
	}

	plan, err := Plan(opts.TargetSizeKB, meta.Duration, opts.Resolution)
	if err != nil {
		return nil, err
	}

	// Refuse to transcode when the floor already exceeds the source size.
	if !plan.Beneficial(meta.SizeBytes) {
		return nil, fmt.Errorf("%w: floor is %d bytes, source is %d bytes",
			ErrNotBeneficial, plan.FloorSizeBytes, meta.SizeBytes)
	}

	log.Debug("bitrate planned",
		"target_kb", plan.TargetSizeKB,
		"video_kbps", plan.VideoBitrateKbps,
		"final_kbps", plan.FinalBitrateKbps,
		"floor_dominated", plan.FloorDominated())

	outputFormat := opts.OutputFormat
	if outputFormat == "" {
		outputFormat = "mp4"
	}
	outputPath := filepath.Join(tempDir, "output."+outputFormat)

	args := []string{
		"-i", inputPath,
		"-vf", fmt.Sprintf("scale=-2:%d", opts.Resolution.Height()),
		"-c:v", videoCodecFor(outputFormat),
		"-b:v", fmt.Sprintf("%.0fk", plan.FinalBitrateKbps),
		"-preset", e.config.Preset,
		"-c:a", audioCodecFor(outputFormat),
		"-b:a", fmt.Sprintf("%dk", plan.AudioBitrateKbps),
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

	targetBytes := opts.TargetSizeKB * 1024
	targetMet := int64(len(outputData)) <= targetBytes
	metrics.ObserveCompression("video/"+outputFormat, meta.SizeBytes, int64(len(outputData)), 1, targetMet)

	return &processor.Result{
		Data:        bytes.NewReader(outputData),
		ContentType: contentTypeFor(outputFormat),
		Filename:    "compressed." + outputFormat,
		Size:        int64(len(outputData)),
		Metadata: processor.ResultMetadata{
			Width:        widthForHeight(meta, opts.Resolution.Height()),
			Height:       opts.Resolution.Height(),
			Duration:     meta.Duration,
			Format:       outputFormat,
			TargetMet:    targetMet,
			AchievedSize: int64(len(outputData)),
		},
	}, nil
}

func videoCodecFor(outputFormat string) string {
	if outputFormat == "webm" {
		return "libvpx-vp9"
	}
	return "libx264"
}

func audioCodecFor(outputFormat string) string {
	if outputFormat == "webm" {
		return "libopus"
	}
	return "aac"
}

func contentTypeFor(outputFormat string) string {
	if outputFormat == "webm" {
		return "video/webm"
	}
	return "video/mp4"
}

// widthForHeight derives the scaled width from the source aspect ratio,
// rounded down to an even value the way the scale filter does.
func widthForHeight(meta *Metadata, height int) int {
	if meta.Height == 0 {
		return 0
	}
	w := meta.Width * height / meta.Height
	return w - w%2
}
