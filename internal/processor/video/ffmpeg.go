package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// Engine wraps ffmpeg/ffprobe invocations. Inputs are spooled to a temp
// directory because ffmpeg needs seekable files; the directory is removed on
// every path.
type Engine struct {
	config *Config
}

func NewEngine(cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultVideoConfig()
	}
	if _, err := exec.LookPath(cfg.FFmpegPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFFmpegNotFound, err)
	}
	if _, err := exec.LookPath(cfg.FFprobePath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFFprobeNotFound, err)
	}
	return &Engine{config: cfg}, nil
}

func (e *Engine) createTempDir(prefix string) (string, error) {
	base := e.config.TempDir
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0755); err != nil {
		return "", fmt.Errorf("create temp base dir: %w", err)
	}
	dir, err := os.MkdirTemp(base, prefix+"-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	return dir, nil
}

func (e *Engine) writeInputFile(path string, input io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create input file: %w", err)
	}
	defer func() { _ = f.Close() }()

	written, err := io.Copy(f, input)
	if err != nil {
		return fmt.Errorf("write input file: %w", err)
	}
	if e.config.MaxFileSize > 0 && written > e.config.MaxFileSize {
		return fmt.Errorf("input is %d bytes, max is %d", written, e.config.MaxFileSize)
	}
	return nil
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		Size       string `json:"size"`
		BitRate    string `json:"bit_rate"`
	} `json:"format"`
}

func (e *Engine) probeFile(ctx context.Context, path string) (*Metadata, error) {
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	cmd := exec.CommandContext(ctx, e.config.FFprobePath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: ffprobe failed: %v, stderr: %s", ErrInvalidVideo, err, stderr.String())
	}

	var probe probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &probe); err != nil {
		return nil, fmt.Errorf("%w: parse ffprobe output: %v", ErrInvalidVideo, err)
	}

	meta := &Metadata{Container: probe.Format.FormatName}
	meta.Duration, _ = strconv.ParseFloat(probe.Format.Duration, 64)
	meta.SizeBytes, _ = strconv.ParseInt(probe.Format.Size, 10, 64)
	if bps, err := strconv.ParseFloat(probe.Format.BitRate, 64); err == nil {
		meta.BitrateKbps = bps / 1000
	}

	for _, s := range probe.Streams {
		switch s.CodecType {
		case "video":
			if meta.VideoCodec == "" {
				meta.VideoCodec = s.CodecName
				meta.Width = s.Width
				meta.Height = s.Height
			}
		case "audio":
			meta.AudioCodec = s.CodecName
			meta.HasAudio = true
		}
	}

	if meta.Duration <= 0 || meta.VideoCodec == "" {
		return nil, fmt.Errorf("%w: no usable video stream", ErrInvalidVideo)
	}
	return meta, nil
}

// Probe extracts metadata from a video payload.
func (e *Engine) Probe(ctx context.Context, input io.Reader) (*Metadata, error) {
	tempDir, err := e.createTempDir("probe")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	inputPath := filepath.Join(tempDir, "input")
	if err := e.writeInputFile(inputPath, input); err != nil {
		return nil, err
	}
	return e.probeFile(ctx, inputPath)
}

func (e *Engine) runFFmpeg(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, e.config.FFmpegPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: ffmpeg failed: %v, output: %s", ErrTranscodeFailed, err, string(output))
	}
	return nil
}
