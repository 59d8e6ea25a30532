package video

import (
	"errors"

	"github.com/bytepress/bytepress/internal/processor"
)

var (
	ErrFFmpegNotFound  = errors.New("video: ffmpeg not found in PATH")
	ErrFFprobeNotFound = errors.New("video: ffprobe not found in PATH")
	ErrInvalidVideo    = errors.New("video: invalid or corrupted video file")
	ErrVideoTooLong    = errors.New("video: duration exceeds limit")
	ErrTranscodeFailed = errors.New("video: transcoding failed")

	// ErrNotBeneficial marks the case where the bitrate floor would produce a
	// file at least as large as the source.
	ErrNotBeneficial = errors.New("video: no beneficial compression possible at this resolution")
)

// Options carries the parameters of one video operation.
type Options struct {
	// Compress to target size.
	TargetSizeKB int64
	Resolution   Resolution

	// Trim window in seconds from the start of the video.
	StartSeconds float64
	EndSeconds   float64

	OutputFormat string // mp4 (default) or webm
}

// Metadata describes a probed video stream.
type Metadata struct {
	Duration    float64 `json:"duration"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	BitrateKbps float64 `json:"bitrate_kbps"`
	VideoCodec  string  `json:"video_codec"`
	AudioCodec  string  `json:"audio_codec,omitempty"`
	HasAudio    bool    `json:"has_audio"`
	SizeBytes   int64   `json:"size_bytes"`
	Container   string  `json:"container"`
}

// Config holds settings for the ffmpeg-backed engine.
type Config struct {
	*processor.Config

	FFmpegPath  string
	FFprobePath string
	Preset      string
	MaxDuration int // seconds, 0 = unlimited
}

func DefaultVideoConfig() *Config {
	return &Config{
		Config:      processor.DefaultConfig(),
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		Preset:      "medium",
		MaxDuration: 30 * 60,
	}
}

var SupportedVideoTypes = []string{
	"video/mp4",
	"video/webm",
	"video/quicktime",
	"video/x-msvideo",
	"video/x-matroska",
	"video/mpeg",
}

func IsVideoType(contentType string) bool {
	for _, t := range SupportedVideoTypes {
		if t == contentType {
			return true
		}
	}
	return false
}
