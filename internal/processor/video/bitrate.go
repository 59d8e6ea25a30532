package video

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidPlan       = errors.New("video: invalid bitrate plan input")
	ErrUnknownResolution = errors.New("video: unknown resolution")
)

// AudioBitrateKbps is the fixed audio budget every plan reserves.
const AudioBitrateKbps = 128

type Resolution string

const (
	Res240p Resolution = "240p"
	Res360p Resolution = "360p"
	Res480p Resolution = "480p"
	Res720p Resolution = "720p"
)

func ParseResolution(s string) (Resolution, error) {
	switch Resolution(strings.ToLower(strings.TrimSpace(s))) {
	case Res240p:
		return Res240p, nil
	case Res360p:
		return Res360p, nil
	case Res480p:
		return Res480p, nil
	case Res720p:
		return Res720p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownResolution, s)
	}
}

func (r Resolution) Height() int {
	switch r {
	case Res240p:
		return 240
	case Res360p:
		return 360
	case Res480p:
		return 480
	case Res720p:
		return 720
	default:
		return 0
	}
}

// MinBitrateKbps is the quality floor below which output at this resolution
// is unwatchable.
func (r Resolution) MinBitrateKbps() int {
	switch r {
	case Res240p:
		return 250
	case Res360p:
		return 400
	case Res480p:
		return 700
	case Res720p:
		return 1500
	default:
		return 0
	}
}

// BitratePlan converts a target file size and known duration into encoder
// bitrates. Created once per request and never mutated; the transcode call
// consumes it as-is.
type BitratePlan struct {
	TargetSizeKB     int64      `json:"target_size_kb"`
	DurationSeconds  float64    `json:"duration_seconds"`
	Resolution       Resolution `json:"resolution"`
	AudioBitrateKbps int        `json:"audio_bitrate_kbps"`
	VideoBitrateKbps float64    `json:"video_bitrate_kbps"`
	MinBitrateKbps   int        `json:"min_bitrate_kbps"`
	FinalBitrateKbps float64    `json:"final_bitrate_kbps"`
	FloorSizeBytes   int64      `json:"floor_size_bytes"`
}

// Plan computes the video bitrate for a single-pass encode hitting the target
// size. Unlike the image path this is closed-form, no trial encodes: the
// bitrate-to-size relationship of a CBR encode is near-linear.
//
// The computed bitrate is clamped to the resolution's floor, so the plan can
// overshoot the requested size. FloorSizeBytes is the smallest output the
// floor permits for this duration; callers must compare it against the source
// size and skip transcoding when no beneficial compression is possible.
func Plan(targetSizeKB int64, durationSeconds float64, res Resolution) (*BitratePlan, error) {
	if targetSizeKB <= 0 {
		return nil, fmt.Errorf("%w: target size must be positive", ErrInvalidPlan)
	}
	if durationSeconds <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrInvalidPlan)
	}
	minKbps := res.MinBitrateKbps()
	if minKbps == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResolution, res)
	}

	videoKbps := float64(targetSizeKB)*8/durationSeconds - AudioBitrateKbps

	finalKbps := videoKbps
	if finalKbps < float64(minKbps) {
		finalKbps = float64(minKbps)
	}

	floorKB := float64(minKbps+AudioBitrateKbps) * durationSeconds / 8
	return &BitratePlan{
		TargetSizeKB:     targetSizeKB,
		DurationSeconds:  durationSeconds,
		Resolution:       res,
		AudioBitrateKbps: AudioBitrateKbps,
		VideoBitrateKbps: videoKbps,
		MinBitrateKbps:   minKbps,
		FinalBitrateKbps: finalKbps,
		FloorSizeBytes:   int64(floorKB * 1024),
	}, nil
}

// FloorDominated reports whether the floor overrode the computed bitrate.
// When true the encode cannot hit the requested size and the caller should
// surface the "file too small to compress at this resolution" case.
func (p *BitratePlan) FloorDominated() bool {
	return p.VideoBitrateKbps < float64(p.MinBitrateKbps)
}

// Beneficial reports whether transcoding can produce a smaller file than the
// source. Transcoding to a larger file is never silently performed.
func (p *BitratePlan) Beneficial(sourceSizeBytes int64) bool {
	return p.FloorSizeBytes < sourceSizeBytes
}
