package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/bytepress/bytepress/internal/apperror"
	"github.com/bytepress/bytepress/internal/processor"
	"github.com/bytepress/bytepress/internal/processor/video"
)

func parseVideoOptions(r *http.Request) (*video.Options, error) {
	q := r.URL.Query()
	opts := &video.Options{}

	if v := q.Get("target_mb"); v != "" {
		mb, err := strconv.ParseFloat(v, 64)
		if err != nil || mb <= 0 {
			return nil, fmt.Errorf("invalid target_mb value: %s", v)
		}
		opts.TargetSizeKB = int64(mb * 1024)
	}
	if v := q.Get("target_kb"); v != "" {
		kb, err := strconv.ParseInt(v, 10, 64)
		if err != nil || kb <= 0 {
			return nil, fmt.Errorf("invalid target_kb value: %s", v)
		}
		opts.TargetSizeKB = kb
	}

	if v := q.Get("resolution"); v != "" {
		res, err := video.ParseResolution(v)
		if err != nil {
			return nil, err
		}
		opts.Resolution = res
	}

	if v := q.Get("start"); v != "" {
		start, err := strconv.ParseFloat(v, 64)
		if err != nil || start < 0 {
			return nil, fmt.Errorf("invalid start value: %s", v)
		}
		opts.StartSeconds = start
	}
	if v := q.Get("end"); v != "" {
		end, err := strconv.ParseFloat(v, 64)
		if err != nil || end <= 0 {
			return nil, fmt.Errorf("invalid end value: %s", v)
		}
		opts.EndSeconds = end
	}

	switch f := q.Get("format"); f {
	case "", "mp4", "webm":
		opts.OutputFormat = f
	default:
		return nil, fmt.Errorf("unsupported video format: %s (supported: mp4, webm)", f)
	}

	return opts, nil
}

func (s *Server) handleVideoCompress(w http.ResponseWriter, r *http.Request) {
	if s.video == nil {
		writeError(w, r, apperror.New("video_unavailable", "Video processing is not available on this instance", http.StatusServiceUnavailable))
		return
	}

	opts, err := parseVideoOptions(r)
	if err != nil {
		writeError(w, r, apperror.Wrap(err, apperror.ErrBadRequest))
		return
	}
	if opts.Resolution == "" {
		writeError(w, r, apperror.Wrap(errors.New("resolution is required"), apperror.ErrBadRequest))
		return
	}

	data, err := s.readUpload(r, s.cfg.MaxVideoUploadSize)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.video.Compress(r.Context(), opts, bytes.NewReader(data))
	if err != nil {
		writeError(w, r, mapVideoError(err))
		return
	}
	s.respondVideoResult(w, r, "video-compress", data, opts, result)
}

func (s *Server) handleVideoTrim(w http.ResponseWriter, r *http.Request) {
	if s.video == nil {
		writeError(w, r, apperror.New("video_unavailable", "Video processing is not available on this instance", http.StatusServiceUnavailable))
		return
	}

	opts, err := parseVideoOptions(r)
	if err != nil {
		writeError(w, r, apperror.Wrap(err, apperror.ErrBadRequest))
		return
	}

	data, err := s.readUpload(r, s.cfg.MaxVideoUploadSize)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.video.Trim(r.Context(), opts, bytes.NewReader(data))
	if err != nil {
		writeError(w, r, mapVideoError(err))
		return
	}
	s.respondVideoResult(w, r, "video-trim", data, opts, result)
}

// handleVideoPlan exposes the pure bitrate planner so the UI can clamp its
// size selector before uploading anything.
func (s *Server) handleVideoPlan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	targetKB, err := strconv.ParseInt(q.Get("target_kb"), 10, 64)
	if err != nil {
		writeError(w, r, apperror.Wrap(fmt.Errorf("invalid target_kb value: %q", q.Get("target_kb")), apperror.ErrBadRequest))
		return
	}
	duration, err := strconv.ParseFloat(q.Get("duration"), 64)
	if err != nil {
		writeError(w, r, apperror.Wrap(fmt.Errorf("invalid duration value: %q", q.Get("duration")), apperror.ErrBadRequest))
		return
	}
	res, err := video.ParseResolution(q.Get("resolution"))
	if err != nil {
		writeError(w, r, apperror.Wrap(err, apperror.ErrBadRequest))
		return
	}

	plan, err := video.Plan(targetKB, duration, res)
	if err != nil {
		writeError(w, r, apperror.Wrap(err, apperror.ErrBadRequest))
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleVideoMetadata(w http.ResponseWriter, r *http.Request) {
	if s.video == nil {
		writeError(w, r, apperror.New("video_unavailable", "Video processing is not available on this instance", http.StatusServiceUnavailable))
		return
	}

	data, err := s.readUpload(r, s.cfg.MaxVideoUploadSize)
	if err != nil {
		writeError(w, r, err)
		return
	}

	meta, err := s.video.Probe(r.Context(), bytes.NewReader(data))
	if err != nil {
		writeError(w, r, mapVideoError(err))
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) respondVideoResult(w http.ResponseWriter, r *http.Request, op string, input []byte, opts *video.Options, result *processor.Result) {
	output, err := io.ReadAll(result.Data)
	if err != nil {
		writeError(w, r, apperror.Wrap(err, apperror.ErrInternal))
		return
	}

	optsJSON, _ := json.Marshal(opts)
	key := resultKey(append(input, optsJSON...), op, &processor.Options{})

	envelope, err := s.storeResult(r.Context(), key, output, result)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope)
}

func mapVideoError(err error) error {
	switch {
	case errors.Is(err, video.ErrNotBeneficial):
		return apperror.Wrap(err, apperror.ErrNotBeneficial)
	case errors.Is(err, video.ErrInvalidVideo):
		return apperror.Wrap(err, apperror.ErrProcessingFailed)
	case errors.Is(err, video.ErrVideoTooLong),
		errors.Is(err, video.ErrUnknownResolution),
		errors.Is(err, video.ErrInvalidPlan):
		return apperror.Wrap(err, apperror.ErrBadRequest)
	default:
		return mapProcessorError(err)
	}
}
