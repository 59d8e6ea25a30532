package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytepress/bytepress/internal/apperror"
	"github.com/bytepress/bytepress/internal/cache"
	"github.com/bytepress/bytepress/internal/logger"
	"github.com/bytepress/bytepress/internal/metrics"
	imgproc "github.com/bytepress/bytepress/internal/processor/image"
	"github.com/bytepress/bytepress/internal/storage"

	"github.com/bytepress/bytepress/internal/processor"
)

// resultEnvelope is the JSON body returned by every transform endpoint.
type resultEnvelope struct {
	Key          string `json:"key"`
	URL          string `json:"url,omitempty"`
	ContentType  string `json:"content_type"`
	Size         int64  `json:"size"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	Format       string `json:"format,omitempty"`
	Quality      int    `json:"quality,omitempty"`
	Attempts     int    `json:"attempts,omitempty"`
	TargetMet    *bool  `json:"target_met,omitempty"`
	AchievedSize int64  `json:"achieved_size,omitempty"`
	Upscaled     bool   `json:"upscaled"`
}

func (s *Server) handleImageOp(opName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		data, err := s.readUpload(r, s.cfg.MaxUploadSize)
		if err != nil {
			writeError(w, r, err)
			return
		}

		opts, err := parseImageOptions(r.URL.Query())
		if err != nil {
			writeError(w, r, apperror.Wrap(err, apperror.ErrBadRequest))
			return
		}

		key := resultKey(data, opName, opts)
		if entry, err := s.cache.Get(ctx, key); err == nil {
			s.respondCached(w, r, entry)
			return
		}

		proc, err := s.registry.Get(opName)
		if err != nil {
			writeError(w, r, apperror.Wrap(err, apperror.ErrNotFound))
			return
		}

		result, err := proc.Process(ctx, opts, bytes.NewReader(data))
		if err != nil {
			writeError(w, r, mapProcessorError(err))
			return
		}

		output, err := io.ReadAll(result.Data)
		if err != nil {
			writeError(w, r, apperror.Wrap(err, apperror.ErrInternal))
			return
		}

		// Safety net after every image pipeline: suspiciously tiny outputs
		// get a single upscale pass.
		if result.ContentType != "application/json" {
			guard := imgproc.UpscaleIfNeeded(ctx, output)
			metrics.ObserveUpscaleGuard(guard.Upscaled)
			if guard.Upscaled {
				output = guard.Data
				result.ContentType = "image/jpeg"
				result.Size = int64(len(output))
				result.Metadata.Width = guard.Width
				result.Metadata.Height = guard.Height
				result.Metadata.Upscaled = true
			}
		}

		envelope, err := s.storeResult(ctx, key, output, result)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, envelope)
	}
}

// readUpload pulls the multipart file out of the request, bounded by the
// configured limit.
func (s *Server) readUpload(r *http.Request, limit int64) ([]byte, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, limit)

	file, _, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, apperror.Wrap(err, apperror.ErrFileTooLarge)
		}
		return nil, apperror.Wrap(fmt.Errorf("missing file field: %w", err), apperror.ErrBadRequest)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, apperror.Wrap(err, apperror.ErrFileTooLarge)
		}
		return nil, apperror.Wrap(err, apperror.ErrBadRequest)
	}
	if len(data) == 0 {
		return nil, apperror.Wrap(errors.New("empty upload"), apperror.ErrBadRequest)
	}
	return data, nil
}

// storeResult uploads the output blob and records the cache entry, returning
// the response envelope.
func (s *Server) storeResult(ctx context.Context, key string, output []byte, result *processor.Result) (*resultEnvelope, error) {
	storageKey := "results/" + key + "/" + result.Filename
	if err := s.storage.Upload(ctx, storageKey, bytes.NewReader(output), result.ContentType, int64(len(output))); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrInternal)
	}

	meta, _ := json.Marshal(result.Metadata)
	entry := &cache.Entry{
		Key:         key,
		StorageKey:  storageKey,
		ContentType: result.ContentType,
		Size:        int64(len(output)),
		Metadata:    meta,
		CreatedAt:   time.Now(),
	}
	if err := s.cache.Set(ctx, key, entry, s.cfg.CacheTTL); err != nil {
		// The result is already stored; a cache failure only costs the
		// client a re-process on the next poll.
		logger.FromContext(ctx).Warn("result cache set failed", "key", key, "error", err)
	}

	envelope := &resultEnvelope{
		Key:          key,
		ContentType:  result.ContentType,
		Size:         int64(len(output)),
		Width:        result.Metadata.Width,
		Height:       result.Metadata.Height,
		Format:       result.Metadata.Format,
		Quality:      result.Metadata.Quality,
		Attempts:     result.Metadata.Attempts,
		AchievedSize: result.Metadata.AchievedSize,
		Upscaled:     result.Metadata.Upscaled,
	}
	if result.Metadata.Attempts > 0 {
		met := result.Metadata.TargetMet
		envelope.TargetMet = &met
	}
	if url, err := s.storage.GetPresignedURL(ctx, storageKey, presignExpirySeconds); err == nil {
		envelope.URL = url
	}
	return envelope, nil
}

const presignExpirySeconds = 300

func (s *Server) respondCached(w http.ResponseWriter, r *http.Request, entry *cache.Entry) {
	envelope := &resultEnvelope{
		Key:         entry.Key,
		ContentType: entry.ContentType,
		Size:        entry.Size,
	}
	var meta processor.ResultMetadata
	if len(entry.Metadata) > 0 && json.Unmarshal(entry.Metadata, &meta) == nil {
		envelope.Width = meta.Width
		envelope.Height = meta.Height
		envelope.Format = meta.Format
		envelope.Quality = meta.Quality
		envelope.Attempts = meta.Attempts
		envelope.AchievedSize = meta.AchievedSize
		envelope.Upscaled = meta.Upscaled
		if meta.Attempts > 0 {
			met := meta.TargetMet
			envelope.TargetMet = &met
		}
	}
	if url, err := s.storage.GetPresignedURL(r.Context(), entry.StorageKey, presignExpirySeconds); err == nil {
		envelope.URL = url
	}
	writeJSON(w, http.StatusOK, envelope)
}

// handleResult serves the polling endpoint: cached entries resolve to a fresh
// presigned URL, expired ones are gone.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		writeError(w, r, apperror.ErrBadRequest)
		return
	}

	entry, err := s.cache.Get(r.Context(), key)
	if err != nil {
		writeError(w, r, apperror.Wrap(err, apperror.ErrNotFound))
		return
	}
	s.respondCached(w, r, entry)
}

// handleResultDelete releases a stored result before its TTL runs out. The
// blob goes first so an interrupted delete leaves the entry pointing at
// nothing rather than an orphaned blob.
func (s *Server) handleResultDelete(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	entry, err := s.cache.Get(r.Context(), key)
	if err != nil {
		writeError(w, r, apperror.Wrap(err, apperror.ErrNotFound))
		return
	}

	artifact := storage.NewTemp(s.storage, entry.StorageKey)
	if err := artifact.Dispose(r.Context()); err != nil {
		writeError(w, r, apperror.Wrap(err, apperror.ErrInternal))
		return
	}
	if err := s.cache.Delete(r.Context(), key); err != nil && !errors.Is(err, cache.ErrNotFound) {
		logger.FromContext(r.Context()).Warn("cache delete failed", "key", key, "error", err)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleImageMetadata(w http.ResponseWriter, r *http.Request) {
	data, err := s.readUpload(r, s.cfg.MaxUploadSize)
	if err != nil {
		writeError(w, r, err)
		return
	}

	proc, err := s.registry.Get("metadata")
	if err != nil {
		writeError(w, r, apperror.Wrap(err, apperror.ErrInternal))
		return
	}

	result, err := proc.Process(r.Context(), &processor.Options{}, bytes.NewReader(data))
	if err != nil {
		writeError(w, r, mapProcessorError(err))
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	_, _ = io.Copy(w, result.Data)
}

func mapProcessorError(err error) error {
	switch {
	case errors.Is(err, processor.ErrInvalidConfig):
		return apperror.Wrap(err, apperror.ErrBadRequest)
	case errors.Is(err, processor.ErrCorruptedFile), errors.Is(err, processor.ErrProcessingFailed):
		return apperror.Wrap(err, apperror.ErrProcessingFailed)
	case errors.Is(err, processor.ErrUnsupportedType):
		return apperror.Wrap(err, apperror.ErrInvalidFileType)
	case errors.Is(err, processor.ErrFileTooLarge):
		return apperror.Wrap(err, apperror.ErrFileTooLarge)
	case errors.Is(err, context.DeadlineExceeded):
		return apperror.Wrap(err, apperror.ErrTimeout)
	default:
		return apperror.Wrap(err, apperror.ErrInternal)
	}
}
