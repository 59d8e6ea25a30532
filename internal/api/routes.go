package api

import (
	"net/http"

	"github.com/bytepress/bytepress/internal/cache"
	"github.com/bytepress/bytepress/internal/config"
	"github.com/bytepress/bytepress/internal/metrics"
	"github.com/bytepress/bytepress/internal/presets"
	"github.com/bytepress/bytepress/internal/processor"
	"github.com/bytepress/bytepress/internal/processor/video"
	"github.com/bytepress/bytepress/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	cfg      *config.Config
	storage  storage.Storage
	cache    cache.Cache
	registry *processor.Registry

	// nil when ffmpeg is not installed; video endpoints then return 503.
	video *video.Engine
}

func NewServer(cfg *config.Config, st storage.Storage, c cache.Cache, registry *processor.Registry, engine *video.Engine) *Server {
	return &Server{
		cfg:      cfg,
		storage:  st,
		cache:    c,
		registry: registry,
		video:    engine,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/compress", s.handleImageOp("compress"))
	mux.HandleFunc("POST /api/resize", s.handleImageOp("resize"))
	mux.HandleFunc("POST /api/crop", s.handleImageOp("crop"))
	mux.HandleFunc("POST /api/rotate", s.handleImageOp("rotate"))
	mux.HandleFunc("POST /api/convert", s.handleImageOp("convert"))
	mux.HandleFunc("POST /api/metadata", s.handleImageMetadata)

	mux.HandleFunc("POST /api/video/compress", s.handleVideoCompress)
	mux.HandleFunc("POST /api/video/trim", s.handleVideoTrim)
	mux.HandleFunc("GET /api/video/plan", s.handleVideoPlan)
	mux.HandleFunc("POST /api/video/metadata", s.handleVideoMetadata)

	mux.HandleFunc("GET /api/result/{key}", s.handleResult)
	mux.HandleFunc("DELETE /api/result/{key}", s.handleResultDelete)
	mux.HandleFunc("GET /api/presets", s.handlePresets)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = metrics.HTTPMiddleware(handler)
	handler = loggingMiddleware(handler)
	handler = timeoutMiddleware(s.cfg.RequestTimeout)(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, presets.All)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.HealthCheck(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
