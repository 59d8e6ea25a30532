package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytepress/bytepress/internal/cache"
	"github.com/bytepress/bytepress/internal/config"
	"github.com/bytepress/bytepress/internal/processor"
	imgproc "github.com/bytepress/bytepress/internal/processor/image"
	"github.com/bytepress/bytepress/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.MemoryStorage, *cache.MemoryCache) {
	t.Helper()

	cfg := &config.Config{
		Port:               8080,
		MaxUploadSize:      10 * 1024 * 1024,
		MaxVideoUploadSize: 10 * 1024 * 1024,
		RequestTimeout:     30 * time.Second,
		CacheTTL:           time.Minute,
		DefaultQuality:     85,
	}

	store := storage.NewMemoryStorage()
	c := cache.NewMemoryCache()
	t.Cleanup(func() { _ = c.Close() })

	registry := processor.NewRegistry()
	registry.Register(imgproc.NewCompressProcessor(nil))
	registry.Register(imgproc.NewResizeProcessor(nil))
	registry.Register(imgproc.NewMetadataProcessor(nil))

	return NewServer(cfg, store, c, registry, nil), store, c
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	seed := uint32(7)
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			seed = seed*1664525 + 1013904223
			img.Set(x, y, color.RGBA{R: uint8(seed >> 24), G: uint8(seed >> 16), B: uint8(seed >> 8), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

func multipartUpload(t *testing.T, target string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "test.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestCompressEndpoint(t *testing.T) {
	server, store, _ := newTestServer(t)
	handler := server.Routes()

	req := multipartUpload(t, "/api/compress?target_kb=500", testJPEG(t))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var envelope resultEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Key == "" {
		t.Error("response should carry a result key")
	}
	if envelope.Size <= 0 {
		t.Error("response should carry the output size")
	}
	if store.Len() == 0 {
		t.Error("result blob should be uploaded to storage")
	}
}

func TestCompressEndpoint_CacheHit(t *testing.T) {
	server, _, _ := newTestServer(t)
	handler := server.Routes()
	payload := testJPEG(t)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, multipartUpload(t, "/api/compress?target_kb=500", payload))
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, multipartUpload(t, "/api/compress?target_kb=500", payload))
	if second.Code != http.StatusOK {
		t.Fatalf("second request status = %d", second.Code)
	}

	var a, b resultEnvelope
	_ = json.Unmarshal(first.Body.Bytes(), &a)
	_ = json.Unmarshal(second.Body.Bytes(), &b)
	if a.Key != b.Key {
		t.Errorf("repeat request key = %q, want cached key %q", b.Key, a.Key)
	}
}

func TestCompressEndpoint_BadOptions(t *testing.T) {
	server, _, _ := newTestServer(t)
	handler := server.Routes()

	req := multipartUpload(t, "/api/compress?target_kb=-1", testJPEG(t))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCompressEndpoint_MissingFile(t *testing.T) {
	server, _, _ := newTestServer(t)
	handler := server.Routes()

	req := httptest.NewRequest(http.MethodPost, "/api/compress?target_kb=100", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestResultLifecycle(t *testing.T) {
	server, store, _ := newTestServer(t)
	handler := server.Routes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, multipartUpload(t, "/api/compress?target_kb=500", testJPEG(t)))
	if rec.Code != http.StatusOK {
		t.Fatalf("compress status = %d", rec.Code)
	}
	var envelope resultEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)

	get := httptest.NewRecorder()
	handler.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/api/result/"+envelope.Key, nil))
	if get.Code != http.StatusOK {
		t.Fatalf("get result status = %d", get.Code)
	}

	del := httptest.NewRecorder()
	handler.ServeHTTP(del, httptest.NewRequest(http.MethodDelete, "/api/result/"+envelope.Key, nil))
	if del.Code != http.StatusNoContent {
		t.Fatalf("delete result status = %d, want 204", del.Code)
	}
	if store.Len() != 0 {
		t.Error("blob should be disposed with the result")
	}

	gone := httptest.NewRecorder()
	handler.ServeHTTP(gone, httptest.NewRequest(http.MethodGet, "/api/result/"+envelope.Key, nil))
	if gone.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", gone.Code)
	}
}

func TestVideoEndpointsUnavailable(t *testing.T) {
	server, _, _ := newTestServer(t)
	handler := server.Routes()

	req := multipartUpload(t, "/api/video/compress?target_kb=1000&resolution=480p", []byte("video"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 without ffmpeg", rec.Code)
	}
}

func TestVideoPlanEndpoint(t *testing.T) {
	server, _, _ := newTestServer(t)
	handler := server.Routes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/video/plan?target_kb=200&duration=60&resolution=720p", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var plan struct {
		FinalBitrateKbps float64 `json:"final_bitrate_kbps"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &plan); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if plan.FinalBitrateKbps != 1500 {
		t.Errorf("FinalBitrateKbps = %v, want the 720p floor 1500", plan.FinalBitrateKbps)
	}
}

func TestHealthEndpoint(t *testing.T) {
	server, _, _ := newTestServer(t)
	handler := server.Routes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestPresetsEndpoint(t *testing.T) {
	server, _, _ := newTestServer(t)
	handler := server.Routes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/presets", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var all map[string]struct {
		TargetSizeKB int64 `json:"TargetSizeKB"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode presets: %v", err)
	}
	if _, ok := all["email"]; !ok {
		t.Error("presets should include email")
	}
}
