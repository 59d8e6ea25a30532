package api

import (
	"encoding/json"
	"net/http"

	"github.com/bytepress/bytepress/internal/apperror"
	"github.com/bytepress/bytepress/internal/logger"
)

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	status := apperror.StatusCode(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "error", err, "path", r.URL.Path)
	} else {
		log.Warn("request rejected", "error", err, "path", r.URL.Path)
	}

	var resp errorResponse
	resp.Error.Code = apperror.Code(err)
	resp.Error.Message = apperror.SafeMessage(err)
	writeJSON(w, status, resp)
}
