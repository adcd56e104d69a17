package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/julianstephens/tally/internal/logger"
	"github.com/julianstephens/tally/internal/storage"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CodeRateLimited is sent with 429 responses.
const CodeRateLimited = "rate_limited"

func statusFor(kind storage.Kind) int {
	switch kind {
	case storage.KindDuplicate:
		return http.StatusConflict
	case storage.KindNotFound:
		return http.StatusNotFound
	case storage.KindUnauthorized:
		return http.StatusUnauthorized
	case storage.KindInvalid:
		return http.StatusBadRequest
	case storage.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var se *storage.Error
	if !errors.As(err, &se) {
		se = storage.NewError(storage.KindInternal, "internal error", err)
	}
	status := statusFor(se.Kind)
	msg := se.Message
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", se)
		if se.Kind == storage.KindInternal {
			msg = "internal error"
		}
	}
	writeJSON(w, status, ErrorBody{Code: string(se.Kind), Message: msg})
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, r, storage.NewError(storage.KindInvalid, "invalid request body", err))
		return false
	}
	return true
}
