package authapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

var (
	errEmptyBody    = errors.New("empty body")
	errTrailingData = errors.New("trailing data after json value")
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: apiError{Code: code, Message: msg}})
}

// readJSON decodes exactly one JSON object of at most MaxBodyBytes into dst.
// On failure it has already written the response and returns false:
// 413 body_too_large when the limit is hit, 400 invalid_json otherwise.
func (h *Handler) readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := decodeBody(http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes), dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.log.Warn("auth.request.too_large", "path", r.URL.Path, "limit", tooLarge.Limit)
		writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
		return false
	}
	writeError(w, http.StatusBadRequest, "invalid_json", "invalid json")
	return false
}

func decodeBody(body io.ReadCloser, dst any) error {
	if body == nil || body == http.NoBody {
		return errEmptyBody
	}
	defer func() { _ = body.Close() }()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return errTrailingData
	}
	return nil
}
