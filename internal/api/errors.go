package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/digkill/artrelay/internal/service"
)

var (
	errRateLimited     = errors.New("too many requests, please slow down")
	errEndpointRetired = errors.New("this endpoint is no longer available, use /api/upload-image instead")
	errInvalidJSON     = errors.New("request body must be valid JSON")
)

type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

var statusByCode = map[string]int{
	"MissingField":              http.StatusBadRequest,
	"InvalidField":              http.StatusBadRequest,
	"NoFileUploaded":            http.StatusBadRequest,
	"EmptyFile":                 http.StatusBadRequest,
	"FileTooLarge":              http.StatusBadRequest,
	"UnsupportedFileType":       http.StatusBadRequest,
	"InsufficientCredits":       http.StatusBadRequest,
	"ImageProcessingFailed":     http.StatusBadRequest,
	"VisionAnalysisRefused":     http.StatusBadRequest,
	"IncompatibleImageFormat":   http.StatusBadRequest,
	"SignatureMismatch":         http.StatusBadRequest,
	"EndpointRetired":           http.StatusBadRequest,
	"UserNotFound":              http.StatusNotFound,
	"RateLimited":               http.StatusTooManyRequests,
	"AIUnavailable":             http.StatusServiceUnavailable,
	"GenerationFailed":          http.StatusInternalServerError,
	"MalformedUpstreamResponse": http.StatusInternalServerError,
	"Unknown":                   http.StatusInternalServerError,
}

// classify returns the status, the code and the message shown to the caller.
// Field errors keep their field name; unknown failures pass their own message
// through.
func classify(err error) (int, string, string) {
	var (
		code     string
		sentinel error
	)
	switch {
	case errors.Is(err, errRateLimited):
		code, sentinel = "RateLimited", errRateLimited
	case errors.Is(err, errEndpointRetired):
		code, sentinel = "EndpointRetired", errEndpointRetired
	case errors.Is(err, errInvalidJSON):
		code, sentinel = "InvalidField", errInvalidJSON
	default:
		code, sentinel = service.Classify(err)
	}

	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	message := err.Error()
	if sentinel != nil && code != "MissingField" && code != "InvalidField" {
		message = sentinel.Error()
	}
	return status, code, message
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classify(err)
	body := errorBody{Error: message, Code: code}
	if !s.cfg.Production {
		body.Details = err.Error()
	}

	attrs := []any{
		"err", err,
		"code", code,
		"status", status,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", attrs...)
	} else {
		s.log.Warn("request rejected", attrs...)
	}
	s.writeJSON(w, status, body)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
