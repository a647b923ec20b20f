package api

import (
	"encoding/json"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	internalerrors "github.com/rcourtman/cpe-console/internal/errors"
	"github.com/rcourtman/cpe-console/internal/logging"
)

// APIError is the body of every error response: {"error": {...}}.
type APIError struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type errorEnvelope struct {
	Error APIError `json:"error"`
}

// ErrorHandler is a middleware that assigns request IDs, records metrics and recovers panics.
func ErrorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Add request ID to context, honoring any incoming header value.
		incomingID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		ctxWithID, requestID := logging.WithRequestID(r.Context(), incomingID)
		r = r.WithContext(ctxWithID)

		// Create a custom response writer to capture status codes
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		rw.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		method := r.Method

		defer func() {
			recordAPIRequest(method, routeLabel(r), rw.StatusCode(), time.Since(start))
		}()

		// Recover from panics
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Interface("error", err).
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Str("request_id", requestID).
					Bytes("stack", debug.Stack()).
					Msg("Panic recovered in API handler")

				writeErrorResponse(rw, http.StatusInternalServerError, APIError{
					Message:   "Internal server error",
					Code:      "internal_error",
					RequestID: requestID,
				})
			}
		}()

		next.ServeHTTP(rw, r)

		// Log errors (4xx and 5xx)
		if rw.statusCode >= 400 {
			log.Warn().
				Str("path", r.URL.Path).
				Str("method", r.Method).
				Int("status", rw.statusCode).
				Str("request_id", requestID).
				Msg("Request failed")
		}
	})
}

// writeErrorResponse writes a consistent error response
func writeErrorResponse(w http.ResponseWriter, statusCode int, apiErr APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(errorEnvelope{Error: apiErr}); err != nil {
		log.Error().Err(err).Msg("Failed to encode error response")
	}
}

// writeError maps err onto its status and envelope. Upstream failures carry the
// underlying cause in detail; validation errors only carry their message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := APIError{
		Message:   internalerrors.Message(err),
		Code:      internalerrors.Code(err),
		RequestID: logging.RequestID(r.Context()),
	}
	switch internalerrors.TypeOf(err) {
	case internalerrors.ErrorTypeValidation, internalerrors.ErrorTypeNotFound:
	case internalerrors.ErrorTypeInternal:
		log.Error().Err(err).Str("request_id", apiErr.RequestID).Msg("Internal error serving request")
	default:
		apiErr.Detail = err.Error()
	}
	writeErrorResponse(w, internalerrors.HTTPStatus(err), apiErr)
}

// responseWriter wraps http.ResponseWriter to capture status codes
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.ResponseWriter.WriteHeader(code)
		rw.written = true
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) StatusCode() int {
	if rw == nil {
		return http.StatusInternalServerError
	}
	return rw.statusCode
}

// Flush implements http.Flusher when the underlying writer supports it.
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
