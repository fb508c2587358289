package server

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/suarabot/suarabot/internal/models"
)

// slowRequestThreshold is the duration above which requests are logged
// at WARN level.
const slowRequestThreshold = 500 * time.Millisecond

// assistantHandler is a request handler with the authenticated
// assistant already resolved.
type assistantHandler func(w http.ResponseWriter, r *http.Request, assistant *models.Assistant)

// withAssistant authenticates the request by widget API key, taken from
// the X-API-Key header or, for websocket upgrades, the api_key query
// parameter.
func (s *Server) withAssistant(next assistantHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if key == "" {
			key = r.URL.Query().Get("api_key")
		}
		if key == "" {
			writeError(w, http.StatusUnauthorized, "api key required")
			return
		}

		assistant, err := s.assistants.GetAssistantByAPIKey(r.Context(), key)
		if err != nil {
			s.logger.Error("api key lookup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "authentication failed")
			return
		}
		if assistant == nil {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}

		next(w, r, assistant)
	})
}

// statusRecorder captures the response code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack passes through so websocket upgrades work behind the logger.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// logRequests logs every request with timing. Slow requests are logged
// at WARN level.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		duration := time.Since(start)
		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration_ms", duration.Milliseconds(),
		}
		switch {
		case recorder.status >= http.StatusInternalServerError:
			s.logger.Error("request failed", attrs...)
		case duration > slowRequestThreshold:
			s.logger.Warn("slow request", attrs...)
		default:
			s.logger.Debug("request completed", attrs...)
		}
	})
}
