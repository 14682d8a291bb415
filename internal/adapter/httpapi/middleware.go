package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/example/catalog-service/internal/logger"
)

const requestIDHeader = "X-Request-ID"

// statusRecorder captures the status code and bytes written.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.wroteHeader {
		return
	}
	s.status = code
	s.wroteHeader = true
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if !s.wroteHeader {
		s.WriteHeader(http.StatusOK)
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// withRequestID propagates X-Request-ID or generates one.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, rid)
		next.ServeHTTP(w, r)
	})
}

// withLogging injects a request-scoped logger and records each request in
// the log and in metrics, labelled by route template.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		route := r.URL.Path
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		reqLog := s.log.With(
			zap.String("request_id", w.Header().Get(requestIDHeader)),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(logger.ToContext(r.Context(), reqLog)))

		dur := time.Since(start)
		s.metrics.ObserveRequest(r.Method, route, rec.status, dur)
		reqLog.Info("request completed",
			zap.Int("status", rec.status),
			zap.Int("bytes", rec.bytes),
			zap.Int64("duration_ms", dur.Milliseconds()),
		)
	})
}
