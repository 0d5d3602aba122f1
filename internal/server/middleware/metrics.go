package middleware

import (
	"net/http"
	"time"

	"github.com/giantswarm/mcp-kubectl/internal/instrumentation"
)

// statusRecorder remembers the first status code sent through it.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status, s.wroteHeader = code, true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Flush keeps SSE and streamable HTTP responses streaming.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// UnmatchedPath is the path label for requests outside the known routes.
const UnmatchedPath = "/other"

// HTTPMetrics records a request count and duration per method, route and
// status. The route label is one of routes, or UnmatchedPath for anything
// else, so scanners probing random URLs cannot grow the label set. A nil or
// disabled provider turns the middleware into a pass-through.
func HTTPMetrics(provider *instrumentation.Provider, routes ...string) func(http.Handler) http.Handler {
	known := make(map[string]bool, len(routes))
	for _, route := range routes {
		known[route] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if provider == nil || !provider.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			provider.Metrics().RecordHTTPRequest(r.Context(), r.Method,
				routeLabel(known, r.URL.Path), rec.status, time.Since(start))
		})
	}
}

// routeLabel returns the metric path label for path.
func routeLabel(known map[string]bool, path string) string {
	if known[path] {
		return path
	}
	return UnmatchedPath
}
