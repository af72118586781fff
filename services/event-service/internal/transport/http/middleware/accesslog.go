package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/baechuer/real-time-ressys/pkg/logger"
)

// wrap returns a writer that remembers status and size; status 0 means the
// handler never wrote a header, which net/http sends as 200.
func wrap(w http.ResponseWriter, r *http.Request) chimw.WrapResponseWriter {
	return chimw.NewWrapResponseWriter(w, r.ProtoMajor)
}

func statusOf(ww chimw.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}

func routeOf(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return "unmatched"
}

// AccessLog writes one http_request line per request; 5xx responses log at error level.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := wrap(w, r)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := statusOf(ww)
		log := logger.Ctx(r.Context())
		ev := log.Info()
		if status >= http.StatusInternalServerError {
			ev = log.WithLevel(zerolog.ErrorLevel)
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", routeOf(r)).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("latency", time.Since(start)).
			Str("remote_ip", r.RemoteAddr).
			Msg("http_request")
	})
}
