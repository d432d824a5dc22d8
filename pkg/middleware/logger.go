package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewStructuredLogger logs one line per request. Mount it after chi's
// RequestID middleware so lines carry the request id.
//
// Successful requests to quietPaths (health checks, scrapes) are logged at
// debug so they do not drown the webhook and verify traffic.
func NewStructuredLogger(logger *slog.Logger, quietPaths ...string) func(next http.Handler) http.Handler {
	quiet := make(map[string]struct{}, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}

				level, msg := slog.LevelInfo, "request completed"
				switch {
				case status >= http.StatusInternalServerError:
					level, msg = slog.LevelError, "server error"
				case status >= http.StatusBadRequest:
					level, msg = slog.LevelWarn, "client error"
				default:
					if _, ok := quiet[r.URL.Path]; ok {
						level = slog.LevelDebug
					}
				}

				// Set once routing has run, so read it after next returns.
				route := ""
				if rctx := chi.RouteContext(r.Context()); rctx != nil {
					route = rctx.RoutePattern()
				}

				logger.LogAttrs(r.Context(), level, msg,
					slog.Group("request",
						slog.String("id", middleware.GetReqID(r.Context())),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("route", route),
						slog.String("remote_addr", r.RemoteAddr),
					),
					slog.Group("response",
						slog.Int("status", status),
						slog.Int("bytes", ww.BytesWritten()),
						slog.Int64("latency_ms", time.Since(start).Milliseconds()),
					),
				)
			}()

			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}
