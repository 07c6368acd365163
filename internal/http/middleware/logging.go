package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/risk-assistant/internal/pkg/log"
)

// Logging кладёт в контекст логгер запроса (с request_id) и по завершении
// пишет запись "http". Уровень зависит от статуса: 5xx — Error, 4xx — Warn.
func Logging(l *slog.Logger) Middleware {
	if l == nil {
		l = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lg := l
			if rid := r.Header.Get(HeaderRequestID); rid != "" {
				lg = lg.With(slog.String("request_id", rid))
			}
			ctx := log.Into(r.Context(), lg)

			sw := newStatusWriter(w)
			start := time.Now()
			next.ServeHTTP(sw, r.WithContext(ctx))

			status := sw.Status()
			lg.LogAttrs(ctx, levelFor(status), "http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Duration("dur", time.Since(start)),
				slog.Int("bytes", sw.count),
			)
		})
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
