package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	apierrors "github.com/pribylovaa/risk-assistant/internal/errors"
	"github.com/pribylovaa/risk-assistant/internal/pkg/log"
)

// Recover перехватывает panic обработчика и отвечает 500 с общим detail.
// http.ErrAbortHandler пробрасывается дальше: им net/http обрывает ответ.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				ctx := r.Context()
				log.From(ctx).LogAttrs(ctx, slog.LevelError, "panic_recovered",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("request_id", RequestIDFrom(ctx)),
					slog.Any("reason", rec),
					slog.String("stack", string(debug.Stack())),
				)
				apierrors.WriteDetail(w, http.StatusInternalServerError, apierrors.DetailInternal)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
