package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	apierrors "github.com/pribylovaa/risk-assistant/internal/errors"
)

// Timeout ограничивает время обработки запроса (например, долгий RAG-вызов).
// Уже заданный deadline не переопределяется; d <= 0 отключает мидлвар.
// Если обработчик вернулся по истёкшему deadline и ничего не записал,
// клиент получает 504 {"detail": "Request timed out."}.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Context().Deadline(); ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r.WithContext(ctx))

			if sw.status == 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				apierrors.WriteError(sw, ctx.Err())
			}
		})
	}
}
