package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/risk-assistant/internal/http/handlers"
	"github.com/pribylovaa/risk-assistant/internal/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api/v1"; если пустой — роуты регистрируются на корне.

	Verifier middleware.TokenVerifier
	Users    middleware.UserLoader
	Metrics  *middleware.Metrics // nil — без метрик
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(h *handlers.Handlers, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
	)
	if opts.Metrics != nil {
		root.Use(opts.Metrics.Middleware())
	}
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}
	root.Use(middleware.Authenticate(opts.Verifier, opts.Users, middleware.DefaultPublicPaths(opts.BasePath)))

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers) {
	r.Get("/", h.Root)

	// auth
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)
	r.Post("/auth/logout", h.Logout)
	r.Get("/auth/google", h.GoogleAuth)
	r.Get("/auth/google/callback", h.GoogleCallback)

	// users
	r.Get("/user/me", h.Me)
	r.Post("/user/create", h.CreateUser)
	r.Get("/user/{id}", h.GetUser)
	r.Patch("/user/{id}", h.UpdateUser)

	// rag
	r.Post("/rag", h.RAG)
	r.Get("/history", h.History)
}
