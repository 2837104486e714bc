package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"postify/internal/handler"
	"postify/internal/httputil"
	authmw "postify/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler    *handler.AuthHandler
	UserHandler    *handler.UserHandler
	PostHandler    *handler.PostHandler
	BlogHandler    *handler.BlogHandler
	UploadHandler  *handler.UploadHandler
	BillingHandler *handler.BillingHandler

	Tokens         authmw.TokenParser
	RateLimiter    *authmw.RateLimiter
	AllowedOrigins []string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Stripe-Signature"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(authmw.SecurityHeaders)
	// Bare /{username} is served by the blog view.
	r.Use(authmw.BlogRewrite)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	limited := func(h http.HandlerFunc) http.Handler {
		if cfg.RateLimiter == nil {
			return h
		}
		return cfg.RateLimiter.Middleware(h)
	}

	// Public routes - no authentication required
	r.Route("/auth", func(r chi.Router) {
		r.Method(http.MethodPost, "/register", limited(cfg.AuthHandler.Register))
		r.Method(http.MethodPost, "/login", limited(cfg.AuthHandler.Login))
		r.Method(http.MethodPost, "/refresh", limited(cfg.AuthHandler.Refresh))
	})
	r.Method(http.MethodGet, "/check-username", limited(cfg.UserHandler.CheckUsername))

	r.Route("/blog/{username}", func(r chi.Router) {
		r.Get("/", cfg.BlogHandler.Profile)
		r.Get("/posts", cfg.BlogHandler.Posts)
		r.Get("/posts/{slug}", cfg.BlogHandler.Post)
	})

	// Stripe authenticates the webhook by signature.
	r.Post("/stripe/webhook", cfg.BillingHandler.Webhook)

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.Tokens))

		r.Get("/me", cfg.AuthHandler.Me)
		r.Post("/auth/logout", cfg.AuthHandler.Logout)
		r.Post("/auth/logout-all", cfg.AuthHandler.LogoutAll)

		r.Route("/user", func(r chi.Router) {
			r.Get("/profile", cfg.UserHandler.GetProfile)
			r.Put("/profile", cfg.UserHandler.UpdateProfile)
			r.Post("/avatar", cfg.UserHandler.UploadAvatar)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", cfg.PostHandler.List)
			r.Post("/", cfg.PostHandler.Create)
			r.Get("/{id}", cfg.PostHandler.Get)
			r.Put("/{id}", cfg.PostHandler.Update)
			r.Delete("/{id}", cfg.PostHandler.Delete)
		})

		r.Post("/upload", cfg.UploadHandler.Upload)

		r.Get("/stripe/checkout", cfg.BillingHandler.Checkout)
		r.Post("/stripe/portal", cfg.BillingHandler.Portal)
	})

	return r
}
