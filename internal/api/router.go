package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"vortextau-chat/internal/config"
	"vortextau-chat/internal/handlers"
)

// RouterDependencies holds all the dependencies required by the router setup,
// primarily handlers and configuration.
type RouterDependencies struct {
	ChatHandler   *handlers.ChatHandlers
	ModelHandler  *handlers.ModelHandlers
	SearchHandler *handlers.SearchHandlers
	ShareHandler  *handlers.ShareHandlers
	Config        *config.Config
	Logger        *slog.Logger
}

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	// --- Public Routes ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	limiter := NewRateLimiter(deps.Config.RateLimitRPS, deps.Config.RateLimitBurst)

	// --- API Routes (bearer token required when JWT_SECRET is set) ---
	r.Group(func(r chi.Router) {
		if deps.Config.JWTSecret != "" {
			r.Use(JwtAuthMiddleware(deps.Config.JWTSecret))
		} else {
			logger.Warn("JWT_SECRET not set, API routes are unauthenticated")
		}
		r.Use(limiter.Middleware)

		// Streaming responses outlive any fixed request timeout.
		if deps.ChatHandler != nil {
			r.Post("/chat", deps.ChatHandler.HandleChat)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			if deps.ChatHandler != nil {
				r.Get("/chat", deps.ChatHandler.HandleListRecords)
			} else {
				logger.Warn("ChatHandler dependency is nil, skipping /chat routes")
			}
			if deps.ModelHandler != nil {
				r.Get("/models", deps.ModelHandler.HandleListModels)
			}
			if deps.SearchHandler != nil {
				r.Post("/search", deps.SearchHandler.HandleSearch)
			}
			if deps.ShareHandler != nil {
				r.Post("/share-chat", deps.ShareHandler.HandleShareChat)
				r.Get("/shared-chat/{shareId}", deps.ShareHandler.HandleGetSharedChat)
			}
		})
	})

	return r
}
