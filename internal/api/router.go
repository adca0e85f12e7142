package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"carassist-backend/internal/config"
	"carassist-backend/internal/handlers"
)

// RouterDependencies holds all the dependencies required by the router setup,
// primarily handlers and configuration.
type RouterDependencies struct {
	AuthHandler    *handlers.AuthHandler
	ChatHandler    *handlers.ChatHandlers
	CarHandler     *handlers.CarHandlers
	MessageHandler *handlers.MessageHandlers
	Config         *config.Config
}

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// --- CORS Configuration ---
	// The Angular dev server runs on 4200; adjust for deployments.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:4200", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Public Routes (No JWT Required) ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/v1/auth", func(r chi.Router) {
		if deps.AuthHandler == nil {
			panic("AuthHandler dependency is nil in router setup")
		}
		r.Use(middleware.Timeout(30 * time.Second))
		r.Post("/signup", deps.AuthHandler.HandleSignup)
		r.Post("/login", deps.AuthHandler.HandleLogin)
	})

	// --- SSE Stream Route ---
	// Authenticated via query token and deliberately outside the request
	// timeout middleware: the stream enforces its own max response time and
	// must stay open well past a normal request deadline.
	if deps.MessageHandler != nil {
		r.Group(func(r chi.Router) {
			r.Use(JwtQueryAuthMiddleware(deps.Config.JWTSecret))
			r.Get("/v1/chats/{chatID}/messages/stream", deps.MessageHandler.HandleStream)
		})
	}

	// --- Authenticated Routes (JWT Required) ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(JwtAuthMiddleware(deps.Config.JWTSecret))

		// --- Mount Chat Routes ---
		if deps.ChatHandler != nil {
			r.Route("/chats", func(r chi.Router) {
				r.Post("/", deps.ChatHandler.HandleCreateChat)
				r.Get("/", deps.ChatHandler.HandleListChats)
				r.Get("/{chatID}", deps.ChatHandler.HandleGetChatByID)
				r.Get("/{chatID}/messages", deps.ChatHandler.HandleListMessages)

				if deps.MessageHandler != nil {
					r.Post("/{chatID}/messages", deps.MessageHandler.HandleSendMessage)
				}
			})
		}

		// --- Mount Car Catalog Routes ---
		if deps.CarHandler != nil {
			r.Route("/cars", func(r chi.Router) {
				r.Post("/", deps.CarHandler.HandleCreateCar)
				r.Get("/", deps.CarHandler.HandleListCars)
				r.Get("/{carID}", deps.CarHandler.HandleGetCarByID)
			})
		}
	})

	return r
}
