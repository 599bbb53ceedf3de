package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"modelhub-backend/internal/handlers"
	"modelhub-backend/internal/middleware"
	"modelhub-backend/internal/websocket"
)

func New(
	chatHandler *handlers.ChatHandler,
	catalogHandler *handlers.CatalogHandler,
	staticHandler *handlers.StaticHandler,
	wsHub *websocket.Hub,
	corsOrigin string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(corsOrigin))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// ──── Front end ────
	r.Get("/", staticHandler.Index)
	r.Handle("/static/*", staticHandler.Assets())

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", chatHandler.Chat)
		r.Get("/stats", catalogHandler.Stats)
		r.Post("/sync", catalogHandler.Sync)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/{id}", chatHandler.GetSession)
			r.Delete("/{id}", chatHandler.DeleteSession)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
