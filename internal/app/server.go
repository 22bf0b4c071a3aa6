package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/quillbase/ingesta/internal/api/handlers"
	appMiddleware "github.com/quillbase/ingesta/internal/api/middlewares"
	"github.com/quillbase/ingesta/internal/config"
	"github.com/quillbase/ingesta/internal/core"
	"github.com/quillbase/ingesta/internal/core/ingest"
	"github.com/quillbase/ingesta/internal/core/refresh"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, db core.DbClient, obj core.ObjectClient, ing ingest.Ingestor, sched *refresh.Scheduler) *Server {
	sourceHandler := handlers.NewSourceHandler(db, obj, ing, cfg)
	refreshHandler := handlers.NewRefreshHandler(sched, cfg.RefreshSecret)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		// background-job trigger, shared secret not a user session
		api.Post("/refresh", refreshHandler.TriggerRefresh)

		// org-scoped endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware)
			protected.Post("/sources", sourceHandler.RegisterWebsite)
			protected.Post("/sources/upload", sourceHandler.UploadDocument)
			protected.Get("/sources", sourceHandler.ListSources)
			protected.Post("/sources/{id}/ingest", sourceHandler.ReingestSource)
			protected.Delete("/sources/{id}", sourceHandler.DeleteSource)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
