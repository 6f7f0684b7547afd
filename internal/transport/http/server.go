package http

import (
	"log/slog"
	"net/http"
	"time"

	"aptitude-service/internal/app"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server exposes the scoring service over REST and the live leaderboard over WebSocket.
type Server struct {
	service *app.ScoringService
	ws      *WSHandler
	router  *chi.Mux
}

func NewServer(service *app.ScoringService) *Server {
	s := &Server{
		service: service,
		ws:      NewWSHandler(service),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", headerUserID, headerUserRole},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	// Browsers cannot attach identity headers to a WebSocket handshake; the
	// feed only carries data the leaderboard routes already expose.
	r.Get("/ws/leaderboard", s.ws.ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(requireIdentity)

		r.Route("/tests", func(r chi.Router) {
			r.Get("/", s.handleListTests)
			r.Get("/{testID}", s.handleGetTest)
			r.Post("/{testID}/submit", s.handleSubmit)
		})

		r.Route("/attempts", func(r chi.Router) {
			r.Get("/", s.handleMyAttempts)
			r.Get("/dashboard/stats", s.handleDashboard)
			r.Get("/test/{testID}", s.handleTestAttempts)
			r.Get("/test/{testID}/compare", s.handleCompare)
			r.Get("/{attemptID}", s.handleGetAttempt)
		})

		r.Route("/leaderboard", func(r chi.Router) {
			r.Get("/", s.handleOverallLeaderboard)
			r.Get("/test/{testID}", s.handleTestLeaderboard)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAdmin)
			r.Get("/stats", s.handleAdminStats)
			r.Get("/users", s.handleAdminUsers)
			r.Get("/attempts", s.handleAdminAttempts)
			r.Get("/leaderboard", s.handleAdminLeaderboard)
		})
	})

	s.router = r
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
