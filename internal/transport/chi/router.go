package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/coloradocollege/digitalcc/internal/metrics"
)

// RouterConfig configures the HTTP router.
type RouterConfig struct {
	// AdminKeys are the bearer tokens accepted on /admin routes.
	AdminKeys []string
	// Metrics mounts /metrics when set.
	Metrics bool
	Logger  *zap.Logger
}

// NewRouter builds the HTTP handler tree for the server.
func NewRouter(s *Server, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = s.logger
	}

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
	})

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		r.Method(method, "/browse", http.HandlerFunc(s.Browse))
		r.Method(method, "/search", http.HandlerFunc(s.Search))
		r.Method(method, "/detail", http.HandlerFunc(s.Detail))
	}
	r.Get("/aggregations", s.Aggregations)
	r.Get("/title", s.Title)

	r.Route("/pid/{pid}", func(r chi.Router) {
		r.Get("/", s.Object)
		r.Get("/datastream/{dsid}", s.Datastream)
	})
	r.Get("/thumbnail/{pid}", s.Thumbnail)
	r.Get("/image/{id}", s.Image)

	r.Get("/chrome/{part}", s.ChromePart)
	r.Get("/about", s.About)
	r.Get("/health", s.Health)
	if cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/admin", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(cfg.AdminKeys))
		r.Post("/index", s.Index)
	})

	return r
}
