package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/qa-dashboard/engine/internal/api/handlers"
	mw "github.com/qa-dashboard/engine/internal/api/middleware"
	"github.com/qa-dashboard/engine/internal/metrics"
)

type Dependencies struct {
	// JWTSecret enables bearer identity when set; requests without a valid
	// token stay anonymous.
	JWTSecret []byte

	SyncHandler    *handlers.SyncHandler
	QualityHandler *handlers.QualityHandler
	BlobHandler    *handlers.BlobHandler
	HealthHandler  *handlers.HealthHandler

	Metrics     *metrics.Metrics
	RateLimiter *mw.RateLimiter
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.Metrics(dep.Metrics))
	r.Use(mw.CORS)
	if dep.RateLimiter != nil {
		r.Use(dep.RateLimiter.Handler)
	}
	r.Use(chimid.Compress(5))
	r.Use(mw.OptionalAuth(dep.JWTSecret))

	hh := dep.HealthHandler
	if hh == nil {
		hh = handlers.NewHealthHandler(nil)
	}
	r.Get("/healthz", hh.Liveness)
	r.Get("/readyz", hh.Readiness)
	if dep.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", dep.Metrics.Handler())
	}

	sync := dep.SyncHandler
	if sync == nil {
		sync = handlers.NewSyncHandler(nil, 0)
	}

	r.Route("/api", func(api chi.Router) {
		// The sync endpoint answers every method itself, 405 included.
		api.Handle("/sync", sync)
		api.Handle("/projects", sync)

		if dep.BlobHandler != nil {
			api.Post("/storage/*", dep.BlobHandler.Upload)
		}

		if dep.QualityHandler != nil {
			api.Route("/quality", func(qr chi.Router) {
				qr.Post("/", dep.QualityHandler.Score)
				qr.Post("/insights", dep.QualityHandler.Insights)
			})
		}
	})

	return r
}
