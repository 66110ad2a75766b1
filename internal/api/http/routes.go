package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	auth "github.com/mind-engage/mindengage-norms/internal/auth/middleware"
	"github.com/mind-engage/mindengage-norms/internal/metrics"
	"github.com/mind-engage/mindengage-norms/internal/norms"
	"github.com/mind-engage/mindengage-norms/internal/rbac"
)

// Deps are the collaborators of the HTTP surface. Metrics may be nil.
type Deps struct {
	Scorer      Scorer
	Store       norms.AdminStore
	Auth        *auth.AuthService
	Accounts    auth.Accounts
	Metrics     *metrics.Manager
	Log         *zap.Logger
	CORSOrigins []string
}

func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(d.Auth, d.Accounts))

	var onPopulate func(norms.Table)
	if d.Metrics != nil {
		onPopulate = func(t norms.Table) { d.Metrics.TablePopulated(t.Instrument) }
	}

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))

		pr.With(rbac.Require(rbac.PermScore)).
			Post("/score", ScoreHandler(d.Scorer, d.Log))

		pr.Group(func(rr chi.Router) {
			rr.Use(rbac.RequireAny(rbac.PermRead, rbac.PermPopulate))
			rr.Get("/tables", ListTablesHandler(d.Store))
			rr.Get("/tables/{tableID}/rows", ListRowsHandler(d.Store))
		})

		pr.Route("/admin/tables", func(ar chi.Router) {
			ar.Use(rbac.Require(rbac.PermPopulate))
			ar.Post("/", PopulateHandler(d.Store, onPopulate, d.Log))
			ar.Delete("/{name}", DeactivateHandler(d.Store))
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}
	return r
}
