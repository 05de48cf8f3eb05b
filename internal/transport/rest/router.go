package rest

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/permission-management/internal"
	"github.com/frahmantamala/permission-management/internal/auth"
	"github.com/frahmantamala/permission-management/internal/permission"
	"github.com/frahmantamala/permission-management/internal/transport"
	"github.com/frahmantamala/permission-management/internal/transport/middleware"
	"github.com/frahmantamala/permission-management/internal/transport/openapi"
	"github.com/frahmantamala/permission-management/internal/transport/swagger"
	"github.com/frahmantamala/permission-management/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/jmoiron/sqlx"
)

// Dependencies are the handlers and infrastructure the router mounts. Nil
// handlers leave their routes unregistered.
type Dependencies struct {
	DB                *sqlx.DB
	AuthHandler       *auth.Handler
	UserHandler       *user.Handler
	PermissionHandler *permission.Handler
	OpenAPI           *openapi.Document
	Metrics           *middleware.Metrics
	MetricsPath       string
	AllowedOrigins    []string
	RequestTimeout    time.Duration
	Logger            *slog.Logger
}

// ParseOrigins splits the comma-separated allowed_origins setting.
func ParseOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func RegisterAllRoutes(router *chi.Mux, deps Dependencies) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	base := transport.NewBaseHandler(logger)
	healthHandler := NewHealthHandler(deps.DB)
	rbac := auth.NewRBACAuthorization(logger)

	// Apply global middleware
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.CORS(deps.AllowedOrigins))
	router.Use(middleware.SecurityHeaders)
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware)
	}
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.Timeout(deps.RequestTimeout))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		base.WriteAppError(w, r, internal.NewNotFoundError("Route not found", internal.ErrCodeRouteNotFound))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		appErr := internal.NewBadRequestError("Method not allowed", internal.ErrCodeMethodNotAllowed)
		appErr.StatusCode = http.StatusMethodNotAllowed
		base.WriteAppError(w, r, appErr)
	})

	if deps.OpenAPI != nil {
		router.Method(http.MethodGet, "/openapi.yml", deps.OpenAPI)
		router.Handle("/swagger/*", swagger.Handler("/openapi.yml"))
	}
	if deps.Metrics != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Method(http.MethodGet, path, deps.Metrics.Handler())
	}

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if deps.AuthHandler == nil {
			return
		}

		r.Route("/auth", func(ar chi.Router) {
			ar.Post("/login", deps.AuthHandler.Login)
			ar.Post("/register", deps.AuthHandler.Register)
			ar.Post("/refresh", deps.AuthHandler.RefreshToken)

			ar.Group(func(pr chi.Router) {
				pr.Use(deps.AuthHandler.AuthMiddleware)
				pr.Get("/profile", deps.AuthHandler.Profile)
				pr.Post("/change-password", deps.AuthHandler.ChangePassword)
			})
		})

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(deps.AuthHandler.AuthMiddleware)

			if h := deps.PermissionHandler; h != nil {
				pr.Route("/permisos", func(rr chi.Router) {
					rr.With(rbac.RequireRole(auth.RoleStudent)).Post("/", h.CreatePermission)
					rr.Get("/", h.ListPermissions)
					rr.Get("/stats", h.GetStats)
					rr.Get("/search", h.SearchPermissions)
					rr.With(rbac.RequireElevated()).Get("/pending", h.ListPending)

					rr.Get("/{id}", h.GetPermission)
					rr.With(rbac.RequireElevated()).Put("/{id}", h.ReviewPermission)
					rr.Delete("/{id}", h.DeletePermission)
				})
			}

			if h := deps.UserHandler; h != nil {
				pr.Route("/usuarios", func(ur chi.Router) {
					ur.Group(func(er chi.Router) {
						er.Use(rbac.RequireElevated())
						er.Get("/", h.ListUsers)
						er.Get("/students", h.ListStudents)
						er.Get("/search", h.SearchUsers)
					})

					ur.Route("/{id}", func(ir chi.Router) {
						ir.With(rbac.RequireOwnerOrElevated("id")).Get("/", h.GetUser)
						ir.With(rbac.RequireOwnerOrElevated("id")).Put("/", h.UpdateUser)
						ir.With(rbac.RequireRole(auth.RoleDirector)).Delete("/", h.DeleteUser)
						ir.With(rbac.RequireOwnerOrElevated("id")).Get("/stats", h.GetUserStats)
					})
				})
			}
		})
	})
}
