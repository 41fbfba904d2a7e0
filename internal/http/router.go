package http

import (
	"io/fs"
	"log/slog"
	stdhttp "net/http"
	"path"
	"strings"

	"github.com/geocoder89/userreg/internal/config"
	"github.com/geocoder89/userreg/internal/http/handlers"
	"github.com/geocoder89/userreg/internal/http/middlewares"
	"github.com/geocoder89/userreg/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "userreg-api"

// Store is what the router needs from a users backend.
type Store interface {
	handlers.UsersStore
	handlers.Pinger
}

type Deps struct {
	Store  Store
	Hasher handlers.PasswordHasher

	// Prom and Gatherer are optional; /metrics is mounted only when both are set.
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	Tracing bool

	// Static is served for unmatched GET and HEAD requests.
	Static  fs.FS
	OpenAPI []byte
}

func NewRouter(log *slog.Logger, deps Deps, cfg config.Config) *gin.Engine {
	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	if deps.Tracing {
		r.Use(otelgin.Middleware(serviceName))
	}
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORS(cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))

	// health
	h := handlers.NewHealthHandler(deps.Store)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if cfg.MetricsEnabled && deps.Prom != nil && deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	docs := handlers.NewDocsHandler(deps.OpenAPI)
	r.GET("/docs", docs.SwaggerUI)
	r.GET("/docs/openapi.yaml", docs.OpenAPI)

	// users
	usersHandler := handlers.NewUsersHandler(deps.Store, deps.Hasher, deps.Prom, log)
	r.POST("/users", middlewares.RequireJSON(), usersHandler.CreateUser)
	r.GET("/users", usersHandler.ListUsers)

	r.NoRoute(staticFallback(deps.Static))

	return r
}

// staticFallback serves the client for GET and HEAD requests naming an
// existing file and answers everything else with a JSON 404.
func staticFallback(fsys fs.FS) gin.HandlerFunc {
	var files stdhttp.Handler
	if fsys != nil {
		files = stdhttp.FileServer(stdhttp.FS(fsys))
	}

	return func(ctx *gin.Context) {
		method := ctx.Request.Method
		if files == nil || (method != stdhttp.MethodGet && method != stdhttp.MethodHead) {
			handlers.RespondNotFound(ctx)
			return
		}

		name := strings.TrimPrefix(path.Clean("/"+ctx.Request.URL.Path), "/")
		if name == "" {
			name = "index.html"
		}

		info, err := fs.Stat(fsys, name)
		if err != nil {
			handlers.RespondNotFound(ctx)
			return
		}
		if info.IsDir() {
			if _, err := fs.Stat(fsys, path.Join(name, "index.html")); err != nil {
				handlers.RespondNotFound(ctx)
				return
			}
		}

		// FileServer writes its own status; gin's NoRoute default is 404
		ctx.Status(stdhttp.StatusOK)
		files.ServeHTTP(ctx.Writer, ctx.Request)
	}
}
