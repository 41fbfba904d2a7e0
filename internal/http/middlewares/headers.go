package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
)

const (
	// the registration page only loads its own script; the banner uses inline styles
	appCSP = "default-src 'self'; base-uri 'none'; frame-ancestors 'none'; object-src 'none'; style-src 'self' 'unsafe-inline'"

	// Swagger UI pulls its bundle from unpkg and bootstraps inline
	docsCSP = "default-src 'self'; base-uri 'none'; frame-ancestors 'none'; object-src 'none'; connect-src 'self'; " +
		"img-src 'self' data: https:; font-src 'self' https://unpkg.com data:; " +
		"style-src 'self' 'unsafe-inline' https://unpkg.com; script-src 'self' 'unsafe-inline' https://unpkg.com"

	docsPrefix = "/docs"
)

var staticSecurityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "no-referrer"},
	{"X-XSS-Protection", "0"},
	{"Cross-Origin-Opener-Policy", "same-origin"},
}

func SecurityHeaders() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		h := ctx.Writer.Header()
		for _, kv := range staticSecurityHeaders {
			h.Set(kv[0], kv[1])
		}

		csp := appCSP
		if strings.HasPrefix(ctx.Request.URL.Path, docsPrefix) {
			csp = docsCSP
		}
		h.Set("Content-Security-Policy", csp)

		ctx.Next()
	}
}

// CORS lets a client served from another origin call the API. Only the
// listed origins are allowed; an empty list allows none.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[strings.TrimRight(origin, "/")] = struct{}{}
	}

	handler := cors.Handler(cors.Options{
		// AllowedOrigins stays empty: go-chi/cors treats an empty list as "*"
		// unless AllowOriginFunc is set
		AllowOriginFunc: func(_ *http.Request, origin string) bool {
			_, ok := allowed[origin]
			return ok
		},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader, "If-None-Match"},
		ExposedHeaders: []string{RequestIDHeader, "ETag"},
		MaxAge:         300,
	})

	return func(ctx *gin.Context) {
		passed := false

		handler(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			passed = true
			ctx.Request = r
			ctx.Next()
		})).ServeHTTP(ctx.Writer, ctx.Request)

		// preflights are answered by go-chi/cors without reaching next
		if !passed {
			ctx.Abort()
		}
	}
}
