package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const msgUnsupportedMediaType = "Content-Type must be application/json"

// RequireJSON rejects bodies that are not declared as application/json,
// parameters such as charset are ignored.
func RequireJSON() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !strings.EqualFold(ctx.ContentType(), gin.MIMEJSON) {
			ctx.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{"error": msgUnsupportedMediaType})
			return
		}

		ctx.Next()
	}
}

// MaxBodyBytes caps how much of a request body handlers can read. Reading
// past the cap fails, which the JSON binder reports as a bad body.
// max <= 0 disables the cap.
func MaxBodyBytes(max int64) gin.HandlerFunc {
	if max <= 0 {
		return func(ctx *gin.Context) { ctx.Next() }
	}

	return func(ctx *gin.Context) {
		if ctx.Request.Body != nil && ctx.Request.Body != http.NoBody {
			ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, max)
		}

		ctx.Next()
	}
}
