package handlers

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RespondJSONWithETag marshals payload once, tags it with a strong
// content-hash ETag and answers 304 without a body when the caller's
// If-None-Match already names it. Clients must revalidate every time.
func RespondJSONWithETag(ctx *gin.Context, status int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		ctx.JSON(status, payload)
		return
	}

	etag := contentETag(body)

	h := ctx.Writer.Header()
	h.Set("ETag", etag)
	h.Set("Cache-Control", "no-cache")

	if etagListContains(ctx.GetHeader("If-None-Match"), etag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.Data(status, gin.MIMEJSON+"; charset=utf-8", body)
}

func contentETag(body []byte) string {
	sum := sha256.Sum256(body)
	return `"` + base64.RawURLEncoding.EncodeToString(sum[:16]) + `"`
}

// etagListContains applies the weak comparison If-None-Match calls for.
func etagListContains(list, etag string) bool {
	for _, candidate := range strings.Split(list, ",") {
		candidate = strings.TrimSpace(candidate)

		switch {
		case candidate == "":
			continue
		case candidate == "*":
			return true
		case strings.TrimPrefix(candidate, "W/") == etag:
			return true
		}
	}

	return false
}
