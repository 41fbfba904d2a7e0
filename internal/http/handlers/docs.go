package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const swaggerUIHTML = `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width,initial-scale=1" />
    <title>User Registration API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: "/docs/openapi.yaml",
        dom_id: "#swagger-ui",
        deepLinking: true,
        presets: [SwaggerUIBundle.presets.apis],
        layout: "BaseLayout"
      });
    </script>
  </body>
</html>`

type DocsHandler struct {
	spec []byte
}

func NewDocsHandler(openAPISpec []byte) *DocsHandler {
	return &DocsHandler{spec: openAPISpec}
}

func (h *DocsHandler) SwaggerUI(ctx *gin.Context) {
	ctx.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerUIHTML))
}

func (h *DocsHandler) OpenAPI(ctx *gin.Context) {
	if len(h.spec) == 0 {
		RespondNotFound(ctx)
		return
	}

	ctx.Data(http.StatusOK, "application/yaml; charset=utf-8", h.spec)
}
