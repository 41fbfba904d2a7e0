// Package web embeds the registration client and the API description.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var static embed.FS

//go:embed openapi.yaml
var OpenAPISpec []byte

// Static returns the client files rooted at the static directory.
func Static() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		// the directory is embedded at build time
		panic(err)
	}
	return sub
}
