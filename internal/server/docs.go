package server

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Prasann123/Tradition-RAG/docs"
)

const redocPage = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>%s</title>
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <style>body{margin:0;padding:0;} .redoc-wrap{height:100vh;}</style>
  </head>
  <body>
    <div id="redoc-container" class="redoc-wrap"></div>
    <script src="https://cdn.jsdelivr.net/npm/redoc/bundles/redoc.standalone.js"></script>
    <script>
      Redoc.init('%s', {}, document.getElementById('redoc-container'))
    </script>
  </body>
</html>`

// registerDocs serves the embedded OpenAPI document and a ReDoc viewer. Both
// stay outside the JWT-protected group.
func registerDocs(e *echo.Echo) {
	const specPath = "/docs/openapi.yaml"
	e.GET(specPath, func(c echo.Context) error {
		return c.Blob(http.StatusOK, "application/yaml", docs.OpenAPI)
	})
	page := fmt.Sprintf(redocPage, "RAG Agent API Docs", specPath)
	e.GET("/docs", func(c echo.Context) error {
		return c.HTML(http.StatusOK, page)
	})
}
