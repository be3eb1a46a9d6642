package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the portal API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>StudyHub SE API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// Minimal OpenAPI document for the JSON API. HTML pages are not listed.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "studyhub-se", "version": "v0.1.0" },
  "paths": {
    "/api/v1/me": {
      "get": { "summary": "Signed-in user of the portal client cookie", "responses": { "200": { "description": "user and pending notifications" }, "401": { "description": "not signed in" }, "503": { "description": "session check still running" } } }
    },
    "/api/v1/past-questions": {
      "get": {
        "summary": "List past questions",
        "parameters": [
          {"name":"level","in":"query","schema":{"type":"string"}},
          {"name":"year","in":"query","schema":{"type":"string"}},
          {"name":"semester","in":"query","schema":{"type":"string"}},
          {"name":"courseCode","in":"query","schema":{"type":"string"}},
          {"name":"q","in":"query","schema":{"type":"string"}},
          {"name":"tab","in":"query","schema":{"type":"string","enum":["all","100","200","300","400+"]}}
        ],
        "responses": { "200": { "description": "items and count" } }
      },
      "post": {
        "summary": "Record an uploaded past question (teacher bearer token)",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"courseCode":{"type":"string"},"courseTitle":{"type":"string"},"year":{"type":"string"},"semester":{"type":"string"},"level":{"type":"string"},"fileName":{"type":"string"}}}}}},
        "responses": { "201": { "description": "created" }, "400": { "description": "validation error" }, "401": { "description": "missing or invalid token" }, "403": { "description": "not a teacher" } }
      }
    },
    "/api/v1/past-questions/{id}": {
      "get": { "summary": "Get a past question", "responses": { "200": { "description": "past question" }, "404": { "description": "not found" } } }
    },
    "/api/v1/past-questions/{id}/download": {
      "post": { "summary": "Count a download (bearer token)", "responses": { "200": { "description": "download counted" }, "404": { "description": "not found" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
