package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger serves the API description:
// GET /swagger/index.html renders Swagger UI, GET /swagger/doc.json the OpenAPI document.
func RegisterSwagger(rg gin.IRouter) {
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
    <title>secureblog documents - Swagger</title>
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

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "secureblog-documents", "version": "v0.1.0" },
  "paths": {
    "/api/documents": {
      "get": { "summary": "List documents, optionally by owner", "parameters": [{"name":"owner","in":"query","schema":{"type":"string"}}], "responses": { "200": { "description": "documents, newest first" } } },
      "post": {
        "summary": "Submit a document for screening and publication",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["content"],"properties":{"title":{"type":"string"},"content":{"type":"string"}}}}}},
        "responses": { "201": { "description": "accepted with scores and version 1" }, "400": { "description": "empty content" }, "401": { "description": "no identity" }, "422": { "description": "rejected as duplicative, includes similarityScore" } }
      }
    },
    "/api/documents/{id}": {
      "get": { "summary": "Get a document", "responses": { "200": { "description": "document" }, "404": { "description": "not found" } } },
      "put": {
        "summary": "Append an edit as the next revision",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["content"],"properties":{"content":{"type":"string"},"changeDescription":{"type":"string"}}}}}},
        "responses": { "200": { "description": "new version" }, "403": { "description": "not the owner" }, "409": { "description": "version conflict" }, "422": { "description": "edit rejected when edit screening is enabled" } }
      },
      "delete": { "summary": "Delete a document and its history", "responses": { "204": { "description": "deleted" }, "403": { "description": "not the owner" } } }
    },
    "/api/documents/{id}/revisions": {
      "get": { "summary": "Revision history, newest first", "responses": { "200": { "description": "revisions" } } }
    },
    "/api/documents/{id}/revisions/{version}/archive": {
      "get": { "summary": "Presigned URL of an archived revision", "responses": { "200": { "description": "url" }, "503": { "description": "archive not configured" } } }
    },
    "/api/documents/{id}/restore/{revisionId}": {
      "post": { "summary": "Restore a revision as a new head", "responses": { "200": { "description": "newVersion and restoredVersion" }, "404": { "description": "revision not found or belongs to another document" } } }
    },
    "/api/analysis/similarity": {
      "post": { "summary": "TF-IDF cosine similarity of a candidate to a corpus", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"candidate":{"type":"string"},"corpus":{"type":"array","items":{"type":"string"}}}}}}}, "responses": { "200": { "description": "score percentage and nearestIndex" } } }
    },
    "/api/analysis/machine-likelihood": {
      "post": { "summary": "Sentence-uniformity machine-likelihood estimate", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"text":{"type":"string"}}}}}}, "responses": { "200": { "description": "score in [5,95], or 10 for short text" } } }
    },
    "/api/analysis/reports": {
      "get": { "summary": "Recent screening decisions", "parameters": [{"name":"limit","in":"query","schema":{"type":"integer"}}], "responses": { "200": { "description": "reports, newest first" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
