package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/secureblog/secureblog/backend/go-services/internal/analysis"
	"github.com/secureblog/secureblog/backend/go-services/internal/document"
	"github.com/secureblog/secureblog/backend/go-services/internal/document/service"
	"github.com/secureblog/secureblog/backend/go-services/internal/ingestion"
	"github.com/secureblog/secureblog/backend/go-services/pkg/logger"
	"github.com/secureblog/secureblog/backend/go-services/pkg/middleware"
)

// Handler exposes documents, their history, and the scoring primitives over HTTP.
type Handler struct {
	svc        service.Service
	similarity *analysis.SimilarityScorer
	features   analysis.TextFeatureScorer
}

func New(svc service.Service, similarity *analysis.SimilarityScorer, features analysis.TextFeatureScorer) *Handler {
	return &Handler{svc: svc, similarity: similarity, features: features}
}

// Register mounts all routes. Identity middleware must run before it.
func (h *Handler) Register(r gin.IRouter) {
	docs := r.Group("/api/documents")
	docs.GET("", h.list)
	docs.GET("/:id", h.get)
	docs.GET("/:id/revisions", h.revisions)
	docs.GET("/:id/revisions/:version/archive", h.archiveURL)
	docs.POST("", middleware.RequireOwner(), h.create)
	docs.PUT("/:id", middleware.RequireOwner(), h.update)
	docs.DELETE("/:id", middleware.RequireOwner(), h.remove)
	docs.POST("/:id/restore/:revisionId", middleware.RequireOwner(), h.restore)

	an := r.Group("/api/analysis")
	an.POST("/similarity", h.scoreSimilarity)
	an.POST("/machine-likelihood", h.scoreMachineLikelihood)
	an.GET("/reports", h.reports)
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), c.Query("owner"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(list))
	for _, d := range list {
		out = append(out, gin.H{
			"id":                d.ID,
			"title":             d.Title,
			"ownerId":           d.OwnerID,
			"similarityScore":   d.SimilarityScore,
			"machineLikelihood": d.MachineLikelihood,
			"updatedAt":         d.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) create(c *gin.Context) {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.Create(c.Request.Context(), middleware.OwnerFromContext(c), req.Title, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":                res.Document.ID,
		"similarityScore":   res.Decision.Similarity,
		"machineLikelihood": res.Decision.MachineLikelihood,
		"version":           res.Revision.Version,
	})
}

func (h *Handler) update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Content           string `json:"content" binding:"required"`
		ChangeDescription string `json:"changeDescription"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rev, err := h.svc.Update(c.Request.Context(), middleware.OwnerFromContext(c), id, req.Content, req.ChangeDescription)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "version": rev.Version})
}

func (h *Handler) remove(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.OwnerFromContext(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) revisions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	revs, err := h.svc.Revisions(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, revs)
}

func (h *Handler) restore(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	revID, ok := pathID(c, "revisionId")
	if !ok {
		return
	}
	res, err := h.svc.Restore(c.Request.Context(), middleware.OwnerFromContext(c), id, revID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"newVersion": res.Revision.Version, "restoredVersion": res.RestoredVersion})
}

func (h *Handler) archiveURL(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil || version <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version"})
		return
	}
	url, err := h.svc.ArchiveURL(c.Request.Context(), id, version)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *Handler) scoreSimilarity(c *gin.Context) {
	var req struct {
		Candidate string   `json:"candidate"`
		Corpus    []string `json:"corpus"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := h.similarity.Nearest(req.Candidate, req.Corpus)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"score": m.Score, "nearestIndex": m.Index})
}

func (h *Handler) scoreMachineLikelihood(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"score": h.features.Estimate(req.Text), "scorer": h.features.Name()})
}

func (h *Handler) reports(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	out, err := h.svc.Reports(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	var rej *ingestion.RejectedError
	switch {
	case errors.As(err, &rej):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "content rejected as duplicative", "similarityScore": rej.Similarity})
	case errors.Is(err, document.ErrInvalidInput), errors.Is(err, analysis.ErrEmptyText):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, document.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "not the document owner"})
	case errors.Is(err, document.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, document.ErrAlreadyExists), errors.Is(err, document.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrArchiveDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		logger.Error("request failed", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
