package handlers

import (
	"net/http"

	"appdist_backend/internal/services"
	"appdist_backend/internal/services/dto"
	"appdist_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// ReleaseHandler exposes the artifact catalog over HTTP.
type ReleaseHandler struct {
	*BaseHandler
	ingestion services.IngestionService
	retrieval services.RetrievalService
}

func NewReleaseHandler(base *BaseHandler, ingestion services.IngestionService, retrieval services.RetrievalService) *ReleaseHandler {
	return &ReleaseHandler{
		BaseHandler: base,
		ingestion:   ingestion,
		retrieval:   retrieval,
	}
}

// RegisterRoutes wires the release endpoints. Mutating operations sit
// behind the strict limiter and the upload-key gate; reads behind the
// public limiter. Both run before any handler logic.
func (h *ReleaseHandler) RegisterRoutes(r *gin.RouterGroup, uploadLimiter, publicLimiter, keyGate gin.HandlerFunc) {
	releases := r.Group("/releases")
	{
		releases.POST("", uploadLimiter, keyGate, h.Upload)
		releases.GET("", publicLimiter, h.List)
		releases.GET("/:id", publicLimiter, h.Get)
		releases.GET("/:id/download", publicLimiter, h.Download)
		releases.DELETE("/:id", uploadLimiter, keyGate, h.Delete)
	}
}

// Upload ingests one artifact. The key gate already ran, so the multipart
// body is only parsed for authorized callers.
func (h *ReleaseHandler) Upload(c *gin.Context) {
	var req dto.UploadRequest
	if !h.BindAndValidateForm(c, &req) {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		apperrors.HandleError(c, apperrors.ErrMissingFile)
		return
	}
	req.File = file
	req.ClientIP = c.ClientIP()

	response, err := h.ingestion.Upload(c.Request.Context(), h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

func (h *ReleaseHandler) List(c *gin.Context) {
	var query dto.ListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	response, err := h.retrieval.List(h.GetDB(c), query)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *ReleaseHandler) Get(c *gin.Context) {
	release, err := h.retrieval.Get(h.GetDB(c), c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, release)
}

// Download accounts for one download event and hands back the URL of the
// stored bytes; serving them is the static file route's job.
func (h *ReleaseHandler) Download(c *gin.Context) {
	response, err := h.retrieval.Download(
		c.Request.Context(),
		h.GetDB(c),
		c.Param("id"),
		c.ClientIP(),
		c.Request.UserAgent(),
	)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *ReleaseHandler) Delete(c *gin.Context) {
	if err := h.retrieval.Delete(c.Request.Context(), h.GetDB(c), c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Deleted"})
}
