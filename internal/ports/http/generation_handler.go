package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mediaforge/server/internal/domain/generation"
	"github.com/mediaforge/server/internal/module/orchestrator"
)

// GenerationHandler exposes the generation operations over HTTP.
type GenerationHandler struct {
	service *orchestrator.Service
}

// NewGenerationHandler creates a new generation handler.
func NewGenerationHandler(service *orchestrator.Service) *GenerationHandler {
	return &GenerationHandler{service: service}
}

// RegisterRoutes registers generation routes.
func (h *GenerationHandler) RegisterRoutes(r *gin.RouterGroup) {
	images := r.Group("/images")
	{
		images.POST("/generations", h.GenerateImage)
		images.POST("/edits", h.EditImage)
		images.POST("/references", h.GenerateWithReference)
	}

	videos := r.Group("/videos")
	{
		videos.POST("/generations", h.GenerateVideo)
		videos.POST("/image2video", h.ImageToVideo)
		videos.POST("/extensions", h.ExtendVideo)
		videos.POST("/bridges", h.BridgeFrames)
	}

	models := r.Group("/models3d")
	{
		models.POST("/generations", h.GenerateModel)
		models.POST("/image2model", h.ImageToModel)
		models.POST("/rig", h.RigModel)
		models.POST("/animate", h.AnimateModel)
		models.POST("/retexture", h.RetextureModel)
	}

	r.POST("/tasks/status", h.GetTask)
}

// GenerateImage handles text-to-image requests.
func (h *GenerationHandler) GenerateImage(c *gin.Context) {
	var req generation.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	respondResult(c, h.service.Generate(c.Request.Context(), generation.ModalityImage, &req))
}

// EditImage handles image edit requests.
func (h *GenerationHandler) EditImage(c *gin.Context) {
	var req generation.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	respondResult(c, h.service.Edit(c.Request.Context(), &req))
}

// GenerateWithReference handles reference-guided image generation.
func (h *GenerationHandler) GenerateWithReference(c *gin.Context) {
	var req generation.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	respondResult(c, h.service.GenerateWithReference(c.Request.Context(), &req))
}

// GenerateVideo handles text-to-video requests.
func (h *GenerationHandler) GenerateVideo(c *gin.Context) {
	var req generation.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	respondResult(c, h.service.Generate(c.Request.Context(), generation.ModalityVideo, &req))
}

// ImageToVideo handles image-to-video requests.
func (h *GenerationHandler) ImageToVideo(c *gin.Context) {
	var req generation.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	respondResult(c, h.service.ImageToVideo(c.Request.Context(), &req))
}

// ExtendVideo handles video extension requests.
func (h *GenerationHandler) ExtendVideo(c *gin.Context) {
	var req generation.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	respondResult(c, h.service.ExtendVideo(c.Request.Context(), &req))
}

// BridgeFrames handles first/last frame video generation.
func (h *GenerationHandler) BridgeFrames(c *gin.Context) {
	var req generation.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	respondResult(c, h.service.BridgeFrames(c.Request.Context(), &req))
}

// GenerateModel handles text-to-3d requests.
func (h *GenerationHandler) GenerateModel(c *gin.Context) {
	var req generation.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	respondResult(c, h.service.Generate(c.Request.Context(), generation.ModalityModel3D, &req))
}

// ImageToModel handles image-to-3d requests.
func (h *GenerationHandler) ImageToModel(c *gin.Context) {
	var req generation.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	respondResult(c, h.service.ImageToModel(c.Request.Context(), &req))
}

// RigModel handles rigging requests.
func (h *GenerationHandler) RigModel(c *gin.Context) {
	var req generation.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	respondResult(c, h.service.Rig(c.Request.Context(), &req))
}

// AnimateModel handles animation requests.
func (h *GenerationHandler) AnimateModel(c *gin.Context) {
	var req generation.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	respondResult(c, h.service.Animate(c.Request.Context(), &req))
}

// RetextureModel handles retexture requests.
func (h *GenerationHandler) RetextureModel(c *gin.Context) {
	var req generation.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	respondResult(c, h.service.Retexture(c.Request.Context(), &req))
}

// GetTask handles task status checks for previously submitted tasks.
func (h *GenerationHandler) GetTask(c *gin.Context) {
	var q generation.TaskQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		respondBindError(c, err)
		return
	}
	respondResult(c, h.service.GetTask(c.Request.Context(), &q))
}
