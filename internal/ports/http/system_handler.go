package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mediaforge/server/internal/module/orchestrator"
	"github.com/mediaforge/server/internal/module/orchestrator/health"
)

// SystemHandler exposes service health and the provider catalog.
type SystemHandler struct {
	registry *orchestrator.Registry
	monitor  *health.Monitor
}

// NewSystemHandler creates a new system handler. The monitor may be nil
// when health probing is disabled.
func NewSystemHandler(registry *orchestrator.Registry, monitor *health.Monitor) *SystemHandler {
	return &SystemHandler{registry: registry, monitor: monitor}
}

// RegisterRoutes registers system routes at the engine root.
func (h *SystemHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", h.Healthz)
	r.GET("/api/v1/providers", h.ListProviders)
}

// Healthz reports overall service health plus per-provider status.
func (h *SystemHandler) Healthz(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if h.monitor != nil {
		body["providers"] = h.monitor.Snapshot()
	}
	c.JSON(http.StatusOK, body)
}

// ListProviders returns the full capability catalog: every registered
// provider with its models and what each model can do.
func (h *SystemHandler) ListProviders(c *gin.Context) {
	descriptors := h.registry.List()
	providers := make([]any, 0, len(descriptors))
	for _, d := range descriptors {
		entry := gin.H{
			"id":         d.ID,
			"name":       d.Name,
			"modality":   d.Modality,
			"models":     d.Models,
			"task_types": d.TaskTypes,
		}
		if h.monitor != nil {
			entry["health"] = h.monitor.StatusOf(d.ID)
		}
		providers = append(providers, entry)
	}
	c.JSON(http.StatusOK, gin.H{"providers": providers})
}
