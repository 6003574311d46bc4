package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"supervisor/internal/service"
)

type SwitchesHandler struct {
	Settings *service.SystemSettingsService
}

func (h *SwitchesHandler) Register(r *gin.Engine) {
	g := r.Group("/api/admin/switches")
	g.GET("", h.list)
	g.GET("/:name", h.get)
	g.PUT("/:name", h.put)
}

func (h *SwitchesHandler) list(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings unavailable", nil)
		return
	}
	out := map[string]bool{}
	for key, def := range service.DefaultFeatureSwitches() {
		out[key] = h.Settings.IsEnabled(c.Request.Context(), key, def)
	}
	Ok(c, out, nil)
}

func (h *SwitchesHandler) get(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings unavailable", nil)
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	def, ok := service.DefaultFeatureSwitches()[name]
	if !ok {
		Error(c, http.StatusNotFound, "unknown switch", nil)
		return
	}
	Ok(c, gin.H{"name": name, "enabled": h.Settings.IsEnabled(c.Request.Context(), name, def)}, nil)
}

type putSwitchRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (h *SwitchesHandler) put(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings unavailable", nil)
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	if _, ok := service.DefaultFeatureSwitches()[name]; !ok {
		Error(c, http.StatusNotFound, "unknown switch", nil)
		return
	}
	var req putSwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if err := h.Settings.SetEnabled(c.Request.Context(), name, *req.Enabled); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"name": name, "enabled": *req.Enabled}, nil)
}
