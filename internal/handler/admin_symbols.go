package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"supervisor/internal/registry"
)

type SymbolHandler struct {
	Registry *registry.Registry
}

func (h *SymbolHandler) Register(r *gin.Engine) {
	g := r.Group("/api/admin/symbols")
	g.GET("", h.list)
	g.POST("", h.add)
	g.PATCH("/:symbol", h.setEnabled)
	g.DELETE("/:symbol", h.remove)
}

func (h *SymbolHandler) list(c *gin.Context) {
	if h.Registry == nil {
		Error(c, http.StatusInternalServerError, "registry unavailable", nil)
		return
	}
	Ok(c, h.Registry.List(), nil)
}

type addSymbolRequest struct {
	Symbol string `json:"symbol" binding:"required"`
}

// add registers a new symbol. Posting an existing symbol re-enables it
// rather than failing, so the admin UI can treat the action as idempotent.
func (h *SymbolHandler) add(c *gin.Context) {
	if h.Registry == nil {
		Error(c, http.StatusInternalServerError, "registry unavailable", nil)
		return
	}
	var req addSymbolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	item, err := h.Registry.Add(c.Request.Context(), req.Symbol)
	if errors.Is(err, registry.ErrDuplicateSymbol) {
		if err := h.Registry.SetEnabled(c.Request.Context(), req.Symbol, true); err != nil {
			Error(c, http.StatusBadGateway, err.Error(), nil)
			return
		}
		Ok(c, gin.H{"symbol": registry.Normalize(req.Symbol), "enabled": true}, nil)
		return
	}
	if errors.Is(err, registry.ErrEmptyTicker) {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

type setEnabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (h *SymbolHandler) setEnabled(c *gin.Context) {
	if h.Registry == nil {
		Error(c, http.StatusInternalServerError, "registry unavailable", nil)
		return
	}
	symbol := strings.TrimSpace(c.Param("symbol"))
	if symbol == "" {
		Error(c, http.StatusBadRequest, "invalid symbol", nil)
		return
	}
	var req setEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	err := h.Registry.SetEnabled(c.Request.Context(), symbol, *req.Enabled)
	if errors.Is(err, registry.ErrSymbolNotFound) {
		Error(c, http.StatusNotFound, err.Error(), nil)
		return
	}
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"symbol": registry.Normalize(symbol), "enabled": *req.Enabled}, nil)
}

func (h *SymbolHandler) remove(c *gin.Context) {
	if h.Registry == nil {
		Error(c, http.StatusInternalServerError, "registry unavailable", nil)
		return
	}
	symbol := strings.TrimSpace(c.Param("symbol"))
	if symbol == "" {
		Error(c, http.StatusBadRequest, "invalid symbol", nil)
		return
	}
	err := h.Registry.Remove(c.Request.Context(), symbol)
	if errors.Is(err, registry.ErrSymbolNotFound) {
		Error(c, http.StatusNotFound, err.Error(), nil)
		return
	}
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"symbol": registry.Normalize(symbol)}, nil)
}
