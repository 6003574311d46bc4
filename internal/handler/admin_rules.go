package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"supervisor/internal/rules"
)

type RulesHandler struct {
	Rules *rules.Store
}

func (h *RulesHandler) Register(r *gin.Engine) {
	g := r.Group("/api/admin/rules")
	g.GET("", h.get)
	g.PUT("", h.put)
}

func (h *RulesHandler) get(c *gin.Context) {
	if h.Rules == nil {
		Error(c, http.StatusInternalServerError, "rules unavailable", nil)
		return
	}
	Ok(c, h.Rules.Get(), nil)
}

type putRulesRequest struct {
	MaxRiskPerTrade *decimal.Decimal `json:"max_risk_per_trade"`
	MaxDailyLoss    *decimal.Decimal `json:"max_daily_loss"`
	MaxTradesPerDay *int             `json:"max_trades_per_day"`
	CooldownSeconds *int             `json:"cooldown_seconds"`
	Budget          *decimal.Decimal `json:"budget"`
}

// put merges the provided fields over the current rule set and publishes the
// result as one atomic replacement.
func (h *RulesHandler) put(c *gin.Context) {
	if h.Rules == nil {
		Error(c, http.StatusInternalServerError, "rules unavailable", nil)
		return
	}
	var req putRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	next := h.Rules.Get()
	if req.MaxRiskPerTrade != nil {
		next.MaxRiskPerTrade = *req.MaxRiskPerTrade
	}
	if req.MaxDailyLoss != nil {
		next.MaxDailyLoss = *req.MaxDailyLoss
	}
	if req.MaxTradesPerDay != nil {
		next.MaxTradesPerDay = *req.MaxTradesPerDay
	}
	if req.CooldownSeconds != nil {
		next.CooldownSeconds = *req.CooldownSeconds
	}
	if req.Budget != nil {
		next.Budget = *req.Budget
	}
	err := h.Rules.Replace(c.Request.Context(), next)
	var verr *rules.ValidationError
	if errors.As(err, &verr) {
		Error(c, http.StatusBadRequest, verr.Error(), nil)
		return
	}
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, next, nil)
}
