package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"supervisor/internal/admission"
	"supervisor/internal/ledger"
)

type TradeHandler struct {
	Controller *admission.Controller
}

func (h *TradeHandler) Register(r *gin.Engine) {
	g := r.Group("/api/trades")
	g.POST("/evaluate", h.evaluate)
	g.POST("/:id/settle", h.settle)
}

// evaluate admits or rejects a trade intent. Rejections are normal outcomes
// and come back as 200 with the decision and its reason.
func (h *TradeHandler) evaluate(c *gin.Context) {
	if h.Controller == nil {
		Error(c, http.StatusInternalServerError, "controller unavailable", nil)
		return
	}
	var intent admission.Intent
	if err := c.ShouldBindJSON(&intent); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	decision, err := h.Controller.Evaluate(c.Request.Context(), intent)
	if errors.Is(err, admission.ErrInvalidIntent) {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, decision, nil)
}

type settleRequest struct {
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
}

func (h *TradeHandler) settle(c *gin.Context) {
	if h.Controller == nil {
		Error(c, http.StatusInternalServerError, "controller unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "invalid trade id", nil)
		return
	}
	var req settleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	trade, err := h.Controller.Settle(c.Request.Context(), id, req.RealizedPnL)
	switch {
	case errors.Is(err, ledger.ErrTradeNotFound):
		Error(c, http.StatusNotFound, err.Error(), nil)
		return
	case errors.Is(err, ledger.ErrAlreadySettled), errors.Is(err, ledger.ErrNotSettleable):
		Error(c, http.StatusConflict, err.Error(), nil)
		return
	case err != nil:
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, trade, nil)
}
