package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"supervisor/internal/admission"
	"supervisor/internal/analytics"
	"supervisor/internal/ledger"
	"supervisor/internal/models"
	"supervisor/internal/repository"
)

// DashboardHandler serves the read-only reporting surface. Reads are
// snapshot-consistent but not linearizable with in-flight admissions.
type DashboardHandler struct {
	Agg        *analytics.Aggregator
	Controller *admission.Controller
	Ledger     *ledger.Ledger
	Repo       repository.Repository
	TradeLimit int
}

func (h *DashboardHandler) Register(r *gin.Engine) {
	r.GET("/api/stats", h.stats)
	r.GET("/api/equity", h.equity)
	r.GET("/api/drawdown", h.drawdown)
	r.GET("/api/strategy-performance", h.strategyPerformance)
	r.GET("/api/symbol-performance", h.symbolPerformance)
	r.GET("/api/trades", h.trades)
	r.GET("/api/equity-history", h.equityHistory)
	r.PUT("/api/marks", h.putMarks)
}

func (h *DashboardHandler) stats(c *gin.Context) {
	if h.Agg == nil {
		Error(c, http.StatusInternalServerError, "analytics unavailable", nil)
		return
	}
	var meta map[string]any
	if h.Controller != nil {
		snap := h.Controller.Snapshot()
		meta = map[string]any{
			"trades_today":        snap.TradesToday,
			"realized_loss_today": snap.RealizedLossToday,
			"deployed_capital":    snap.DeployedCapital,
			"open_reservations":   snap.OpenReservations,
		}
	}
	Ok(c, h.Agg.Stats(), meta)
}

func (h *DashboardHandler) equity(c *gin.Context) {
	if h.Agg == nil {
		Error(c, http.StatusInternalServerError, "analytics unavailable", nil)
		return
	}
	Ok(c, h.Agg.EquityCurve(), nil)
}

func (h *DashboardHandler) drawdown(c *gin.Context) {
	if h.Agg == nil {
		Error(c, http.StatusInternalServerError, "analytics unavailable", nil)
		return
	}
	Ok(c, h.Agg.DrawdownSeries(), nil)
}

func (h *DashboardHandler) strategyPerformance(c *gin.Context) {
	if h.Agg == nil {
		Error(c, http.StatusInternalServerError, "analytics unavailable", nil)
		return
	}
	Ok(c, h.Agg.ByStrategy(), nil)
}

func (h *DashboardHandler) symbolPerformance(c *gin.Context) {
	if h.Agg == nil {
		Error(c, http.StatusInternalServerError, "analytics unavailable", nil)
		return
	}
	Ok(c, h.Agg.BySymbol(), nil)
}

// trades returns ledger history, newest first. symbol/strategy/status query
// params narrow the result; unfiltered requests take the fast path.
func (h *DashboardHandler) trades(c *gin.Context) {
	if h.Ledger == nil {
		Error(c, http.StatusInternalServerError, "ledger unavailable", nil)
		return
	}
	fallback := h.TradeLimit
	if fallback <= 0 {
		fallback = 50
	}
	limit := intQuery(c, "limit", fallback)
	filter := ledger.Filter{
		Symbol:     strings.TrimSpace(c.Query("symbol")),
		StrategyID: strings.TrimSpace(c.Query("strategy")),
		Status:     strings.TrimSpace(c.Query("status")),
	}
	meta := map[string]any{"limit": limit, "total": h.Ledger.Len()}
	if filter == (ledger.Filter{}) {
		Ok(c, h.Ledger.Recent(limit), meta)
		return
	}
	var items []models.Trade
	for t := range h.Ledger.Query(filter) {
		items = append(items, t)
	}
	// Query yields append order; history reads newest first.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	if len(items) > limit {
		items = items[:limit]
	}
	Ok(c, items, meta)
}

func (h *DashboardHandler) equityHistory(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var since time.Time
	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid since timestamp", nil)
			return
		}
		since = parsed
	}
	limit := intQuery(c, "limit", 500)
	items, err := h.Repo.ListEquitySnapshots(c.Request.Context(), since, limit)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"limit": limit})
}

type putMarksRequest struct {
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
}

// putMarks takes a mark-to-market snapshot from the pricing collaborator.
func (h *DashboardHandler) putMarks(c *gin.Context) {
	if h.Agg == nil {
		Error(c, http.StatusInternalServerError, "analytics unavailable", nil)
		return
	}
	var req putMarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	h.Agg.SetUnrealized(req.UnrealizedPnL, time.Now().UTC())
	Ok(c, h.Agg.Stats(), nil)
}
