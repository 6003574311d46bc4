package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"supervisor/internal/admission"
	"supervisor/internal/ledger"
	"supervisor/internal/registry"
	"supervisor/internal/rules"
)

func newTestEngine(t *testing.T) (*gin.Engine, *admission.Controller) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	ruleStore, err := rules.NewStore(ctx, nil, nil, rules.RuleSet{
		MaxRiskPerTrade: decimal.NewFromInt(1000),
		MaxDailyLoss:    decimal.NewFromInt(5000),
		MaxTradesPerDay: 10,
		Budget:          decimal.NewFromInt(100000),
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	reg := registry.New(nil, nil)
	if _, err := reg.Add(ctx, "AAPL"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	controller := admission.NewController(ruleStore, reg, ledger.New(nil, nil), nil, nil, nil)

	engine := gin.New()
	(&TradeHandler{Controller: controller}).Register(engine)
	return engine, controller
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v body=%s", err, w.Body.String())
	}
	return w, resp
}

func TestEvaluateEndpoint_Accept(t *testing.T) {
	engine, _ := newTestEngine(t)
	w, resp := doJSON(t, engine, http.MethodPost, "/api/trades/evaluate", gin.H{
		"symbol": "aapl", "side": "buy", "quantity": "2", "price": "100", "strategy_id": "momentum",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	data := resp["data"].(map[string]any)
	if data["accepted"] != true {
		t.Fatalf("data=%v want accepted", data)
	}
}

func TestEvaluateEndpoint_RejectionIsOK(t *testing.T) {
	engine, _ := newTestEngine(t)
	w, resp := doJSON(t, engine, http.MethodPost, "/api/trades/evaluate", gin.H{
		"symbol": "NVDA", "side": "buy", "quantity": "1", "price": "10", "strategy_id": "momentum",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d want 200, rejection is a normal outcome", w.Code)
	}
	data := resp["data"].(map[string]any)
	if data["accepted"] != false || data["reason"] != admission.ReasonSymbolDisabled {
		t.Fatalf("data=%v want reject(SYMBOL_DISABLED)", data)
	}
}

func TestEvaluateEndpoint_InvalidIntent(t *testing.T) {
	engine, _ := newTestEngine(t)
	w, _ := doJSON(t, engine, http.MethodPost, "/api/trades/evaluate", gin.H{
		"symbol": "AAPL", "side": "hold", "quantity": "1", "price": "10",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", w.Code)
	}
}

func TestSettleEndpoint(t *testing.T) {
	engine, controller := newTestEngine(t)
	dec, err := controller.Evaluate(context.Background(), admission.Intent{
		Symbol: "AAPL", Side: "buy",
		Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(10),
		StrategyID: "momentum",
	})
	if err != nil || !dec.Accepted {
		t.Fatalf("Evaluate err=%v dec=%+v", err, dec)
	}

	w, resp := doJSON(t, engine, http.MethodPost, "/api/trades/"+dec.Trade.ID+"/settle", gin.H{"realized_pnl": "-25"})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	data := resp["data"].(map[string]any)
	if data["status"] != "filled" {
		t.Fatalf("data=%v want filled", data)
	}

	w, _ = doJSON(t, engine, http.MethodPost, "/api/trades/"+dec.Trade.ID+"/settle", gin.H{"realized_pnl": "0"})
	if w.Code != http.StatusConflict {
		t.Fatalf("double settle status=%d want 409", w.Code)
	}

	w, _ = doJSON(t, engine, http.MethodPost, "/api/trades/missing/settle", gin.H{"realized_pnl": "0"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown settle status=%d want 404", w.Code)
	}
}
