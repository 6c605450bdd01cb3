package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"tradeflow/internal/model"
	"tradeflow/internal/obs"
	"tradeflow/pkg/exception"
)

// TradeService is what the handlers need from the service layer.
type TradeService interface {
	Submit(ctx context.Context, t *model.Trade) (*model.Trade, error)
	GetTrade(ctx context.Context, id string) (*model.Trade, error)
	ListTrades(ctx context.Context) ([]model.Trade, error)
	TradeHistory(ctx context.Context, id string) ([]model.StatusChange, error)
	ListPositions(ctx context.Context) ([]model.Position, error)
}

type submitTradeRequest struct {
	ID           string              `json:"id"`
	TradeDate    string              `json:"tradeDate"`
	Instrument   string              `json:"instrument" binding:"required"`
	Side         string              `json:"side"`
	Quantity     decimal.NullDecimal `json:"quantity"`
	Price        decimal.Decimal     `json:"price"`
	Currency     string              `json:"currency"`
	Counterparty string              `json:"counterparty"`
}

func (r submitTradeRequest) trade() (*model.Trade, error) {
	t := &model.Trade{
		ID:           r.ID,
		Instrument:   r.Instrument,
		Side:         r.Side,
		Quantity:     r.Quantity,
		Price:        r.Price,
		Currency:     r.Currency,
		Counterparty: r.Counterparty,
	}
	if r.TradeDate != "" {
		d, err := time.Parse(time.DateOnly, r.TradeDate)
		if err != nil {
			return nil, err
		}
		t.TradeDate = d
	}
	return t, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

type TradeHandler struct {
	svc TradeService
}

func NewTradeHandler(svc TradeService) *TradeHandler {
	return &TradeHandler{svc: svc}
}

func (h *TradeHandler) Submit(c *gin.Context) {
	var req submitTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	t, err := req.trade()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "tradeDate must be YYYY-MM-DD"})
		return
	}

	saved, err := h.svc.Submit(c.Request.Context(), t)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (h *TradeHandler) List(c *gin.Context) {
	trades, err := h.svc.ListTrades(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trades)
}

func (h *TradeHandler) Get(c *gin.Context) {
	t, err := h.svc.GetTrade(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TradeHandler) History(c *gin.Context) {
	history, err := h.svc.TradeHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *TradeHandler) Positions(c *gin.Context) {
	positions, err := h.svc.ListPositions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, positions)
}

// MetricsHandler exposes the throughput monitor.
type MetricsHandler struct {
	monitor *obs.Monitor
}

func NewMetricsHandler(monitor *obs.Monitor) *MetricsHandler {
	return &MetricsHandler{monitor: monitor}
}

func (h *MetricsHandler) Get(c *gin.Context) {
	resp := gin.H{"live": h.monitor.Collect()}
	if last, ok := h.monitor.Last(); ok {
		resp["lastReport"] = last
	}
	c.JSON(http.StatusOK, resp)
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, exception.ErrTradeNotFound), errors.Is(err, exception.ErrPositionNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, exception.ErrTradeExists):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, exception.ErrQueueClosed):
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "request cancelled"})
	default:
		logs.Errorf("api: %s %s, err: %+v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
