package api

import (
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	TradeHandler   *TradeHandler
	MetricsHandler *MetricsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	v1 := router.Group("/v1")
	registerTradeRoutes(v1, cfg.TradeHandler)
	if cfg.MetricsHandler != nil {
		v1.GET("/metrics", cfg.MetricsHandler.Get)
	}
	return router
}

func registerTradeRoutes(router *gin.RouterGroup, h *TradeHandler) {
	trades := router.Group("/trades")
	{
		trades.POST("", h.Submit)
		trades.GET("", h.List)
		trades.GET("/:id", h.Get)
		trades.GET("/:id/history", h.History)
	}
	router.GET("/positions", h.Positions)
}
