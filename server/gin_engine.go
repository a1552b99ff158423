package server

import (
	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/tforest/config"
	"github.com/wyfcoding/tforest/logging"
	"github.com/wyfcoding/tforest/metrics"
	"github.com/wyfcoding/tforest/middleware"
)

// NewDefaultGinEngine 创建不带默认中间件的 Gin 引擎，中间件顺序由调用方决定。
func NewDefaultGinEngine(middlewares ...gin.HandlerFunc) *gin.Engine {
	engine := gin.New()
	engine.Use(middlewares...)
	return engine
}

// NewRouter 按固定顺序装配中间件并注册预测接口，m 为 nil 时不暴露 /metrics.
func NewRouter(cfg config.ServerConfig, serviceName string, api *API, logger *logging.Logger, m *metrics.Metrics) *gin.Engine {
	if logger == nil {
		logger = logging.Default()
	}
	engine := NewDefaultGinEngine(
		middleware.Recovery(logger.Logger),
		middleware.RequestID(),
		middleware.Tracing(serviceName),
		middleware.Logger(logger.Logger),
		middleware.HTTPMetrics(m, "/metrics", "/healthz"),
		middleware.RateLimit(cfg.RateLimit, cfg.RateBurst),
		middleware.MaxBodyBytes(cfg.MaxBodyBytes),
		middleware.Timeout(cfg.RequestTimeout),
	)

	api.Register(engine)
	if m != nil {
		engine.GET("/metrics", gin.WrapH(m.Handler()))
	}
	return engine
}
