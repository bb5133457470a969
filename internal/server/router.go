// Package server wires the HTTP surface of the push delivery service.
package server

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"push-delivery-plane/internal/server/handler"
	"push-delivery-plane/internal/server/middleware"
)

// NewRouter builds the gin engine with all routes registered. tp and mp may
// be nil when telemetry is disabled.
func NewRouter(push *handler.PushHandler, health *handler.HealthHandler, tp trace.TracerProvider, mp metric.MeterProvider) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if tp != nil && mp != nil {
		r.Use(middleware.Telemetry(tp, mp))
	}

	r.GET("/healthz", health.Check)

	v1 := r.Group("/v1")
	{
		v1.POST("/push/send", push.Send)
		v1.GET("/push/log", push.History)
	}

	return r
}
