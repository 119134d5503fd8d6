package observability

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/eservice/internal/config"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "debug"}, config.AppConfig{Name: "svc", Env: "test"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	fallback, err := NewLogger(config.LoggerConfig{Level: "chatty"}, config.AppConfig{})
	require.NoError(t, err)
	assert.False(t, fallback.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, fallback.Core().Enabled(zapcore.InfoLevel))
}

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("GET", "/api/v1/tickets", 200, 15*time.Millisecond)
	m.RecordRequest("GET", "/api/v1/tickets", 200, 5*time.Millisecond)
	m.RecordError("GET", "/api/v1/tickets/:id", "NOT_FOUND")
	m.ObserveCacheOp("get", "hit")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/v1/tickets", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("GET", "/api/v1/tickets/:id", "NOT_FOUND")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheOperations.WithLabelValues("get", "hit")))

	m.RequestStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.active))
	m.RequestFinished()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.active))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() {
		nilMetrics.RecordRequest("GET", "/", 200, time.Millisecond)
		nilMetrics.RecordError("GET", "/", "X")
		nilMetrics.ObserveCacheOp("get", "miss")
		nilMetrics.RequestStarted()
		nilMetrics.RequestFinished()
	})
}

func TestRequestLoggerRecordsRoutePattern(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	m := NewMetrics()
	app := fiber.New()
	app.Use(RequestLogger(zap.New(core), m))
	app.Get("/items/:id", func(c *fiber.Ctx) error { return c.SendString(c.Params("id")) })

	resp, err := app.Test(httptest.NewRequest("GET", "/items/42", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/items/:id", "200")))
	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "/items/42", entries[0].ContextMap()["path"])
	assert.EqualValues(t, 200, entries[0].ContextMap()["status"])
}

func TestRequestLoggerLabelsUnknownRoutes(t *testing.T) {
	m := NewMetrics()
	app := fiber.New()
	app.Use(RequestLogger(zap.NewNop(), m))

	resp, err := app.Test(httptest.NewRequest("GET", "/nope/123", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")))
}

func TestSetupTracingWithoutEndpoint(t *testing.T) {
	shutdown := SetupTracing(context.Background(), config.TelemetryConfig{}, config.AppConfig{Name: "svc"}, zap.NewNop())
	assert.NoError(t, shutdown(context.Background()))
}

func TestTracingMiddlewarePassesThrough(t *testing.T) {
	app := fiber.New()
	app.Use(TracingMiddleware("test"))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendStatus(204) })

	req := httptest.NewRequest("GET", "/ok", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)
}
