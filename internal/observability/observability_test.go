package observability

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger("warn", "json", &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = NewLogger("loud", "json", nil)
	assert.Error(t, err)
}

func TestObserveStockOp(t *testing.T) {
	before := testutil.ToFloat64(stockOperations.WithLabelValues("decrease", "insufficient_stock"))
	ObserveStockOp("decrease", "insufficient_stock", time.Millisecond)
	after := testutil.ToFloat64(stockOperations.WithLabelValues("decrease", "insufficient_stock"))
	assert.Equal(t, before+1, after)
}

func TestRequestLoggerRecordsRenderedStatus(t *testing.T) {
	logger, hook := test.NewNullLogger()
	app := fiber.New()
	app.Use(RequestLogger(logger))
	app.Get("/boom", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusConflict, "dup") })

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, fiber.StatusConflict, hook.LastEntry().Data["status"])

	count := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/boom", "409"))
	assert.Equal(t, float64(1), count)
}

func TestInitTracingDisabled(t *testing.T) {
	logger, _ := test.NewNullLogger()
	shutdown, err := InitTracing(context.Background(), logger, "", "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.NotNil(t, Tracer())
}
