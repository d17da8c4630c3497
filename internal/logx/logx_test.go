package logx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/portal/internal/logx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logx.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, logx.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, logx.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, logx.ParseLevel(""))
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := logx.NewWithWriter(logx.Config{Service: "portal", Version: "v1", Env: "prod", Level: "warn"}, &buf)

	logger.Info("dropped")
	logger.Warn("kept", "screen", "abc")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "portal", entry["service"])
	assert.Equal(t, "abc", entry["screen"])
}

func TestContextLogger(t *testing.T) {
	assert.Equal(t, slog.Default(), logx.FromContext(context.Background()))

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := logx.WithContext(context.Background(), logger)
	assert.Same(t, logger, logx.FromContext(ctx))
}

func TestNewRequestIDSorts(t *testing.T) {
	a := logx.NewRequestID()
	b := logx.NewRequestID()
	assert.Len(t, a, 26)
	assert.Less(t, a, b)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	router := gin.New()
	router.Use(logx.Middleware(logx.NewWithWriter(logx.Config{Service: "portal"}, &buf)))
	router.GET("/ping", func(c *gin.Context) {
		logx.FromContext(c.Request.Context()).Info("handled")
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(logx.RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get(logx.RequestIDHeader))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	for _, line := range lines {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		assert.Equal(t, "req-42", entry["req_id"])
	}

	var access map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &access))
	assert.Equal(t, "http_request", access["msg"])
	assert.Equal(t, float64(http.StatusNoContent), access["status"])
}
