package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestRequestLoggerLogsCompletion(t *testing.T) {
	buf := captureLogs(t)

	router := gin.New()
	router.Use(RequestID(), RequestLogger())
	router.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/ping?verbose=1", nil))

	out := buf.String()
	for _, want := range []string{`"status":200`, `"method":"GET"`, `"path":"/ping"`, `"query":"verbose=1"`, "request_id"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected log to contain %s, got %s", want, out)
		}
	}
}

func TestRequestLoggerLevelByStatus(t *testing.T) {
	buf := captureLogs(t)

	router := gin.New()
	router.Use(RequestLogger())
	router.GET("/missing", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})
	router.GET("/broken", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/missing", nil))
	if !strings.Contains(buf.String(), `"level":"WARN"`) {
		t.Errorf("Expected WARN for 4xx, got %s", buf.String())
	}

	buf.Reset()
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/broken", nil))
	if !strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Errorf("Expected ERROR for 5xx, got %s", buf.String())
	}
}
