package factory

import (
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestNewModuleLogger(t *testing.T) {
	logger := NewModuleLogger("contributions-controller")
	if logger == nil {
		t.Fatal("expected logger")
	}
	if logger.Data["module"] != "contributions-controller" {
		t.Fatalf("unexpected module field: %v", logger.Data["module"])
	}
}

func TestLoggerWithContextAddsRequestID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-123")
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	logger := LoggerWithContext(NewModuleLogger("contributions-controller"), ctx)
	if logger == nil {
		t.Fatal("expected logger with context")
	}
}
