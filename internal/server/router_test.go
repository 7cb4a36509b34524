package server

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

func TestRouterForwardsRequestsToFetchHandler(t *testing.T) {
	app, recorder := newTestApp(t)

	req := httptest.NewRequest("GET", "http://bakgomong.local/static/js/app.js", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204 status, got %d", resp.StatusCode)
	}

	if recorder.lastPath != "/static/js/app.js" {
		t.Fatalf("expected fetch handler to see path, got %s", recorder.lastPath)
	}

	if reqID := resp.Header.Get("X-Request-ID"); reqID == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
}

func TestRouterSkipsDiagnosticsPaths(t *testing.T) {
	app, recorder := newTestApp(t)
	app.Get("/-/status", func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "http://bakgomong.local/-/status", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 status, got %d", resp.StatusCode)
	}
	if recorder.calls != 0 {
		t.Fatalf("诊断路径不应进入 fetch handler")
	}
}

func TestNewAppRequiresDependencies(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	if _, err := NewApp(AppOptions{Fetch: recordingHandler(), ListenPort: 5000}); err == nil {
		t.Fatalf("缺少 logger 应报错")
	}
	if _, err := NewApp(AppOptions{Logger: logger, ListenPort: 5000}); err == nil {
		t.Fatalf("缺少 fetch handler 应报错")
	}
	if _, err := NewApp(AppOptions{Logger: logger, Fetch: recordingHandler(), ListenPort: 0}); err == nil {
		t.Fatalf("非法端口应报错")
	}
}

type fetchRecorder struct {
	calls    int
	lastPath string
}

func (f *fetchRecorder) Handle(c fiber.Ctx) error {
	f.calls++
	f.lastPath = string(c.Request().URI().Path())
	return c.SendStatus(fiber.StatusNoContent)
}

func recordingHandler() FetchHandler {
	return &fetchRecorder{}
}

func newTestApp(t *testing.T) (*fiber.App, *fetchRecorder) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	recorder := &fetchRecorder{}
	app, err := NewApp(AppOptions{
		Logger:     logger,
		Fetch:      recorder,
		ListenPort: 5000,
	})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	return app, recorder
}
