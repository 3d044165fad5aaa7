package util

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestWriteSSEEvent(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

	StartSSE(c)
	if err := WriteSSEEvent(c, "", map[string]string{"type": "chunk", "content": "{"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := WriteSSEEvent(c, "done", map[string]bool{"ok": true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := rec.Header().Get(echo.HeaderContentType); got != "text/event-stream" {
		t.Fatalf("content type = %q", got)
	}
	want := "data: {\"content\":\"{\",\"type\":\"chunk\"}\n\n" +
		"event: done\ndata: {\"ok\":true}\n\n"
	if got := rec.Body.String(); got != want {
		t.Fatalf("body = %q, want %q", got, want)
	}
}

func TestWriteSSEEvent_MarshalError(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())

	if err := WriteSSEEvent(c, "", make(chan int)); err == nil {
		t.Fatal("expected marshal error")
	}
}
