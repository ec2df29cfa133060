package api

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func gzipped(t *testing.T, s string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return &buf
}

func runGzip(t *testing.T, req *http.Request, limit int64) (*httptest.ResponseRecorder, string, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	var body string
	err := GzipRequestMiddleware(limit)(func(c echo.Context) error {
		b, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return err
		}
		body = string(b)
		return c.NoContent(http.StatusNoContent)
	})(c)
	return rec, body, err
}

func TestGzipRequestMiddlewareInflates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/boards", gzipped(t, `{"title":"Roadmap"}`))
	req.Header.Set(echo.HeaderContentEncoding, "br, GZIP")

	_, body, err := runGzip(t, req, 1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != `{"title":"Roadmap"}` {
		t.Fatalf("unexpected body %q", body)
	}
	if req.Header.Get(echo.HeaderContentEncoding) != "" {
		t.Fatalf("content-encoding should be removed")
	}
}

func TestGzipRequestMiddlewareCapsBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/boards", gzipped(t, strings.Repeat("a", 100)))
	req.Header.Set(echo.HeaderContentEncoding, "gzip")

	_, body, err := runGzip(t, req, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(body) != 10 {
		t.Fatalf("expected body capped at 10 bytes, got %d", len(body))
	}
}

func TestGzipRequestMiddlewareRejectsInvalid(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/boards", strings.NewReader("not gzip"))
	req.Header.Set(echo.HeaderContentEncoding, "gzip")

	_, _, err := runGzip(t, req, 1024)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 http error, got %v", err)
	}
}

func TestGzipRequestMiddlewarePassesPlainBodies(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/boards", strings.NewReader("plain"))
	_, body, err := runGzip(t, req, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "plain" {
		t.Fatalf("plain bodies must pass untouched, got %q", body)
	}
}
