package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/labstack/echo/v4"
)

func runSanitize(t *testing.T, target string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := Sanitize()(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return rec
}

func assertBlocked(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body["error"] == nil {
		t.Error("expected error field in 400 response")
	}
}

func TestSanitize_AllowsNormalRequests(t *testing.T) {
	paths := []string{
		"/api/theatres",
		"/api/surgeries?status=scheduled&priority=emergency",
		"/api/surgeries/worklist?date=2026-03-10",
		"/api/dialysis/machines/123",
		"/api/surgeries?patient_id=" + url.QueryEscape("8a6c1f3e-9b1d-4d5e-8f00-1c2d3e4f5a6b"),
	}
	for _, p := range paths {
		rec := runSanitize(t, p, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("path %s: expected 200, got %d", p, rec.Code)
		}
	}
}

func TestSanitize_BlocksPathTraversal(t *testing.T) {
	rec := runSanitize(t, "/api/theatres/../../etc/passwd", nil)
	assertBlocked(t, rec)
}

func TestSanitize_BlocksEncodedTraversal(t *testing.T) {
	rec := runSanitize(t, "/api/theatres/%2e%2e/secret", nil)
	assertBlocked(t, rec)
}

func TestSanitize_BlocksNullByteInQuery(t *testing.T) {
	rec := runSanitize(t, "/api/surgeries?status=scheduled%00", nil)
	assertBlocked(t, rec)
}

func TestSanitize_BlocksScriptInjection(t *testing.T) {
	rec := runSanitize(t, "/api/surgeries?surgeon="+url.QueryEscape("<script>alert(1)</script>"), nil)
	assertBlocked(t, rec)
}

func TestSanitize_BlocksHeaderInjection(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/theatres", nil)
	req.Header["X-Custom"] = []string{"value\r\nInjected: header"}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := Sanitize()(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertBlocked(t, rec)
}

func TestSanitize_BlocksOversizedHeader(t *testing.T) {
	big := make([]byte, maxHeaderValueSize+1)
	for i := range big {
		big[i] = 'a'
	}
	rec := runSanitize(t, "/api/theatres", map[string]string{"X-Big": string(big)})
	assertBlocked(t, rec)
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Theatre 1", "Theatre 1"},
		{"  padded  ", "padded"},
		{"nul\x00byte", "nulbyte"},
		{"line1\nline2", "line1\nline2"},
		{"ctrl\x07char", "ctrlchar"},
	}
	for _, tt := range tests {
		if got := SanitizeString(tt.in); got != tt.want {
			t.Errorf("SanitizeString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
