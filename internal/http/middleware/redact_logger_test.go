package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRedactor_Scrub(t *testing.T) {
	rd := newRedactor(RedactOptions{})
	cases := map[string]string{
		"":                             "",
		"plain text":                   "plain text",
		"mail a.b+tag@example.com now": "mail [REDACTED:email] now",
		"call 212-555-1212 today":      "call [REDACTED:phone] today",
		"id 123e4567-e89b-12d3-a456-426614174000":   "id [REDACTED:id]",
		"id=123e4567-e89b-12d3-a456-426614174000&x": "id=[REDACTED:id]&x",
	}
	for in, want := range cases {
		if got := rd.scrub(in); got != want {
			t.Errorf("scrub(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestRedactor_Headers(t *testing.T) {
	rd := newRedactor(RedactOptions{MaskHeaders: []string{"  ", " x-api-key "}})
	got := rd.headers(http.Header{
		"Authorization": {"Bearer secret"},
		"Cookie":        {"sid=1"},
		"Set-Cookie":    {"sid=2"},
		"X-Api-Key":     {"gsk_live"},
		"Accept":        {"application/json", "text/plain"},
		"X-Contact":     {"bob@example.org"},
	})

	for _, k := range []string{"Authorization", "Cookie", "Set-Cookie", "X-Api-Key"} {
		if got[k] != "[REDACTED]" {
			t.Fatalf("%s = %q, want masked", k, got[k])
		}
	}
	if got["Accept"] != "application/json, text/plain" {
		t.Fatalf("Accept = %q", got["Accept"])
	}
	if got["X-Contact"] != "[REDACTED:email]" {
		t.Fatalf("X-Contact = %q", got["X-Contact"])
	}
	if _, blank := rd.maskHeaders[""]; blank {
		t.Fatalf("blank mask entry registered")
	}
}

func TestLogger_RedactsDeleteRoute(t *testing.T) {
	buf := captureLogs(t)
	r := chain()
	r.DELETE("/summary/history/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodDelete,
		"/summary/history/12?trace=123e4567-e89b-12d3-a456-426614174000", nil)
	req.Header.Set("Authorization", "Bearer topsecret")
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := logEntries(t, buf, "request")
	if len(entries) != 1 {
		t.Fatalf("expected one access line:\n%s", buf.String())
	}
	if entries[0]["path"] != "/summary/history/:id" {
		t.Fatalf("path should be the route template, got %v", entries[0]["path"])
	}
	if entries[0]["query"] != "trace=[REDACTED:id]" {
		t.Fatalf("query = %v", entries[0]["query"])
	}
	if strings.Contains(buf.String(), "topsecret") {
		t.Fatalf("authorization leaked: %s", buf.String())
	}
}
