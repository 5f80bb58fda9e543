package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestHealthAndIndex(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fixed := time.Date(2025, 6, 1, 8, 0, 0, 0, time.FixedZone("X", 3600))

	h := New(&fakeSummarySvc{}, ServiceInfo{Name: "AI Summary Service", Version: "1.0.0", DocsPath: "/swagger/index.html"})
	h.now = func() time.Time { return fixed }

	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/", h.Index)

	w := do(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health status=%d", w.Code)
	}
	var hr HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &hr); err != nil {
		t.Fatalf("json: %v", err)
	}
	if hr.Status != "UP" || hr.Service != "AI Summary Service" || hr.Version != "1.0.0" {
		t.Fatalf("unexpected health: %+v", hr)
	}
	if !hr.Timestamp.Equal(fixed) || hr.Timestamp.Location() != time.UTC {
		t.Fatalf("timestamp should be the current time in UTC, got %v", hr.Timestamp)
	}

	w = do(r, http.MethodGet, "/", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("index status=%d", w.Code)
	}
	m := decodeMap(t, w)
	if m["message"] != "AI Summary Service API" || m["version"] != "1.0.0" || m["docs"] != "/swagger/index.html" {
		t.Fatalf("unexpected index: %#v", m)
	}
}

func TestIndex_OmitsDocsWhenUnset(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := New(&fakeSummarySvc{}, ServiceInfo{Name: "AI Summary Service", Version: "1.0.0"})

	r := gin.New()
	r.GET("/", h.Index)

	w := do(r, http.MethodGet, "/", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("index status=%d", w.Code)
	}
	if _, ok := decodeMap(t, w)["docs"]; ok {
		t.Fatalf("docs must be omitted without a docs path: %s", w.Body.String())
	}
}
