package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	InitWithWriter(zerolog.DebugLevel, &buf)
	t.Cleanup(func() { Init("info") })
	return &buf
}

func TestGinLogger(t *testing.T) {
	buf := captureLogs(t)

	r := gin.New()
	r.Use(GinLogger())
	r.GET("/api/health", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health?x=1", nil))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if entry["path"] != "/api/health" || entry["query"] != "x=1" {
		t.Errorf("unexpected log entry: %v", entry)
	}
	if entry["level"] != "warn" {
		t.Errorf("4xx should log at warn, got %v", entry["level"])
	}
}

func TestGinRecovery(t *testing.T) {
	buf := captureLogs(t)

	r := gin.New()
	r.Use(GinRecovery())
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if w.Body.String() != `{"error":"Internal server error"}` {
		t.Errorf("unexpected body %s", w.Body.String())
	}
	if !strings.Contains(buf.String(), "kaboom") {
		t.Errorf("panic value should be logged, got %s", buf.String())
	}
}

func TestInit_InvalidLevel(t *testing.T) {
	Init("nonsense")
	if Get().GetLevel() != zerolog.InfoLevel {
		t.Errorf("invalid level should fall back to info, got %s", Get().GetLevel())
	}
}

func TestGinLogger_RequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated when absent", "", false},
		{"kept from proxy", "edge-42", true},
		{"oversized replaced", strings.Repeat("x", 65), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLogs(t)

			r := gin.New()
			r.Use(GinLogger())
			r.GET("/api/workspaces", func(c *gin.Context) {
				For(c).Info().Msg("listing")
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/workspaces", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			r.ServeHTTP(w, req)

			id := w.Header().Get(RequestIDHeader)
			if id == "" {
				t.Fatal("response should carry a request id")
			}
			if tt.keep && id != tt.incoming {
				t.Errorf("request id = %q, expected %q", id, tt.incoming)
			}
			if !tt.keep && id == tt.incoming {
				t.Errorf("request id %q should have been replaced", id)
			}

			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			if len(lines) != 2 {
				t.Fatalf("expected handler and request lines, got %d: %s", len(lines), buf.String())
			}
			for _, line := range lines {
				var entry map[string]interface{}
				if err := json.Unmarshal([]byte(line), &entry); err != nil {
					t.Fatalf("log line is not JSON: %v (%s)", err, line)
				}
				if entry["request_id"] != id {
					t.Errorf("line %s: request_id = %v, expected %q", line, entry["request_id"], id)
				}
			}
		})
	}
}

func TestFor_OutsideRequest(t *testing.T) {
	if For(nil) == nil {
		t.Fatal("For(nil) should fall back to the global logger")
	}
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if For(c).GetLevel() != Get().GetLevel() {
		t.Error("context without GinLogger should use the global logger")
	}
}
