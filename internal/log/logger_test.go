package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestComponentIsLogged(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, slog.LevelDebug, ComponentApp).WithComponent(ComponentDashboard)
	l.Info("computed", FieldRows, 3)
	out := buf.String()
	if !strings.Contains(out, "component=dashboard") || !strings.Contains(out, "rows=3") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestContextRoundTrip(t *testing.T) {
	l := NewWriter(&bytes.Buffer{}, slog.LevelInfo, ComponentHTTP)
	if got := FromContext(WithLogger(context.Background(), l)); got != l {
		t.Fatal("expected the stored logger")
	}
	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Fatalf("expected fallback logger, got %q", got.Component())
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(NewWriter(&buf, slog.LevelInfo, ComponentHTTP))
	r := httptest.NewRequest("GET", "/api/dashboard", nil)
	sl.LogHTTPEnd(context.Background(), r, 503, 12, "10.0.0.1")
	sl.LogError(context.Background(), "save failed", errors.New("disk full"), ComponentStorage, OpSave, nil)
	out := buf.String()
	for _, want := range []string{"level=ERROR", "status_code=503", "error=\"disk full\"", "operation=save"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}
