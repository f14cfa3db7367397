package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "info", "json")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("building reported", Building("1000066"), Status(StatusSuccess))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if record[KeyBuilding] != "1000066" {
		t.Errorf("building = %v, want 1000066", record[KeyBuilding])
	}
	if record[KeyStatus] != StatusSuccess {
		t.Errorf("status = %v, want %s", record[KeyStatus], StatusSuccess)
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "warn", "text")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn record should be written")
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "loud", "text"); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New(&bytes.Buffer{}, "info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if err != nil {
				t.Fatalf("ParseLevel(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestAttrs(t *testing.T) {
	tests := []struct {
		attr    slog.Attr
		wantKey string
		wantVal string
	}{
		{Operation("report.run"), KeyOperation, "report.run"},
		{Building("1005092"), KeyBuilding, "1005092"},
		{Endpoint("RoomInfo"), KeyEndpoint, "RoomInfo"},
		{Provider("nominatim"), KeyProvider, "nominatim"},
		{Status(StatusSkipped), KeyStatus, StatusSkipped},
	}
	for _, tt := range tests {
		if tt.attr.Key != tt.wantKey {
			t.Errorf("key = %q, want %q", tt.attr.Key, tt.wantKey)
		}
		if tt.attr.Value.String() != tt.wantVal {
			t.Errorf("value = %q, want %q", tt.attr.Value.String(), tt.wantVal)
		}
	}
}

func TestWithHelpers(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	WithRunID(WithOperation(base, "rooms"), "abc").Info("done")

	out := buf.String()
	if !strings.Contains(out, "operation=rooms") {
		t.Errorf("missing operation attribute in %q", out)
	}
	if !strings.Contains(out, "run_id=abc") {
		t.Errorf("missing run_id attribute in %q", out)
	}
}

func TestErr(t *testing.T) {
	attr := Err(errors.New("boom"))
	if attr.Key != KeyError || attr.Value.String() != "boom" {
		t.Errorf("Err = %v, want error=boom", attr)
	}

	// nil errors produce an empty group that slog omits
	if attr := Err(nil); attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty", attr.Key)
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		token    string
		expected string
	}{
		{"", "<empty>"},
		{"abc123", "[token:6 chars]"},
		{"a_very_long_token_string", "[token:24 chars]"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := SanitizeToken(tt.token); got != tt.expected {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.token, got, tt.expected)
			}
		})
	}
}
