package runtime

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "booking-service", "warn", "json")
	logger.Info("dropped")
	logger.Warn("kept", "tenant_id", "t-1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if entry["service"] != "booking-service" || entry["tenant_id"] != "t-1" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNewLoggerTextAndBadLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "auth-service", "loud", "text")
	logger.Debug("hidden")
	logger.Info("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "msg=shown") {
		t.Fatalf("unexpected output %q", out)
	}
}
