package telemetry

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })
	return &buf
}

func TestInfoWritesJSONLine(t *testing.T) {
	buf := capture(t)

	Info("calls.batch_claimed", map[string]any{"count": 3})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["level"] != "info" || entry["msg"] != "calls.batch_claimed" {
		t.Fatalf("entry = %v", entry)
	}
	if entry["count"] != float64(3) {
		t.Fatalf("count = %v", entry["count"])
	}
	if entry["ts"] == nil {
		t.Fatalf("timestamp missing: %v", entry)
	}
}

func TestUnserializableFieldsDropToErrorLine(t *testing.T) {
	buf := capture(t)

	Error("bad.fields", map[string]any{"ch": make(chan int)})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("fallback line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "bad.fields" {
		t.Fatalf("message lost in fallback: %v", entry)
	}
}
