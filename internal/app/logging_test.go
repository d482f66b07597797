package app

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LogLevelDebug},
		{"DEBUG", LogLevelDebug},
		{"info", LogLevelInfo},
		{"warn", LogLevelWarn},
		{"warning", LogLevelWarn},
		{"error", LogLevelError},
		{"", LogLevelInfo},
		{"nonsense", LogLevelInfo},
	}
	for _, tc := range cases {
		if got := ParseLogLevel(tc.in); got != tc.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LoggerConfig{Level: LogLevelWarn, Output: &buf, Prefix: "test"})

	log.Debug("debug line")
	log.Info("info line")
	log.Warn("warn line")
	log.Error("error line")

	out := buf.String()
	if strings.Contains(out, "debug line") || strings.Contains(out, "info line") {
		t.Errorf("suppressed levels leaked: %q", out)
	}
	if !strings.Contains(out, "[WARN] test: warn line") {
		t.Errorf("warn line missing: %q", out)
	}
	if !strings.Contains(out, "[ERROR] test: error line") {
		t.Errorf("error line missing: %q", out)
	}
}

func TestLogger_Formatting(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LoggerConfig{Level: LogLevelDebug, Output: &buf, Prefix: "coroview"})

	log.Info("stop seq=%d", 4)

	line := buf.String()
	if !strings.Contains(line, "[INFO] coroview: stop seq=4") {
		t.Errorf("formatted line = %q", line)
	}
	if !strings.HasSuffix(line, "\n") {
		t.Error("log line should end with a newline")
	}
}

func TestLogger_FieldsSorted(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LoggerConfig{Level: LogLevelDebug, Output: &buf})

	log.WithField("zeta", 1).WithField("alpha", 2).Info("msg")

	line := buf.String()
	if !strings.Contains(line, "{alpha=2, zeta=1}") {
		t.Errorf("fields not sorted: %q", line)
	}
}

func TestLogger_WithComponent(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LoggerConfig{Level: LogLevelDebug, Output: &buf})

	log.WithComponent("session").Info("attached")

	if !strings.Contains(buf.String(), "component=session") {
		t.Errorf("component field missing: %q", buf.String())
	}
}

func TestLogger_WithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLogger(LoggerConfig{Level: LogLevelDebug, Output: &buf})
	_ = parent.WithField("child", true)

	parent.Info("parent line")

	if strings.Contains(buf.String(), "child=") {
		t.Errorf("parent logger picked up child field: %q", buf.String())
	}
}

func TestNullLogger_Discards(t *testing.T) {
	// Must not panic with no output writer.
	NullLogger.Debug("x")
	NullLogger.Error("x")
}

func TestOpenLogOutput(t *testing.T) {
	out, closer, err := openLogOutput("")
	if err != nil {
		t.Fatalf("openLogOutput(\"\"): %v", err)
	}
	if out != io.Discard || closer != nil {
		t.Error("empty path should discard output with no closer")
	}

	path := filepath.Join(t.TempDir(), "coroview.log")
	out, closer, err = openLogOutput(path)
	if err != nil {
		t.Fatalf("openLogOutput(%q): %v", path, err)
	}
	if _, err := out.Write([]byte("line\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "line\n" {
		t.Errorf("file content = %q", data)
	}

	if _, _, err := openLogOutput(filepath.Join(t.TempDir(), "missing", "dir", "f.log")); err == nil {
		t.Error("unwritable path should error")
	}
}
