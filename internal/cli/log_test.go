package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name  string
		level log.Level
		emit  func(*log.Logger)
		want  bool
	}{
		{"info at info", LogInfo, func(l *log.Logger) { l.Info("resolved nodes", "count", 12) }, true},
		{"debug at info", LogInfo, func(l *log.Logger) { l.Debug("lane conflict", "node", "t1") }, false},
		{"debug at debug", LogDebug, func(l *log.Logger) { l.Debug("lane conflict", "node", "t1") }, true},
		{"warn at info", LogInfo, func(l *log.Logger) { l.Warn("redis unavailable") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.emit(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.want {
				t.Errorf("wrote output = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, LogInfo).Info("resolved nodes", "file", "order.bpmn", "count", 12)

	out := buf.String()
	for _, want := range []string{"resolved nodes", "file=order.bpmn", "count=12"} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %q missing %q", out, want)
		}
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, LogInfo)

	c.Logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug written at info level: %q", buf.String())
	}
	c.SetLogLevel(LogDebug)
	c.Logger.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("debug not written after SetLogLevel(LogDebug)")
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, LogInfo))
	prog.done("Resolved 12 nodes")

	out := buf.String()
	if !strings.Contains(out, "Resolved 12 nodes (") || !strings.Contains(out, "s)") {
		t.Errorf("progress output %q lacks message with duration", out)
	}
}

func TestLoggerContext(t *testing.T) {
	var buf bytes.Buffer
	custom := newLogger(&buf, LogInfo)

	tests := []struct {
		name string
		ctx  context.Context
		want *log.Logger
	}{
		{"attached", withLogger(context.Background(), custom), custom},
		{"nil parent", withLogger(nil, custom), custom},
		{"missing", context.Background(), log.Default()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := loggerFromContext(tt.ctx); got != tt.want {
				t.Errorf("loggerFromContext() = %p, want %p", got, tt.want)
			}
		})
	}
}
