package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info level", log.InfoLevel, func(l *log.Logger) { l.Info("imported") }, true},
		{"debug at info level", log.InfoLevel, func(l *log.Logger) { l.Debug("stage done") }, false},
		{"debug at debug level", log.DebugLevel, func(l *log.Logger) { l.Debug("stage done") }, true},
		{"warn at info level", log.InfoLevel, func(l *log.Logger) { l.Warn("cache unavailable") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("got log output = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestNewLoggerKeyValues(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, log.InfoLevel).Info("imported controller", "controller", "Main", "receivers", 4)

	out := buf.String()
	for _, want := range []string{"imported controller", "controller=", "Main", "receivers=4"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.InfoLevel))
	time.Sleep(5 * time.Millisecond)
	prog.done("imported", "controllers", 3)

	out := buf.String()
	for _, want := range []string{"imported", "controllers=3", "elapsed="} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestProgressStage(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.DebugLevel))
	prog.stage("pipeline")
	prog.stage("save")

	out := buf.String()
	if strings.Count(out, "stage done") != 2 {
		t.Errorf("want two stage lines, got %q", out)
	}
	if !strings.Contains(out, "stage=pipeline") || !strings.Contains(out, "stage=save") {
		t.Errorf("stage names missing from %q", out)
	}

	buf.Reset()
	prog = newProgress(newLogger(&buf, log.InfoLevel))
	prog.stage("render")
	if buf.Len() != 0 {
		t.Error("stages should only log at debug level")
	}
}

func TestLoggerContext(t *testing.T) {
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("loggerFromContext should fall back to log.Default()")
	}

	var buf bytes.Buffer
	custom := newLogger(&buf, log.InfoLevel).WithPrefix("render")
	ctx := withLogger(context.Background(), custom)
	if loggerFromContext(ctx) != custom {
		t.Fatal("loggerFromContext should return the attached logger")
	}
	loggerFromContext(ctx).Info("rendered")
	if !strings.Contains(buf.String(), "render") {
		t.Errorf("prefix missing from %q", buf.String())
	}
}
