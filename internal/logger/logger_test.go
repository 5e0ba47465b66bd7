package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level    string
		expected []string
		excluded []string
	}{
		{"error", []string{"ERROR"}, []string{"WARN", "INFO", "DEBUG"}},
		{"warn", []string{"ERROR", "WARN"}, []string{"INFO", "DEBUG"}},
		{"info", []string{"ERROR", "WARN", "INFO"}, []string{"DEBUG"}},
		{"debug", []string{"ERROR", "WARN", "INFO", "DEBUG"}, nil},
		{"bogus", []string{"ERROR", "WARN", "INFO"}, []string{"DEBUG"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logFile := filepath.Join(t.TempDir(), "fillconv.log")
			err := Setup(Options{
				Level: tt.level,
				File:  FileConfig{Path: logFile, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1},
			})
			if err != nil {
				t.Fatalf("failed to set up logger: %v", err)
			}

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")
			Sync()

			content, err := os.ReadFile(logFile)
			if err != nil {
				t.Fatalf("failed to read log file: %v", err)
			}
			for _, exp := range tt.expected {
				if !strings.Contains(string(content), exp) {
					t.Errorf("expected %s in log output", exp)
				}
			}
			for _, exc := range tt.excluded {
				if strings.Contains(string(content), exc) {
					t.Errorf("unexpected %s in log output for level %s", exc, tt.level)
				}
			}
		})
	}
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := Setup(Options{Level: "info", Console: &buf}); err != nil {
		t.Fatalf("failed to set up logger: %v", err)
	}

	Info("Running step", zap.String("step", "derive height"), zap.String("dst", "barn_height.png"))
	Debug("hidden")

	out := buf.String()
	for _, want := range []string{"Running step", "derive height", "barn_height.png"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in console output, got %s", want, out)
		}
	}
	if strings.Contains(out, "hidden") {
		t.Error("debug line should be filtered at info level")
	}
}

func TestNamed(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "named.log")
	if err := Setup(Options{Level: "info", File: FileConfig{Path: logFile, MaxSizeMB: 1}}); err != nil {
		t.Fatalf("failed to set up logger: %v", err)
	}
	Named("magick").Info("version ok")
	Sync()

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "magick") || !strings.Contains(string(content), "version ok") {
		t.Errorf("expected named entry, got %s", content)
	}
	if !strings.Contains(string(content), "logger_test.go") {
		t.Errorf("expected caller to point at the test, got %s", content)
	}
}

func TestDefaultFileConfig(t *testing.T) {
	cfg := DefaultFileConfig("/tmp/fillconv.log")
	want := FileConfig{Path: "/tmp/fillconv.log", MaxSizeMB: 10, MaxBackups: 5, MaxAgeDays: 30, Compress: true}
	if cfg != want {
		t.Errorf("expected %+v, got %+v", want, cfg)
	}
}

func TestValidLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		if !ValidLevel(lvl) {
			t.Errorf("expected %q to be valid", lvl)
		}
	}
	for _, lvl := range []string{"", "trace", "INFO"} {
		if ValidLevel(lvl) {
			t.Errorf("expected %q to be invalid", lvl)
		}
	}
}
