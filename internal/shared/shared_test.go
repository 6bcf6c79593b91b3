package shared

import (
	"bytes"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

func TestLoggers(t *testing.T) {
	t.Run("child logger carries fields", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := WithLogger(NewLogger(buf), "component", "sweeper")
		logger.Info("swept")

		out := buf.String()
		if !strings.Contains(out, "swept") || !strings.Contains(out, "component=sweeper") {
			t.Errorf("unexpected log line %q", out)
		}
	})

	t.Run("level filters debug", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewLogger(buf)
		logger.Debug("hidden")
		if buf.Len() != 0 {
			t.Errorf("expected debug to be filtered, got %q", buf.String())
		}

		SetLogLevel(logger, log.DebugLevel)
		logger.Debug("shown")
		if !strings.Contains(buf.String(), "shown") {
			t.Errorf("expected debug line, got %q", buf.String())
		}
	})

	t.Run("file logger creates directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "tui.log")
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		logger.Info("hello")

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read log: %v", err)
		}
		if !strings.Contains(string(data), "hello") {
			t.Errorf("expected log line in file, got %q", data)
		}
	})
}

func TestIdentifiers(t *testing.T) {
	t.Run("GenerateID", func(t *testing.T) {
		a, b := GenerateID(), GenerateID()
		if a == b {
			t.Error("expected unique ids")
		}
		if _, err := uuid.Parse(a); err != nil {
			t.Errorf("expected a uuid, got %q", a)
		}
	})

	t.Run("RandomToken", func(t *testing.T) {
		tc := []struct {
			name string
			n    int
		}{
			{name: "state length", n: 32},
			{name: "short", n: 4},
			{name: "empty", n: 0},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				token, err := RandomToken(tt.n)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				raw, err := base64.RawURLEncoding.DecodeString(token)
				if err != nil {
					t.Fatalf("expected url-safe base64, got %q", token)
				}
				if len(raw) != tt.n {
					t.Errorf("expected %d bytes, got %d", tt.n, len(raw))
				}
			})
		}
	})
}

func TestOpenBrowser(t *testing.T) {
	original := getRuntime
	t.Cleanup(func() { getRuntime = original })

	t.Run("rejects non-http targets", func(t *testing.T) {
		for _, target := range []string{"", "file:///etc/passwd", "spotify:track:1", "/relative", "http://"} {
			if err := OpenBrowser(target); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("%q: expected ErrInvalidArgument, got %v", target, err)
			}
		}
	})

	t.Run("unsupported platform", func(t *testing.T) {
		getRuntime = func() string { return "plan9" }
		err := OpenBrowser("http://127.0.0.1:3000")
		if err == nil || !strings.Contains(err.Error(), "unsupported platform") {
			t.Errorf("expected unsupported platform error, got %v", err)
		}
	})

	t.Run("platform commands", func(t *testing.T) {
		tc := []struct {
			goos string
			bin  string
		}{
			{goos: "darwin", bin: "open"},
			{goos: "linux", bin: "xdg-open"},
			{goos: "windows", bin: "rundll32"},
		}

		for _, tt := range tc {
			cmd, err := browserCommand(tt.goos, "https://open.spotify.com")
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", tt.goos, err)
			}
			if cmd.Args[0] != tt.bin || cmd.Args[len(cmd.Args)-1] != "https://open.spotify.com" {
				t.Errorf("%s: unexpected args %v", tt.goos, cmd.Args)
			}
		}
	})
}
