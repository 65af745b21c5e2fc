package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kpicast.log")
	log, closer, err := New(Config{Level: "warn", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.Info().Msg("hidden")
	log.Warn().Str("indicator", "경쟁우위 지표").Msg("skipped")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if strings.Contains(out, "hidden") {
		t.Error("info message written at warn level")
	}
	if !strings.Contains(out, `"indicator":"경쟁우위 지표"`) {
		t.Errorf("missing structured field in %q", out)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	if _, _, err := New(Config{Level: "loud"}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}
