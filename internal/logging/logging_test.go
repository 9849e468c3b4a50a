package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	log := Init(Config{File: path, Level: "debug"})
	defer Shutdown()

	log.Debug("hello", "session", "cactus-foo")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "cactus-foo") {
		t.Errorf("log file missing entry: %q", string(data))
	}
}

func TestInitLevelFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	log := Init(Config{File: path, Level: "warn"})
	defer Shutdown()

	log.Info("quiet")
	log.Warn("loud")

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "quiet") {
		t.Error("info entry should be filtered at warn level")
	}
	if !strings.Contains(string(data), "loud") {
		t.Error("warn entry missing")
	}
}

func TestInitWithoutFileDiscards(t *testing.T) {
	log := Init(Config{})
	defer Shutdown()
	log.Info("nowhere") // must not panic
}

func TestLoggerBeforeInit(t *testing.T) {
	Shutdown()
	Logger().Info("pre-init") // must not panic
}
