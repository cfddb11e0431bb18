package logger

import (
	"log/slog"
	"reflect"
	"testing"

	coreconfig "github.com/m3rciful/adaptermap/core/config"
)

func TestResolveSettingsDefaults(t *testing.T) {
	s := resolveSettings(nil)
	if s.level != slog.LevelInfo || s.format != formatJSON {
		t.Fatalf("defaults = %+v", s)
	}
	if s.sampleNum != 1 || s.sampleDen != 50 {
		t.Fatalf("sample = %d/%d", s.sampleNum, s.sampleDen)
	}
	if !reflect.DeepEqual(s.keyOrder, defaultKeyOrder) {
		t.Fatalf("key order = %v", s.keyOrder)
	}
}

func TestResolveSettingsFromConfig(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Logging.Level = "WARNING"
	cfg.Logging.Profile = "dev"
	cfg.Logging.KeysOrder = "event, ts ,,level"
	cfg.Logging.DebugSample = "0/0"
	cfg.Logging.Dir = " logs "

	s := resolveSettings(cfg)
	if s.level != slog.LevelWarn {
		t.Fatalf("level = %v", s.level)
	}
	if s.format != formatKV {
		t.Fatalf("dev profile should default to kv, got %s", s.format)
	}
	if want := []string{"event", "ts", "level"}; !reflect.DeepEqual(s.keyOrder, want) {
		t.Fatalf("key order = %v, want %v", s.keyOrder, want)
	}
	if s.sampleNum != 0 || s.sampleDen != 0 {
		t.Fatalf("0/0 should disable sampling, got %d/%d", s.sampleNum, s.sampleDen)
	}
	if s.fileDir != "logs" || s.fileName != "" {
		t.Fatalf("file = %q/%q", s.fileDir, s.fileName)
	}

	cfg.Logging.Format = "json"
	cfg.Logging.DebugSample = "-1/5"
	s = resolveSettings(cfg)
	if s.format != formatJSON {
		t.Fatalf("explicit json overridden: %s", s.format)
	}
	if s.sampleNum != 1 || s.sampleDen != 50 {
		t.Fatalf("invalid ratio should keep default sample, got %d/%d", s.sampleNum, s.sampleDen)
	}
}
