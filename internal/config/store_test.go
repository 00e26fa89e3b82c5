package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStoreLoadMissingFileReturnsDefaults(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "trading.json"))
	cfg := s.Load()
	if cfg.PipSize != DefaultTradingConfig().PipSize {
		t.Fatalf("expected default pip size, got %v", cfg.PipSize)
	}
}

func TestStoreSaveThenLoadRoundTrips(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nested", "trading.json"))
	cfg := DefaultTradingConfig()
	cfg.TradingActive = true
	cfg.StopLossPips = 20

	if err := s.Save(cfg); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	got := s.Load()
	if !got.TradingActive || got.StopLossPips != 20 {
		t.Fatalf("expected persisted overrides, got %+v", got)
	}
}

func TestStoreLoadMalformedFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trading.json")
	s := NewStore(path)
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	cfg := s.Load()
	if cfg.PipSize != DefaultTradingConfig().PipSize {
		t.Fatalf("expected defaults on malformed file, got %+v", cfg)
	}
}
