package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/w000nab0/aurafx/internal/blackout"
)

// TradingConfig is the operator-editable surface: the fields a dashboard
// PUT can change without a process restart.
type TradingConfig struct {
	PipSize            float64                     `json:"pip_size"`
	LotSize            float64                     `json:"lot_size"`
	StopLossPips       float64                     `json:"stop_loss_pips"`
	TakeProfitPips     float64                     `json:"take_profit_pips"`
	FeeRate            float64                     `json:"fee_rate"`
	TradingActive      bool                        `json:"trading_active"`
	TrendSMAPeriod     int                         `json:"trend_sma_period"`
	TrendThresholdPips float64                     `json:"trend_threshold_pips"`
	ATRThresholdPips   float64                     `json:"atr_threshold_pips"`
	BlackoutWindows    []blackout.SerializedWindow `json:"blackout_windows"`
	SignalCooldownSec  float64                     `json:"signal_cooldown_sec"`
	BBPeriod           int                         `json:"bb_period"`
	BBSigmas           []float64                   `json:"bb_sigmas"`
	SMAPeriods         []int                       `json:"sma_periods"`
	RSIPeriods         []int                       `json:"rsi_periods"`
	RCIPeriods         []int                       `json:"rci_periods"`
	ATRPeriods         []int                       `json:"atr_periods"`
	TrendWindow        int                         `json:"trend_window"`
	MaxRows            int                         `json:"max_rows"`
	HistoryLimit       int                         `json:"history_limit"`
}

// DefaultTradingConfig mirrors the venue's defaults.
func DefaultTradingConfig() TradingConfig {
	cal := blackout.NewCalendar()
	return TradingConfig{
		PipSize:            0.01,
		LotSize:            10000,
		StopLossPips:       15,
		TakeProfitPips:     25,
		FeeRate:            0.0,
		TradingActive:      false,
		TrendSMAPeriod:     21,
		TrendThresholdPips: 1.5,
		ATRThresholdPips:   2.0,
		BlackoutWindows:    cal.Serialize(),
		SignalCooldownSec:  30,
		BBPeriod:           20,
		BBSigmas:           []float64{2.0},
		SMAPeriods:         []int{21, 50},
		RSIPeriods:         []int{14},
		RCIPeriods:         []int{9, 26},
		ATRPeriods:         []int{14},
		TrendWindow:        21,
		MaxRows:            500,
		HistoryLimit:       200,
	}
}

// Store is a JSON-backed persistence layer for TradingConfig, grounded on
// the venue's tmp-file-then-rename atomic write pattern: a crash mid-save
// can never leave a partially written config on disk.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore builds a Store writing to path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted TradingConfig, falling back to defaults when
// the file is absent, unreadable or malformed. Read and parse errors are
// logged, not returned; a missing file is the expected state on first run
// and is not logged.
func (s *Store) Load() TradingConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", s.path).Msg("failed to read trading config")
		}
		return DefaultTradingConfig()
	}

	cfg := DefaultTradingConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("failed to parse trading config, using defaults")
		return DefaultTradingConfig()
	}
	return cfg
}

// Save persists cfg atomically: write to a ".tmp" sibling, then rename
// over the target, so a reader never observes a half-written file.
func (s *Store) Save(cfg TradingConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return err
	}
	log.Info().Str("path", s.path).Msg("trading config persisted")
	return nil
}
