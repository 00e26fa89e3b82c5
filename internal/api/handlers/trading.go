package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/w000nab0/aurafx/internal/blackout"
	"github.com/w000nab0/aurafx/internal/config"
	"github.com/w000nab0/aurafx/internal/indicator"
	"github.com/w000nab0/aurafx/internal/position"
	"github.com/w000nab0/aurafx/internal/signal"
)

// TradingHandler serves the dynamic trading configuration surface: read
// and partially update the operator-editable parameters at runtime.
type TradingHandler struct {
	positions  *position.Manager
	indicators *indicator.Engine
	signals    *signal.Engine
	calendar   *blackout.Calendar
	store      *config.Store
}

// NewTradingHandler builds a TradingHandler.
func NewTradingHandler(positions *position.Manager, indicators *indicator.Engine, signals *signal.Engine, calendar *blackout.Calendar, store *config.Store) *TradingHandler {
	return &TradingHandler{positions: positions, indicators: indicators, signals: signals, calendar: calendar, store: store}
}

// configView is the wire shape of the trading config.
type configView struct {
	PipSize            float64                    `json:"pip_size"`
	LotSize            float64                    `json:"lot_size"`
	StopLossPips       float64                    `json:"stop_loss_pips"`
	TakeProfitPips     float64                    `json:"take_profit_pips"`
	FeeRate            float64                    `json:"fee_rate"`
	TradingActive      bool                       `json:"trading_active"`
	TrendSMAPeriod     int                        `json:"trend_sma_period"`
	TrendThresholdPips float64                    `json:"trend_threshold_pips"`
	ATRThresholdPips   float64                    `json:"atr_threshold_pips"`
	BlackoutWindows    []blackout.SerializedWindow `json:"blackout_windows"`
	BlackoutActive     bool                       `json:"blackout_active"`
}

func (h *TradingHandler) currentView() configView {
	cfg := h.positions.Config()
	return configView{
		PipSize:            cfg.PipSize,
		LotSize:            cfg.LotSize,
		StopLossPips:       cfg.StopLossPips,
		TakeProfitPips:     cfg.TakeProfitPips,
		FeeRate:            cfg.FeeRate,
		TradingActive:      cfg.TradingActive,
		TrendSMAPeriod:     h.indicators.TrendSMAPeriod(),
		TrendThresholdPips: h.indicators.TrendThresholdPips(),
		ATRThresholdPips:   h.signals.ATRThresholdPips(),
		BlackoutWindows:    h.calendar.Serialize(),
		BlackoutActive:     h.calendar.IsBlackout(time.Time{}),
	}
}

// GetConfig returns the live trading configuration.
func (h *TradingHandler) GetConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, h.currentView())
}

// configUpdate is the partial-update request body; nil pointers leave the
// corresponding field unchanged.
type configUpdate struct {
	PipSize            *float64                    `json:"pip_size"`
	LotSize            *float64                    `json:"lot_size"`
	StopLossPips       *float64                    `json:"stop_loss_pips"`
	TakeProfitPips     *float64                    `json:"take_profit_pips"`
	FeeRate            *float64                    `json:"fee_rate"`
	TradingActive      *bool                       `json:"trading_active"`
	TrendSMAPeriod     *int                        `json:"trend_sma_period"`
	TrendThresholdPips *float64                    `json:"trend_threshold_pips"`
	ATRThresholdPips   *float64                    `json:"atr_threshold_pips"`
	BlackoutWindows    []blackout.SerializedWindow `json:"blackout_windows"`
}

// UpdateConfig applies a partial update and persists the result.
func (h *TradingHandler) UpdateConfig(c echo.Context) error {
	var req configUpdate
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	h.positions.UpdateConfig(func(cfg *position.Config) {
		if req.PipSize != nil {
			cfg.PipSize = *req.PipSize
		}
		if req.LotSize != nil {
			cfg.LotSize = *req.LotSize
		}
		if req.StopLossPips != nil {
			cfg.StopLossPips = *req.StopLossPips
		}
		if req.TakeProfitPips != nil {
			cfg.TakeProfitPips = *req.TakeProfitPips
		}
		if req.FeeRate != nil {
			cfg.FeeRate = *req.FeeRate
		}
		if req.TradingActive != nil {
			cfg.TradingActive = *req.TradingActive
		}
	})
	if req.TrendSMAPeriod != nil {
		h.indicators.SetTrendSMAPeriod(*req.TrendSMAPeriod)
	}
	if req.TrendThresholdPips != nil {
		h.indicators.SetTrendThresholdPips(*req.TrendThresholdPips)
	}
	if req.ATRThresholdPips != nil {
		h.signals.SetATRThresholdPips(*req.ATRThresholdPips)
	}
	if req.BlackoutWindows != nil {
		windows, err := blackout.ParseWindows(req.BlackoutWindows)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		if err := h.calendar.Set(windows); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
	}

	view := h.currentView()
	if h.store != nil {
		persisted := h.store.Load()
		persisted.PipSize = view.PipSize
		persisted.LotSize = view.LotSize
		persisted.StopLossPips = view.StopLossPips
		persisted.TakeProfitPips = view.TakeProfitPips
		persisted.FeeRate = view.FeeRate
		persisted.TradingActive = view.TradingActive
		persisted.TrendSMAPeriod = view.TrendSMAPeriod
		persisted.TrendThresholdPips = view.TrendThresholdPips
		persisted.ATRThresholdPips = view.ATRThresholdPips
		persisted.BlackoutWindows = view.BlackoutWindows
		if err := h.store.Save(persisted); err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to persist config"})
		}
	}
	return c.JSON(http.StatusOK, view)
}
