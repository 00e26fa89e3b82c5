// Package api exposes the engine's HTTP surface: the dynamic trading
// config, open positions, manual close, and signal history/summary
// routes, plus a WebSocket endpoint that mirrors the broadcast hub.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/w000nab0/aurafx/internal/api/handlers"
	"github.com/w000nab0/aurafx/internal/api/middleware"
	"github.com/w000nab0/aurafx/internal/blackout"
	"github.com/w000nab0/aurafx/internal/broadcast"
	"github.com/w000nab0/aurafx/internal/config"
	"github.com/w000nab0/aurafx/internal/indicator"
	"github.com/w000nab0/aurafx/internal/livetrading"
	"github.com/w000nab0/aurafx/internal/position"
	"github.com/w000nab0/aurafx/internal/signal"
	"github.com/w000nab0/aurafx/internal/stream"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

// DefaultServerConfig returns default configuration.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            ":8080",
		ShutdownTimeout: 10 * time.Second,
		CORSOrigins:     []string{"*"},
	}
}

// Server is the API server.
type Server struct {
	cfg  *ServerConfig
	echo *echo.Echo
	hub  *broadcast.Hub
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// NewServer wires every route against the pipeline's shared components.
func NewServer(
	cfg *ServerConfig,
	positions *position.Manager,
	indicators *indicator.Engine,
	signals *signal.Engine,
	calendar *blackout.Calendar,
	configStore *config.Store,
	controller *livetrading.Controller,
	hub *broadcast.Hub,
	persister stream.Persister,
) *Server {
	if cfg == nil {
		cfg = DefaultServerConfig()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echoMiddleware.Recover())
	e.Use(middleware.Logger())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))
	e.Use(echoMiddleware.RequestID())
	e.Use(echoMiddleware.Gzip())

	s := &Server{cfg: cfg, echo: e, hub: hub}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	tradingHandler := handlers.NewTradingHandler(positions, indicators, signals, calendar, configStore)
	positionHandler := handlers.NewPositionHandler(positions, indicators, signals, controller, hub, persister)
	signalHandler := handlers.NewSignalHandler(signals)

	v1 := e.Group("/api/trading")
	v1.GET("/config", tradingHandler.GetConfig)
	v1.PUT("/config", tradingHandler.UpdateConfig)
	v1.GET("/positions", positionHandler.GetPositions)
	v1.POST("/positions/:symbol/close", positionHandler.ClosePosition)
	v1.GET("/signals/history", signalHandler.GetHistory)
	v1.GET("/signals/summary", signalHandler.GetSummary)

	e.GET("/ws", s.handleWebSocket)

	return s
}

// handleWebSocket upgrades the connection and relays every broadcast hub
// message to the client until it disconnects.
func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	id := c.Request().RemoteAddr
	ch := s.hub.Subscribe(id)
	defer s.hub.Unsubscribe(id)

	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				conn.Close()
				return
			}
		}
	}()

	for msg := range ch {
		data, err := json.Marshal(msg)
		if err != nil {
			log.Warn().Err(err).Msg("failed to encode broadcast message for websocket client")
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return nil
		}
	}
	return nil
}

// Start starts the server.
func (s *Server) Start() error {
	log.Info().Str("port", s.cfg.Port).Msg("starting API server")
	return s.echo.Start(s.cfg.Port)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	log.Info().Msg("shutting down API server")
	return s.echo.Shutdown(ctx)
}
