package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/berfenger/mercury2mqtt/internal/config"
	"github.com/berfenger/mercury2mqtt/internal/core/port"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
)

type Server struct {
	port     uint
	httpLog  bool
	meter    port.MeterQuery
	gatherer prometheus.Gatherer
}

func NewServer(cfg config.Config, meter port.MeterQuery, gatherer prometheus.Gatherer) *http.Server {
	NewServer := &Server{
		port:     cfg.Port,
		meter:    meter,
		gatherer: gatherer,
		httpLog:  cfg.HttpLog,
	}

	// Declare Server config
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", NewServer.port),
		Handler:      NewServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}
