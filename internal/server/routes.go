package server

import (
	"context"
	"net/http"
	"time"

	"github.com/berfenger/mercury2mqtt/internal/core/domain"
	"github.com/berfenger/mercury2mqtt/pkg/mercury236"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type readingJSON struct {
	Quantity string  `json:"quantity"`
	Value    float64 `json:"value"`
	Unit     string  `json:"unit,omitempty"`
}

type failureJSON struct {
	Parameter string `json:"parameter"`
	Outcome   string `json:"outcome"`
	Error     string `json:"error,omitempty"`
}

type passJSON struct {
	Id         string        `json:"id"`
	Started    time.Time     `json:"started"`
	DurationMs int64         `json:"duration_ms"`
	Parameters int           `json:"parameters"`
	Failed     []failureJSON `json:"failed"`
}

type meterJSON struct {
	Meter    domain.MeterInfo `json:"meter"`
	Readings []readingJSON    `json:"readings"`
	LastPass *passJSON        `json:"last_pass,omitempty"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/api/meter", s.MeterHandler)
	if s.gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()
	response, err := s.meter.Health(ctx)
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) MeterHandler(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	info, err := s.meter.Info(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	snapshot, report, err := s.meter.Snapshot(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}

	return c.JSON(http.StatusOK, meterJSON{
		Meter:    info,
		Readings: readingsJSON(snapshot),
		LastPass: reportJSON(report),
	})
}

func readingsJSON(s mercury236.Snapshot) []readingJSON {
	readings := []readingJSON{}
	for _, r := range s.Readings() {
		readings = append(readings, readingJSON{
			Quantity: r.Quantity.Key(),
			Value:    r.Value,
			Unit:     string(r.Unit),
		})
	}
	return readings
}

func reportJSON(r *mercury236.PassReport) *passJSON {
	if r == nil {
		return nil
	}
	pass := &passJSON{
		Id:         r.Id.String(),
		Started:    r.Started,
		DurationMs: r.Duration.Milliseconds(),
		Parameters: len(r.Results),
		Failed:     []failureJSON{},
	}
	for _, f := range r.Failed() {
		failure := failureJSON{
			Parameter: f.ParameterId,
			Outcome:   f.Outcome.String(),
		}
		if f.Err != nil {
			failure.Error = f.Err.Error()
		}
		pass.Failed = append(pass.Failed, failure)
	}
	return pass
}
