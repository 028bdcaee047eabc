package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"syscall"

	adactor "github.com/berfenger/mercury2mqtt/internal/adapter/actor"
	"github.com/berfenger/mercury2mqtt/internal/config"
	"github.com/berfenger/mercury2mqtt/internal/core/domain"
	"github.com/berfenger/mercury2mqtt/pkg/mercury236"

	"go.uber.org/zap"
)

// runOnce opens the line, runs a single pass and prints the measurements.
// It returns the process exit code.
func runOnce(cfg *config.Config, opts runOptions, out io.Writer) int {
	return runPass(cfg, openTransport(cfg, opts), out)
}

func runPass(cfg *config.Config, open adactor.TransportOpener, out io.Writer) int {

	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	transport, err := open()
	if err != nil {
		fmt.Fprintf(out, "Error: %s\n", err)
		return 1
	}
	if closer, ok := transport.(io.Closer); ok {
		defer closer.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Meter.PassTimeout())
	defer cancel()

	reader := mercury236.NewReader(transport, nil, cfg.Meter.ReaderConfig(), logger)
	report := reader.ReadAll(ctx)
	snapshot := reader.Snapshot()

	printMeasurements(out, snapshot)
	for _, f := range report.Failed() {
		logger.Warn("parameter not read", zap.String("parameter", f.ParameterId), zap.Stringer("outcome", f.Outcome))
	}

	// ID, Admin and Frequency answer OK without decoding anything
	if snapshot.Len() == 0 {
		fmt.Fprintf(out, "Error: no parameter decoded (%d of %d exchanges failed)\n", len(report.Failed()), len(report.Results))
		return 1
	}
	return 0
}

func printMeasurements(out io.Writer, s mercury236.Snapshot) {
	v := func(q mercury236.Quantity) string {
		value, ok := s.Get(q)
		if !ok {
			return "-"
		}
		return strconv.FormatFloat(value, 'f', int(domain.QuantityDecimals(q)), 64)
	}

	fmt.Fprintln(out, "\nCurrent Measurements:")
	fmt.Fprintf(out, "Active Energy: %s Wh\n", v(mercury236.EnergyActive))
	fmt.Fprintf(out, "Reactive Energy: %s VARh\n", v(mercury236.EnergyReactive))
	fmt.Fprintf(out, "Active Power: %s W\n", v(mercury236.PowerActive))
	fmt.Fprintf(out, "Reactive Power: %s VAR\n", v(mercury236.PowerReactive))
	fmt.Fprintf(out, "Apparent Power: %s VA\n", v(mercury236.PowerApparent))
	fmt.Fprintf(out, "Voltage L1: %s V, L2: %s V, L3: %s V\n",
		v(mercury236.VoltageL1), v(mercury236.VoltageL2), v(mercury236.VoltageL3))
	fmt.Fprintf(out, "Current L1: %s A, L2: %s A, L3: %s A\n",
		v(mercury236.CurrentL1), v(mercury236.CurrentL2), v(mercury236.CurrentL3))
	fmt.Fprintf(out, "Frequency: %s Hz\n", v(mercury236.Frequency))
	fmt.Fprintf(out, "Power Factor: %s\n", v(mercury236.PowerFactor))
}
