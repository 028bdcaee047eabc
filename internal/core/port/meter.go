package port

import (
	"context"

	"github.com/berfenger/mercury2mqtt/internal/core/domain"
	"github.com/berfenger/mercury2mqtt/pkg/mercury236"
)

// MeterQuery is the read side of the bridge used by the HTTP API and the metrics collector.
type MeterQuery interface {
	// Snapshot returns the latest values and the report of the last pass, nil before the first one.
	Snapshot(ctx context.Context) (mercury236.Snapshot, *mercury236.PassReport, error)
	Info(ctx context.Context) (domain.MeterInfo, error)
	Health(ctx context.Context) (domain.ActorHealthResponse, error)
}
