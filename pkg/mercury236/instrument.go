package mercury236

import (
	"time"

	"go.uber.org/zap"
)

type Instrument struct {
	RecordTime    func(fnName string, elapsed time.Duration)
	RecordOutcome func(parameterId string, outcome Outcome)
}

func RecordTimer(name string, instrument []Instrument) func() {
	if instrument == nil {
		return func() {}
	}

	start := time.Now()
	return func() {
		duration := time.Since(start)
		for i := range instrument {
			if instrument[i].RecordTime != nil {
				instrument[i].RecordTime(name, duration)
			}
		}
	}
}

func recordOutcome(parameterId string, outcome Outcome, instrument []Instrument) {
	for i := range instrument {
		if instrument[i].RecordOutcome != nil {
			instrument[i].RecordOutcome(parameterId, outcome)
		}
	}
}

func TraceLoggerInstrumentation(logger *zap.Logger) *Instrument {
	if logger == nil || !logger.Core().Enabled(zap.DebugLevel) {
		return nil
	}
	return &Instrument{
		RecordTime: func(fnName string, elapsed time.Duration) {
			logger.Debug("mercury exchange", zap.String("fn", fnName), zap.Int64("millis", elapsed.Milliseconds()))
		},
	}
}
