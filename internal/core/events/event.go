package events

import (
	. "github.com/berfenger/mercury2mqtt/internal/core/domain"
	"github.com/berfenger/mercury2mqtt/pkg/mercury236"
)

// SnapshotToUpdateEvents emits one float update per present quantity.
// Absent quantities produce no event, so a sensor keeps its last published state.
func SnapshotToUpdateEvents(s mercury236.Snapshot) []any {
	var events []any
	for _, r := range s.Readings() {
		events = append(events, FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: r.Quantity.Key(),
			},
			Value:    r.Value,
			Decimals: QuantityDecimals(r.Quantity),
		})
	}
	return events
}

func PassReportToUpdateEvents(r mercury236.PassReport) []any {
	var events []any

	// Failed parameters
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_FAILED_PARAMETERS,
		},
		Value: float64(len(r.Failed())),
	})
	// Pass duration
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_PASS_DURATION,
		},
		Value:    r.Duration.Seconds(),
		Decimals: 3,
	})

	return events
}
