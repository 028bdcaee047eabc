package actor

import (
	"testing"

	"github.com/berfenger/mercury2mqtt/internal/core/domain"
	"github.com/berfenger/mercury2mqtt/pkg/mercury236"

	"github.com/stretchr/testify/assert"
)

func TestDiscoverySensors(t *testing.T) {

	assert := assert.New(t)

	info := domain.MeterInfo{Model: "Mercury 236", Port: "/dev/ttyUSB0"}
	sensors := DiscoverySensors("mercury", info)

	// bridge state + one per quantity + pass diagnostics
	assert.Len(sensors, 1+len(mercury236.Quantities())+2)

	bridge := domain.BridgeDevice("mercury")
	assert.Equal(domain.SENSOR_ID_BRIDGE_STATE, sensors[0].Id)
	assert.Equal(bridge.Id, sensors[0].Device.Id)

	meter := sensors[1].Device
	assert.Equal(bridge.Id, meter.ViaDevice)
	assert.Equal("Incotex", meter.Manufacturer)
	for _, s := range sensors[2:] {
		assert.Equal(meter.Id, s.Device.Id)
		assert.Empty(s.Device.Model, "only the first meter sensor carries the full device")
	}
}
