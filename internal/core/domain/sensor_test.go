package domain

import (
	"testing"

	"github.com/berfenger/mercury2mqtt/pkg/mercury236"

	"github.com/stretchr/testify/assert"
)

func TestMeterSensors(t *testing.T) {

	assert := assert.New(t)

	device := MeterDevice(MeterInfo{Model: "Mercury 236", Port: "/dev/ttyUSB0"})
	sensors := MeterSensors(device)

	assert.Len(sensors, len(mercury236.Quantities())+2)

	ids := map[string]bool{}
	uniqueIds := map[string]bool{}
	for i, s := range sensors {
		assert.False(ids[s.Id], "duplicated id %s", s.Id)
		assert.False(uniqueIds[s.UniqueId], "duplicated unique id %s", s.UniqueId)
		ids[s.Id] = true
		uniqueIds[s.UniqueId] = true

		assert.Equal(device.Id, s.Device.Id)
		if i == 0 {
			assert.Equal(device, s.Device)
		} else {
			assert.Equal(IdDevice(device), s.Device)
		}
	}
	assert.True(ids[SENSOR_ID_FAILED_PARAMETERS])
	assert.True(ids[SENSOR_ID_PASS_DURATION])
}

func TestQuantitySensor(t *testing.T) {

	assert := assert.New(t)

	device := MeterDevice(MeterInfo{Model: "Mercury 236", Port: "/dev/ttyUSB0"})

	energy := QuantitySensor(device, mercury236.EnergyActive)
	assert.Equal(DEVICE_CLASS_ENERGY, energy.DeviceClass)
	assert.Equal(STATE_CLASS_TOTAL_INCREASING, energy.StateClass)
	assert.Equal("Wh", energy.UnitOfMeasurement)
	assert.Equal(uint(0), energy.Decimals)

	voltage := QuantitySensor(device, mercury236.VoltageL3)
	assert.Equal("Voltage L3", voltage.Name)
	assert.Equal(DEVICE_CLASS_VOLTAGE, voltage.DeviceClass)
	assert.Equal(uint(2), voltage.Decimals)

	pf := QuantitySensor(device, mercury236.PowerFactor)
	assert.Equal(DEVICE_CLASS_POWER_FACTOR, pf.DeviceClass)
	assert.Empty(pf.UnitOfMeasurement)

	freq := QuantitySensor(device, mercury236.Frequency)
	if assert.NotNil(freq.EnabledByDefault) {
		assert.False(*freq.EnabledByDefault)
	}
}

func TestDevicesAreStable(t *testing.T) {

	assert := assert.New(t)

	a := MeterDevice(MeterInfo{Model: "Mercury 236", Port: "/dev/ttyUSB0"})
	b := MeterDevice(MeterInfo{Model: "Mercury 236", Port: "/dev/ttyUSB0"})
	c := MeterDevice(MeterInfo{Model: "Mercury 236", Port: "/dev/ttyUSB1"})

	assert.Equal(a.Id, b.Id)
	assert.NotEqual(a.Id, c.Id)
	assert.Regexp(`^mercury_bridge_[0-9a-f]{8}$`, BridgeDevice("mercury").Id)
}
