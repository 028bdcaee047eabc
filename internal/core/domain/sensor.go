package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/berfenger/mercury2mqtt/pkg/mercury236"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE       = "bridge"
	SENSOR_ID_FAILED_PARAMETERS  = "failed_parameters"
	SENSOR_ID_PASS_DURATION      = "pass_duration"
	STATE_CLASS_MEASUREMENT      = "measurement"
	STATE_CLASS_TOTAL_INCREASING = "total_increasing"
	DEVICE_CLASS_APPARENT_POWER  = "apparent_power"
	DEVICE_CLASS_CURRENT         = "current"
	DEVICE_CLASS_DURATION        = "duration"
	DEVICE_CLASS_ENERGY          = "energy"
	DEVICE_CLASS_FREQUENCY       = "frequency"
	DEVICE_CLASS_POWER           = "power"
	DEVICE_CLASS_POWER_FACTOR    = "power_factor"
	DEVICE_CLASS_REACTIVE_POWER  = "reactive_power"
	DEVICE_CLASS_VOLTAGE         = "voltage"
	DEVICE_CLASS_CONNECTIVITY    = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC      = "diagnostic"
	SENSOR_TYPE_SENSOR           = "sensor"
	SENSOR_TYPE_BINARY           = "binary_sensor"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("mercury_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "mercury2mqtt",
		Model:        "Mercury bridge",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Mercury bridge %s", md5HashShort(baseTopic)),
	}
}

func MeterDevice(info MeterInfo) Device {
	serial := fmt.Sprintf("%s@%d", info.Port, info.Address)
	return Device{
		Id:           fmt.Sprintf("mercury_meter_%s", md5HashShort(serial)),
		Manufacturer: "Incotex",
		Model:        info.Model,
		Name:         fmt.Sprintf("%s %s", info.Model, md5HashShort(serial)),
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Bridge connectivity
	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

// MeterSensors returns one sensor per quantity, then the pass diagnostics.
// Only the first sensor carries the full device description.
func MeterSensors(meterDevice Device) []GenericSensor {

	var sensors []GenericSensor

	for _, q := range mercury236.Quantities() {
		device := meterDevice
		if len(sensors) > 0 {
			device = IdDevice(meterDevice)
		}
		sensors = append(sensors, QuantitySensor(device, q))
	}

	// Failed parameters in the last pass
	sensors = append(sensors, GenericSensor{
		Device:         IdDevice(meterDevice),
		Id:             SENSOR_ID_FAILED_PARAMETERS,
		SensorType:     SENSOR_TYPE_SENSOR,
		Name:           "Failed parameters",
		StateClass:     STATE_CLASS_MEASUREMENT,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		Icon:           "mdi:alert-circle-outline",
		UniqueId:       uniqueId(meterDevice.Id, SENSOR_ID_FAILED_PARAMETERS),
	})

	// Pass duration
	sensors = append(sensors, GenericSensor{
		Device:            IdDevice(meterDevice),
		Id:                SENSOR_ID_PASS_DURATION,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Pass duration",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_DURATION,
		UnitOfMeasurement: "s",
		EntityCategory:    ENTITY_CLASS_DIAGNOSTIC,
		EnabledByDefault:  optionalBool(false),
		Decimals:          3,
		UniqueId:          uniqueId(meterDevice.Id, SENSOR_ID_PASS_DURATION),
	})

	return sensors
}

func QuantitySensor(device Device, q mercury236.Quantity) GenericSensor {
	sensor := GenericSensor{
		Device:            device,
		Id:                q.Key(),
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              quantityName(q),
		StateClass:        STATE_CLASS_MEASUREMENT,
		UnitOfMeasurement: string(q.Unit()),
		Decimals:          QuantityDecimals(q),
		UniqueId:          uniqueId(device.Id, q.Key()),
	}
	switch q.Unit() {
	case mercury236.UnitWattHour:
		sensor.DeviceClass = DEVICE_CLASS_ENERGY
		sensor.StateClass = STATE_CLASS_TOTAL_INCREASING
	case mercury236.UnitVarHour:
		sensor.StateClass = STATE_CLASS_TOTAL_INCREASING
		sensor.Icon = "mdi:counter"
	case mercury236.UnitWatt:
		sensor.DeviceClass = DEVICE_CLASS_POWER
	case mercury236.UnitVar:
		sensor.DeviceClass = DEVICE_CLASS_REACTIVE_POWER
	case mercury236.UnitVoltAmpere:
		sensor.DeviceClass = DEVICE_CLASS_APPARENT_POWER
	case mercury236.UnitVolt:
		sensor.DeviceClass = DEVICE_CLASS_VOLTAGE
	case mercury236.UnitAmpere:
		sensor.DeviceClass = DEVICE_CLASS_CURRENT
	case mercury236.UnitHertz:
		sensor.DeviceClass = DEVICE_CLASS_FREQUENCY
		sensor.Icon = "mdi:sine-wave"
		sensor.EnabledByDefault = optionalBool(false)
	}
	if q == mercury236.PowerFactor {
		sensor.DeviceClass = DEVICE_CLASS_POWER_FACTOR
	}
	return sensor
}

// QuantityDecimals is the rounding applied when publishing q.
func QuantityDecimals(q mercury236.Quantity) uint {
	switch q.Unit() {
	case mercury236.UnitWattHour, mercury236.UnitVarHour:
		return 0
	case mercury236.UnitVolt, mercury236.UnitHertz:
		return 2
	case mercury236.UnitAmpere, mercury236.UnitNone:
		return 3
	}
	return 1
}

func quantityName(q mercury236.Quantity) string {
	switch q {
	case mercury236.EnergyActive:
		return "Active energy"
	case mercury236.EnergyReactive:
		return "Reactive energy"
	case mercury236.PowerActive:
		return "Active power"
	case mercury236.PowerActiveL1, mercury236.PowerActiveL2, mercury236.PowerActiveL3:
		return fmt.Sprintf("Active power %s", phase(q, mercury236.PowerActiveL1))
	case mercury236.PowerReactive:
		return "Reactive power"
	case mercury236.PowerReactiveL1, mercury236.PowerReactiveL2, mercury236.PowerReactiveL3:
		return fmt.Sprintf("Reactive power %s", phase(q, mercury236.PowerReactiveL1))
	case mercury236.PowerApparent:
		return "Apparent power"
	case mercury236.PowerApparentL1, mercury236.PowerApparentL2, mercury236.PowerApparentL3:
		return fmt.Sprintf("Apparent power %s", phase(q, mercury236.PowerApparentL1))
	case mercury236.VoltageL1, mercury236.VoltageL2, mercury236.VoltageL3:
		return fmt.Sprintf("Voltage %s", phase(q, mercury236.VoltageL1))
	case mercury236.CurrentL1, mercury236.CurrentL2, mercury236.CurrentL3:
		return fmt.Sprintf("Current %s", phase(q, mercury236.CurrentL1))
	case mercury236.Frequency:
		return "Grid frequency"
	case mercury236.PowerFactor:
		return "Power factor"
	}
	return q.Key()
}

func phase(q, first mercury236.Quantity) string {
	return fmt.Sprintf("L%d", int(q-first)+1)
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}

func optionalBool(value bool) *bool {
	return &value
}
