package util

import (
	"github.com/berfenger/mercury2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Serial: config.SerialConfig{
			Port:          "/dev/null",
			BaudRate:      9600,
			Parity:        "N",
			DataBits:      8,
			StopBits:      1,
			TimeoutMillis: 1000,
		},
		Meter: config.MeterConfig{
			SettleDelayMillis: 1,
			MaxResponseBytes:  64,
			PassTimeoutMillis: 5000,
		},
		MQTT: config.MQTTConfig{
			Enable:           true,
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "mercury",
			HADiscoveryTopic: "homeassistant",
		},
		MonitorConfig: config.MonitorConfig{
			PollIntervalMillis: 1000,
		},
		Port: 8080,
	}
}
