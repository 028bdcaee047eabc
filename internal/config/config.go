package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/berfenger/mercury2mqtt/pkg/mercury236"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const ENV_PREFIX = "mercury"

type Config struct {
	LogLevel      zapcore.Level
	Serial        SerialConfig  `mapstructure:"serial"`
	Meter         MeterConfig   `mapstructure:"meter"`
	MQTT          MQTTConfig    `mapstructure:"mqtt"`
	MonitorConfig MonitorConfig `mapstructure:"monitor"`
	Port          uint          `mapstructure:"port"`
	HttpLog       bool          `mapstructure:"http_log"`
}

type SerialConfig struct {
	Port          string
	BaudRate      int    `mapstructure:"baud_rate"`
	Parity        string `mapstructure:"parity"`
	DataBits      int    `mapstructure:"data_bits"`
	StopBits      int    `mapstructure:"stop_bits"`
	TimeoutMillis uint32 `mapstructure:"timeout_millis"`
}

type MeterConfig struct {
	SettleDelayMillis uint32 `mapstructure:"settle_delay_millis"`
	MaxResponseBytes  int    `mapstructure:"max_response_bytes"`
	VerifyTrailer     bool   `mapstructure:"verify_trailer"`
	PassTimeoutMillis uint32 `mapstructure:"pass_timeout_millis"`
}

type MonitorConfig struct {
	PollIntervalMillis uint32 `mapstructure:"poll_interval_millis"`
}

type MQTTConfig struct {
	Enable            bool
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "warn")
	v.SetDefault("port", 8080)
	v.SetDefault("http_log", false)
	v.SetDefault("serial.port", "/dev/ttyUSB0")
	v.SetDefault("serial.baud_rate", 9600)
	v.SetDefault("serial.parity", mercury236.PARITY_NONE)
	v.SetDefault("serial.data_bits", 8)
	v.SetDefault("serial.stop_bits", 1)
	v.SetDefault("serial.timeout_millis", 1000)
	v.SetDefault("meter.settle_delay_millis", 100)
	v.SetDefault("meter.max_response_bytes", 64)
	v.SetDefault("meter.verify_trailer", false)
	v.SetDefault("meter.pass_timeout_millis", 40000)
	v.SetDefault("monitor.poll_interval_millis", 10000)
	v.SetDefault("mqtt.enable", true)
	v.SetDefault("mqtt.host", "localhost")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.base_topic", "mercury")
	v.SetDefault("mqtt.ha_discovery_enable", false)
	v.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.LogLevel = ParseLogLevel(v.GetString("log_level"))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func ParseLogLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "trace", "debug":
		return zap.DebugLevel
	case "info":
		return zap.InfoLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	case "fatal":
		return zap.FatalLevel
	}
	return zap.InfoLevel
}

// Validate checks bounds and normalizes parity and MQTT topics in place.
func (cfg *Config) Validate() error {
	serial := cfg.Serial.ToMercury()
	if err := serial.Validate(); err != nil {
		return err
	}
	cfg.Serial.Parity = serial.Parity

	if cfg.MonitorConfig.PollIntervalMillis < 1000 {
		return errors.New("config param monitor.poll_interval_millis should be >= 1000")
	}
	if cfg.Meter.SettleDelayMillis == 0 {
		return errors.New("config param meter.settle_delay_millis should be > 0")
	}
	if cfg.Meter.PassTimeoutMillis <= cfg.Meter.SettleDelayMillis {
		return errors.New("config param meter.pass_timeout_millis must be > meter.settle_delay_millis")
	}
	if cfg.Meter.MaxResponseBytes <= 0 {
		return errors.New("config param meter.max_response_bytes should be > 0")
	}

	if !cfg.MQTT.Enable {
		return nil
	}
	baseTopic, err := CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return fmt.Errorf("invalid base topic: %w", err)
	}
	cfg.MQTT.BaseTopic = baseTopic

	hadBaseTopic, err := CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return fmt.Errorf("invalid homeassistant discovery topic: %w", err)
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic
	return nil
}

func (c SerialConfig) ToMercury() mercury236.SerialConfig {
	return mercury236.SerialConfig{
		Port:     c.Port,
		BaudRate: c.BaudRate,
		Parity:   c.Parity,
		DataBits: c.DataBits,
		StopBits: c.StopBits,
		Timeout:  time.Duration(c.TimeoutMillis) * time.Millisecond,
	}
}

func (c MeterConfig) ReaderConfig() mercury236.ReaderConfig {
	return mercury236.ReaderConfig{
		SettleDelay:      time.Duration(c.SettleDelayMillis) * time.Millisecond,
		MaxResponseBytes: c.MaxResponseBytes,
		VerifyTrailer:    c.VerifyTrailer,
	}
}

func (c MeterConfig) PassTimeout() time.Duration {
	return time.Duration(c.PassTimeoutMillis) * time.Millisecond
}

func (c MonitorConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMillis) * time.Millisecond
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
