package mercury236

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSerialConfigValidate(t *testing.T) {

	assert := assert.New(t)

	cfg := DefaultSerialConfig()
	assert.NoError(cfg.Validate())

	cfg.Parity = "e"
	assert.NoError(cfg.Validate())
	assert.Equal(PARITY_EVEN, cfg.Parity, "parity normalized")

	for _, bits := range []int{4, 9, 0} {
		cfg := DefaultSerialConfig()
		cfg.DataBits = bits
		var ce *ConfigError
		assert.True(errors.As(cfg.Validate(), &ce), "data bits %d", bits)
	}

	for _, bits := range []int{0, 3} {
		cfg := DefaultSerialConfig()
		cfg.StopBits = bits
		var ce *ConfigError
		assert.True(errors.As(cfg.Validate(), &ce), "stop bits %d", bits)
	}

	cfg = DefaultSerialConfig()
	cfg.Parity = "X"
	assert.Error(cfg.Validate())
}

func TestOpenSerialRejectsConfigBeforeIO(t *testing.T) {

	cfg := DefaultSerialConfig()
	cfg.Port = "/dev/does-not-exist"
	cfg.StopBits = 3

	_, err := OpenSerial(cfg)
	var ce *ConfigError
	assert.True(t, errors.As(err, &ce))
}

func TestOpenSerialConnectionError(t *testing.T) {

	cfg := DefaultSerialConfig()
	cfg.Port = "/dev/mercury-does-not-exist"

	_, err := OpenSerial(cfg)
	var ce *ConnectionError
	assert.True(t, errors.As(err, &ce))
}
