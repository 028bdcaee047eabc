package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/berfenger/mercury2mqtt/internal/util"
	"github.com/berfenger/mercury2mqtt/pkg/mercury236"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfigFlags(t *testing.T) {

	require := require.New(t)

	t.Setenv("CONFIG_FILE", "")
	cfg, opts, err := initConfig([]string{"--once", "--dry-run", "--port", "/dev/ttyS1", "--baudrate", "19200",
		"--parity", "e", "--bytesize", "7", "--stopbits", "2", "--timeout", "0.5"})
	require.NoError(err)

	require.True(opts.once)
	require.True(opts.dryRun)
	require.Equal("/dev/ttyS1", cfg.Serial.Port)
	require.Equal(19200, cfg.Serial.BaudRate)
	require.Equal("E", cfg.Serial.Parity)
	require.Equal(7, cfg.Serial.DataBits)
	require.Equal(2, cfg.Serial.StopBits)
	require.Equal(uint32(500), cfg.Serial.TimeoutMillis)
	// untouched settings keep their defaults
	require.Equal(uint32(100), cfg.Meter.SettleDelayMillis)
}

func TestInitConfigEnv(t *testing.T) {

	t.Setenv("CONFIG_FILE", "")
	t.Setenv("MERCURY_SERIAL_PORT", "/dev/ttyAMA0")
	t.Setenv("MERCURY_PORT", "")
	t.Setenv("PORT", "9090")

	cfg, opts, err := initConfig(nil)
	require.NoError(t, err)
	assert.False(t, opts.once)
	assert.Equal(t, "/dev/ttyAMA0", cfg.Serial.Port)
	assert.Equal(t, uint(9090), cfg.Port)
}

func TestInitConfigRejectsBadSerial(t *testing.T) {

	t.Setenv("CONFIG_FILE", "")
	_, _, err := initConfig([]string{"--bytesize", "9"})

	var cfgErr *mercury236.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestInitConfigRejectsBadTimeout(t *testing.T) {

	t.Setenv("CONFIG_FILE", "")
	for _, timeout := range []string{"-1", "0", "0.0001", "1e10", "NaN"} {
		_, _, err := initConfig([]string{"--timeout", timeout})

		var cfgErr *mercury236.ConfigError
		if assert.ErrorAs(t, err, &cfgErr, timeout) {
			assert.Equal(t, "timeout", cfgErr.Field)
		}
	}
}

func TestRunOnceDryRun(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	cfg.Meter.PassTimeoutMillis = uint32((5 * time.Second).Milliseconds())

	var out bytes.Buffer
	code := runOnce(&cfg, runOptions{once: true, dryRun: true}, &out)

	assert.Equal(0, code)
	assert.Contains(out.String(), "Current Measurements:")
	assert.Contains(out.String(), "Active Energy: 6172800 Wh")
	assert.Contains(out.String(), "Voltage L1: 230.15 V, L2: 229.80 V, L3: 231.02 V")
	assert.Contains(out.String(), "Current L1: 4.500 A")
	assert.Contains(out.String(), "Frequency: - Hz")
	assert.Contains(out.String(), "Power Factor: 0.952")
}

func TestRunOnceOpenError(t *testing.T) {

	cfg := util.LoadTestConfig()
	cfg.Serial.Port = "/dev/does-not-exist"

	var out bytes.Buffer
	code := runOnce(&cfg, runOptions{once: true}, &out)

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "Error:")
}

func TestRunOnceNothingDecoded(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()

	// every frame answered with a short error reply
	transport := mercury236.CreateTestTransport()
	for _, p := range mercury236.DefaultCatalogue().Parameters() {
		transport.Respond(p.Frame, []byte{0x00, 0x05, 0x01})
	}

	var out bytes.Buffer
	code := runPass(&cfg, func() (mercury236.Transport, error) {
		return transport, nil
	}, &out)

	assert.Equal(1, code)
	assert.Contains(out.String(), "Active Energy: - Wh")
	assert.Contains(out.String(), "Error: no parameter decoded")
}

func TestPrintMeasurementsAbsentValues(t *testing.T) {

	snap := mercury236.NewSnapshot()
	snap.Apply(mercury236.Reading{Quantity: mercury236.PowerActive, Value: 3000})

	var out bytes.Buffer
	printMeasurements(&out, snap.Copy())

	assert.Contains(t, out.String(), "Active Power: 3000.0 W")
	assert.Contains(t, out.String(), "Reactive Power: - VAR")
}
