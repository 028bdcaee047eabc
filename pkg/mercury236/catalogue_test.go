package mercury236

import (
	"encoding/binary"
	"testing"

	"github.com/sigurn/crc16"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogueFramesAddressDevice(t *testing.T) {

	assert := assert.New(t)

	c := DefaultCatalogue()
	assert.Equal(byte(BROADCAST_ADDRESS), c.Address(), "broadcast address")

	for _, p := range c.Parameters() {
		frame := c.Lookup(p.Id)
		assert.NotEmpty(frame, p.Id)
		assert.Equal(c.Address(), frame[0], "first byte of %s", p.Id)
	}
}

func TestCatalogueTrailersAreCRC16(t *testing.T) {

	assert := assert.New(t)

	table := crc16.MakeTable(crc16.CRC16_MODBUS)
	for _, p := range DefaultCatalogue().Parameters() {
		body := p.Frame[:len(p.Frame)-2]
		trailer := binary.LittleEndian.Uint16(p.Frame[len(p.Frame)-2:])
		assert.Equal(crc16.Checksum(body, table), trailer, "trailer of %s", p.Id)
		assert.NoError(VerifyTrailer(p.Frame), p.Id)
	}
}

func TestCatalogueOrder(t *testing.T) {

	assert := assert.New(t)

	params := DefaultCatalogue().Parameters()
	var ids []string
	for _, p := range params {
		ids = append(ids, p.Id)
	}
	assert.Equal([]string{
		PARAM_ID, PARAM_ADMIN, PARAM_ENERGY,
		PARAM_VOLTAGE_L1, PARAM_VOLTAGE_L2, PARAM_VOLTAGE_L3,
		PARAM_TOTAL_POWER_ACTIVE, PARAM_POWER_ACTIVE_L1, PARAM_POWER_ACTIVE_L2, PARAM_POWER_ACTIVE_L3,
		PARAM_TOTAL_POWER_REACTIVE, PARAM_POWER_REACTIVE_L1, PARAM_POWER_REACTIVE_L2, PARAM_POWER_REACTIVE_L3,
		PARAM_TOTAL_POWER_SEEM, PARAM_POWER_SEEM_L1, PARAM_POWER_SEEM_L2, PARAM_POWER_SEEM_L3,
		PARAM_CURRENT_L1, PARAM_CURRENT_L2, PARAM_CURRENT_L3,
		PARAM_FREQUENCY, PARAM_COSF,
	}, ids)
}

func TestCatalogueQuantitiesAreNotAliased(t *testing.T) {

	assert := assert.New(t)

	seen := map[Quantity]string{}
	for _, p := range DefaultCatalogue().Parameters() {
		for _, q := range p.Quantities {
			other, dup := seen[q]
			assert.False(dup, "%s targeted by %s and %s", q, other, p.Id)
			seen[q] = p.Id
		}
	}
	_, freq := seen[Frequency]
	assert.False(freq, "frequency has no decoding entry")
}

func TestCatalogueOnlyTotalActivePowerIsScaled(t *testing.T) {

	assert := assert.New(t)

	for _, p := range DefaultCatalogue().Parameters() {
		if p.Id == PARAM_TOTAL_POWER_ACTIVE {
			assert.Equal(10.0, p.scale())
		} else {
			assert.Equal(1.0, p.scale(), p.Id)
		}
	}
}

func TestCatalogueLookupReturnsCopy(t *testing.T) {

	assert := assert.New(t)

	c := DefaultCatalogue()
	frame := c.Lookup(PARAM_ENERGY)
	frame[0] = 0x42
	assert.Equal(byte(0x00), c.Lookup(PARAM_ENERGY)[0])
}

func TestCatalogueUnknownIdPanics(t *testing.T) {

	c := DefaultCatalogue()
	assert.Panics(t, func() { c.Lookup("Nope") })
	assert.False(t, c.Has("Nope"))
}

func TestNewCatalogueRejectsAliases(t *testing.T) {

	require := require.New(t)

	_, err := NewCatalogue(
		Parameter{Id: "a", Frame: []byte{0x00, 0x08, 0x11}, Rule: RuleVoltage, Quantities: []Quantity{VoltageL1}},
		Parameter{Id: "b", Frame: []byte{0x00, 0x08, 0x12}, Rule: RuleVoltage, Quantities: []Quantity{VoltageL1}},
	)
	require.Error(err)

	_, err = NewCatalogue(
		Parameter{Id: "a", Frame: []byte{0x00, 0x08, 0x11}},
		Parameter{Id: "a", Frame: []byte{0x00, 0x08, 0x12}},
	)
	require.Error(err)

	_, err = NewCatalogue(
		Parameter{Id: "a", Frame: []byte{0x00, 0x08, 0x11}},
		Parameter{Id: "b", Frame: []byte{0x01, 0x08, 0x12}},
	)
	require.Error(err, "mixed addresses")

	_, err = NewCatalogue()
	require.Error(err)
}
