package mercury236

import (
	"errors"
	"fmt"
)

const (
	PARAM_ID                   = "ID"
	PARAM_ADMIN                = "Admin"
	PARAM_ENERGY               = "Energy"
	PARAM_VOLTAGE_L1           = "VoltageL1"
	PARAM_VOLTAGE_L2           = "VoltageL2"
	PARAM_VOLTAGE_L3           = "VoltageL3"
	PARAM_TOTAL_POWER_ACTIVE   = "TotalPowerActive"
	PARAM_POWER_ACTIVE_L1      = "PowerActiveL1"
	PARAM_POWER_ACTIVE_L2      = "PowerActiveL2"
	PARAM_POWER_ACTIVE_L3      = "PowerActiveL3"
	PARAM_TOTAL_POWER_REACTIVE = "TotalPowerReactive"
	PARAM_POWER_REACTIVE_L1    = "PowerReactiveL1"
	PARAM_POWER_REACTIVE_L2    = "PowerReactiveL2"
	PARAM_POWER_REACTIVE_L3    = "PowerReactiveL3"
	PARAM_TOTAL_POWER_SEEM     = "TotalPowerSeem"
	PARAM_POWER_SEEM_L1        = "PowerSeemL1"
	PARAM_POWER_SEEM_L2        = "PowerSeemL2"
	PARAM_POWER_SEEM_L3        = "PowerSeemL3"
	PARAM_CURRENT_L1           = "CurrentL1"
	PARAM_CURRENT_L2           = "CurrentL2"
	PARAM_CURRENT_L3           = "CurrentL3"
	PARAM_FREQUENCY            = "Frequency"
	PARAM_COSF                 = "CosF"

	BROADCAST_ADDRESS = 0x00
)

// Rule selects the decode transform applied to a parameter's response.
type Rule int

const (
	// RuleNone sends the frame and accepts any reply without decoding it.
	RuleNone Rule = iota
	RuleEnergy
	RulePower
	RuleVoltage
	RuleCurrent
	RulePowerFactor
)

func (r Rule) String() string {
	switch r {
	case RuleNone:
		return "none"
	case RuleEnergy:
		return "energy"
	case RulePower:
		return "power"
	case RuleVoltage:
		return "voltage"
	case RuleCurrent:
		return "current"
	case RulePowerFactor:
		return "power_factor"
	}
	return fmt.Sprintf("rule(%d)", int(r))
}

// Parameter is one catalogue entry: a literal request frame and how to decode its reply.
// Frames are [address][function/register bytes][crc16 lo][crc16 hi] and are never built at runtime.
type Parameter struct {
	Id         string
	Frame      []byte
	Rule       Rule
	Quantities []Quantity
	// Scale is an extra multiplier applied by the power rule. Zero means 1.
	Scale float64
}

func (p Parameter) scale() float64 {
	if p.Scale == 0 {
		return 1
	}
	return p.Scale
}

// Catalogue is the ordered, read-only table of parameters polled in one pass.
type Catalogue struct {
	params []Parameter
	index  map[string]int
}

func NewCatalogue(params ...Parameter) (*Catalogue, error) {
	if len(params) == 0 {
		return nil, errors.New("catalogue: at least one parameter required")
	}
	c := &Catalogue{
		params: make([]Parameter, 0, len(params)),
		index:  make(map[string]int, len(params)),
	}
	targets := make(map[Quantity]string)
	for _, p := range params {
		if p.Id == "" {
			return nil, errors.New("catalogue: parameter id required")
		}
		if len(p.Frame) < 3 {
			return nil, fmt.Errorf("catalogue: frame for %s too short", p.Id)
		}
		if _, ok := c.index[p.Id]; ok {
			return nil, fmt.Errorf("catalogue: duplicated parameter %s", p.Id)
		}
		if p.Frame[0] != params[0].Frame[0] {
			return nil, fmt.Errorf("catalogue: parameter %s addresses device %d, expected %d", p.Id, p.Frame[0], params[0].Frame[0])
		}
		if p.Rule != RuleNone && len(p.Quantities) == 0 {
			return nil, fmt.Errorf("catalogue: parameter %s has a decode rule but no quantity", p.Id)
		}
		for _, q := range p.Quantities {
			if other, ok := targets[q]; ok {
				return nil, fmt.Errorf("catalogue: %s and %s both target %s", other, p.Id, q)
			}
			targets[q] = p.Id
		}
		frame := make([]byte, len(p.Frame))
		copy(frame, p.Frame)
		p.Frame = frame
		p.Quantities = append([]Quantity(nil), p.Quantities...)
		c.index[p.Id] = len(c.params)
		c.params = append(c.params, p)
	}
	return c, nil
}

// DefaultCatalogue returns the Mercury 236 telemetry table in polling order.
func DefaultCatalogue() *Catalogue {
	c, err := NewCatalogue(defaultParameters()...)
	if err != nil {
		panic(err)
	}
	return c
}

func defaultParameters() []Parameter {
	return []Parameter{
		// link test, the meter answers with its address echo
		{Id: PARAM_ID, Frame: []byte{0x00, 0x08, 0x05, 0xb6, 0x03}},
		// open channel, access level 2; reads are refused until this succeeds
		{Id: PARAM_ADMIN, Frame: []byte{0x00, 0x01, 0x02, 0x02, 0x02, 0x02, 0x02, 0x02, 0x02, 0xb0, 0x07}},
		{Id: PARAM_ENERGY, Frame: []byte{0x00, 0x05, 0x00, 0x00, 0x10, 0x25}, Rule: RuleEnergy, Quantities: []Quantity{EnergyActive, EnergyReactive}},
		{Id: PARAM_VOLTAGE_L1, Frame: []byte{0x00, 0x08, 0x11, 0x11, 0x4d, 0xba}, Rule: RuleVoltage, Quantities: []Quantity{VoltageL1}},
		{Id: PARAM_VOLTAGE_L2, Frame: []byte{0x00, 0x08, 0x11, 0x12, 0x0d, 0xbb}, Rule: RuleVoltage, Quantities: []Quantity{VoltageL2}},
		{Id: PARAM_VOLTAGE_L3, Frame: []byte{0x00, 0x08, 0x11, 0x13, 0xcc, 0x7b}, Rule: RuleVoltage, Quantities: []Quantity{VoltageL3}},
		// the meter reports total active power with one decimal less than the phases
		{Id: PARAM_TOTAL_POWER_ACTIVE, Frame: []byte{0x00, 0x08, 0x11, 0x00, 0x8d, 0xb6}, Rule: RulePower, Quantities: []Quantity{PowerActive}, Scale: 10},
		{Id: PARAM_POWER_ACTIVE_L1, Frame: []byte{0x00, 0x08, 0x11, 0x01, 0x4c, 0x76}, Rule: RulePower, Quantities: []Quantity{PowerActiveL1}},
		{Id: PARAM_POWER_ACTIVE_L2, Frame: []byte{0x00, 0x08, 0x11, 0x02, 0x0c, 0x77}, Rule: RulePower, Quantities: []Quantity{PowerActiveL2}},
		{Id: PARAM_POWER_ACTIVE_L3, Frame: []byte{0x00, 0x08, 0x11, 0x03, 0xcd, 0xb7}, Rule: RulePower, Quantities: []Quantity{PowerActiveL3}},
		{Id: PARAM_TOTAL_POWER_REACTIVE, Frame: []byte{0x00, 0x08, 0x11, 0x04, 0x8c, 0x75}, Rule: RulePower, Quantities: []Quantity{PowerReactive}},
		{Id: PARAM_POWER_REACTIVE_L1, Frame: []byte{0x00, 0x08, 0x11, 0x05, 0x4d, 0xb5}, Rule: RulePower, Quantities: []Quantity{PowerReactiveL1}},
		{Id: PARAM_POWER_REACTIVE_L2, Frame: []byte{0x00, 0x08, 0x11, 0x06, 0x0d, 0xb4}, Rule: RulePower, Quantities: []Quantity{PowerReactiveL2}},
		{Id: PARAM_POWER_REACTIVE_L3, Frame: []byte{0x00, 0x08, 0x11, 0x07, 0xcc, 0x74}, Rule: RulePower, Quantities: []Quantity{PowerReactiveL3}},
		{Id: PARAM_TOTAL_POWER_SEEM, Frame: []byte{0x00, 0x08, 0x11, 0x08, 0x8c, 0x70}, Rule: RulePower, Quantities: []Quantity{PowerApparent}},
		{Id: PARAM_POWER_SEEM_L1, Frame: []byte{0x00, 0x08, 0x11, 0x09, 0x4d, 0xb0}, Rule: RulePower, Quantities: []Quantity{PowerApparentL1}},
		{Id: PARAM_POWER_SEEM_L2, Frame: []byte{0x00, 0x08, 0x11, 0x0a, 0x0d, 0xb1}, Rule: RulePower, Quantities: []Quantity{PowerApparentL2}},
		{Id: PARAM_POWER_SEEM_L3, Frame: []byte{0x00, 0x08, 0x11, 0x0b, 0xcc, 0x71}, Rule: RulePower, Quantities: []Quantity{PowerApparentL3}},
		{Id: PARAM_CURRENT_L1, Frame: []byte{0x00, 0x08, 0x11, 0x21, 0x4d, 0xae}, Rule: RuleCurrent, Quantities: []Quantity{CurrentL1}},
		{Id: PARAM_CURRENT_L2, Frame: []byte{0x00, 0x08, 0x11, 0x22, 0x0d, 0xaf}, Rule: RuleCurrent, Quantities: []Quantity{CurrentL2}},
		{Id: PARAM_CURRENT_L3, Frame: []byte{0x00, 0x08, 0x11, 0x23, 0xcc, 0x6f}, Rule: RuleCurrent, Quantities: []Quantity{CurrentL3}},
		// TODO: decode frequency once a reference reply is captured; it stays absent until then
		{Id: PARAM_FREQUENCY, Frame: []byte{0x00, 0x08, 0x11, 0x40, 0x8c, 0x46}},
		{Id: PARAM_COSF, Frame: []byte{0x00, 0x08, 0x16, 0x30, 0x8f, 0x92}, Rule: RulePowerFactor, Quantities: []Quantity{PowerFactor}},
	}
}

// Lookup returns a copy of the request frame for id. Unknown ids are programming errors.
func (c *Catalogue) Lookup(id string) []byte {
	p := c.Parameter(id)
	frame := make([]byte, len(p.Frame))
	copy(frame, p.Frame)
	return frame
}

func (c *Catalogue) Parameter(id string) Parameter {
	i, ok := c.index[id]
	if !ok {
		panic(fmt.Sprintf("catalogue: unknown parameter %q", id))
	}
	return c.params[i]
}

func (c *Catalogue) Has(id string) bool {
	_, ok := c.index[id]
	return ok
}

// Parameters returns the entries in polling order.
func (c *Catalogue) Parameters() []Parameter {
	return append([]Parameter(nil), c.params...)
}

func (c *Catalogue) Len() int {
	return len(c.params)
}

// Address is the device address shared by every frame.
func (c *Catalogue) Address() byte {
	return c.params[0].Frame[0]
}
