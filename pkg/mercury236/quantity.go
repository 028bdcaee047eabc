package mercury236

type Unit string

const (
	UnitNone       Unit = ""
	UnitWattHour   Unit = "Wh"
	UnitVarHour    Unit = "varh"
	UnitWatt       Unit = "W"
	UnitVar        Unit = "var"
	UnitVoltAmpere Unit = "VA"
	UnitVolt       Unit = "V"
	UnitAmpere     Unit = "A"
	UnitHertz      Unit = "Hz"
)

// Quantity identifies one physical value reported by the meter.
type Quantity int

const (
	EnergyActive Quantity = iota
	EnergyReactive
	PowerActive
	PowerActiveL1
	PowerActiveL2
	PowerActiveL3
	PowerReactive
	PowerReactiveL1
	PowerReactiveL2
	PowerReactiveL3
	PowerApparent
	PowerApparentL1
	PowerApparentL2
	PowerApparentL3
	VoltageL1
	VoltageL2
	VoltageL3
	CurrentL1
	CurrentL2
	CurrentL3
	Frequency
	PowerFactor

	quantityCount
)

type quantityInfo struct {
	key  string
	unit Unit
}

var quantities = [quantityCount]quantityInfo{
	EnergyActive:    {"energy_active", UnitWattHour},
	EnergyReactive:  {"energy_reactive", UnitVarHour},
	PowerActive:     {"power_active", UnitWatt},
	PowerActiveL1:   {"power_active_l1", UnitWatt},
	PowerActiveL2:   {"power_active_l2", UnitWatt},
	PowerActiveL3:   {"power_active_l3", UnitWatt},
	PowerReactive:   {"power_reactive", UnitVar},
	PowerReactiveL1: {"power_reactive_l1", UnitVar},
	PowerReactiveL2: {"power_reactive_l2", UnitVar},
	PowerReactiveL3: {"power_reactive_l3", UnitVar},
	PowerApparent:   {"power_apparent", UnitVoltAmpere},
	PowerApparentL1: {"power_apparent_l1", UnitVoltAmpere},
	PowerApparentL2: {"power_apparent_l2", UnitVoltAmpere},
	PowerApparentL3: {"power_apparent_l3", UnitVoltAmpere},
	VoltageL1:       {"voltage_l1", UnitVolt},
	VoltageL2:       {"voltage_l2", UnitVolt},
	VoltageL3:       {"voltage_l3", UnitVolt},
	CurrentL1:       {"current_l1", UnitAmpere},
	CurrentL2:       {"current_l2", UnitAmpere},
	CurrentL3:       {"current_l3", UnitAmpere},
	Frequency:       {"frequency", UnitHertz},
	PowerFactor:     {"power_factor", UnitNone},
}

// Key is the stable snake_case name used for topics, JSON fields and metric labels.
func (q Quantity) Key() string {
	if !q.valid() {
		return "unknown"
	}
	return quantities[q].key
}

func (q Quantity) String() string {
	return q.Key()
}

func (q Quantity) Unit() Unit {
	if !q.valid() {
		return UnitNone
	}
	return quantities[q].unit
}

func (q Quantity) valid() bool {
	return q >= 0 && q < quantityCount
}

// Quantities returns every known quantity in declaration order.
func Quantities() []Quantity {
	all := make([]Quantity, 0, quantityCount)
	for q := Quantity(0); q < quantityCount; q++ {
		all = append(all, q)
	}
	return all
}

// Reading is a single decoded value.
type Reading struct {
	Quantity Quantity
	Value    float64
	Unit     Unit
}
