package mercury236

// Snapshot holds the last successfully decoded value of every quantity.
// A quantity that was never decoded is absent, which is different from zero.
// The zero value is an empty snapshot ready to use.
type Snapshot struct {
	values  [quantityCount]float64
	present [quantityCount]bool
}

func NewSnapshot() *Snapshot {
	return &Snapshot{}
}

func (s Snapshot) Get(q Quantity) (float64, bool) {
	if !q.valid() || !s.present[q] {
		return 0, false
	}
	return s.values[q], true
}

func (s Snapshot) Has(q Quantity) bool {
	return q.valid() && s.present[q]
}

// Apply stores decoded readings, overwriting previous values of the same quantities.
func (s *Snapshot) Apply(readings ...Reading) {
	for _, r := range readings {
		if !r.Quantity.valid() {
			continue
		}
		s.values[r.Quantity] = r.Value
		s.present[r.Quantity] = true
	}
}

// Copy returns s by value; the arrays are copied with it.
func (s Snapshot) Copy() Snapshot {
	return s
}

// Readings returns the present values in quantity order.
func (s Snapshot) Readings() []Reading {
	var out []Reading
	for q := Quantity(0); q < quantityCount; q++ {
		if s.present[q] {
			out = append(out, Reading{Quantity: q, Value: s.values[q], Unit: q.Unit()})
		}
	}
	return out
}

func (s Snapshot) Len() int {
	n := 0
	for _, ok := range s.present {
		if ok {
			n++
		}
	}
	return n
}

func (s Snapshot) value(q Quantity) float64 {
	v, _ := s.Get(q)
	return v
}

// Active energy, Wh
func (s Snapshot) EnergyActive() float64 { return s.value(EnergyActive) }

// Reactive energy, varh
func (s Snapshot) EnergyReactive() float64 { return s.value(EnergyReactive) }

// Total active power, W
func (s Snapshot) PowerActive() float64   { return s.value(PowerActive) }
func (s Snapshot) PowerActiveL1() float64 { return s.value(PowerActiveL1) }
func (s Snapshot) PowerActiveL2() float64 { return s.value(PowerActiveL2) }
func (s Snapshot) PowerActiveL3() float64 { return s.value(PowerActiveL3) }

// Total reactive power, var
func (s Snapshot) PowerReactive() float64   { return s.value(PowerReactive) }
func (s Snapshot) PowerReactiveL1() float64 { return s.value(PowerReactiveL1) }
func (s Snapshot) PowerReactiveL2() float64 { return s.value(PowerReactiveL2) }
func (s Snapshot) PowerReactiveL3() float64 { return s.value(PowerReactiveL3) }

// Total apparent power, VA
func (s Snapshot) PowerApparent() float64   { return s.value(PowerApparent) }
func (s Snapshot) PowerApparentL1() float64 { return s.value(PowerApparentL1) }
func (s Snapshot) PowerApparentL2() float64 { return s.value(PowerApparentL2) }
func (s Snapshot) PowerApparentL3() float64 { return s.value(PowerApparentL3) }

func (s Snapshot) VoltageL1() float64 { return s.value(VoltageL1) }
func (s Snapshot) VoltageL2() float64 { return s.value(VoltageL2) }
func (s Snapshot) VoltageL3() float64 { return s.value(VoltageL3) }

func (s Snapshot) CurrentL1() float64 { return s.value(CurrentL1) }
func (s Snapshot) CurrentL2() float64 { return s.value(CurrentL2) }
func (s Snapshot) CurrentL3() float64 { return s.value(CurrentL3) }

// Frequency, Hz. No catalogue entry decodes it yet.
func (s Snapshot) Frequency() float64 { return s.value(Frequency) }

// Power factor (cos f)
func (s Snapshot) PowerFactor() float64 { return s.value(PowerFactor) }
