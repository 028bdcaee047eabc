package mercury236

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sigurn/crc16"
)

const (
	ENERGY_MIN_LEN       = 13
	REGISTER_MIN_LEN     = 4
	ENERGY_ACTIVE_FACTOR = 50
	POWER_FACTOR_MASK    = 0x3F
)

var (
	ErrNoReply    = errors.New("no reply")
	ErrTooShort   = errors.New("response too short")
	ErrBadTrailer = errors.New("response trailer mismatch")
)

var crcTable = crc16.MakeTable(crc16.CRC16_MODBUS)

// ShortResponseError reports a reply shorter than its decode rule needs.
type ShortResponseError struct {
	Parameter string
	Want      int
	Got       int
}

func (e *ShortResponseError) Error() string {
	return fmt.Sprintf("%s: response too short: got %d bytes, want at least %d", e.Parameter, e.Got, e.Want)
}

func (e *ShortResponseError) Unwrap() error {
	return ErrTooShort
}

// Decode applies the parameter's rule to a raw response. It is pure: the same input
// always yields the same readings and neither argument is modified.
func Decode(p Parameter, resp []byte) ([]Reading, error) {
	if len(resp) == 0 {
		return nil, fmt.Errorf("%s: %w", p.Id, ErrNoReply)
	}
	switch p.Rule {
	case RuleNone:
		return nil, nil
	case RuleEnergy:
		active, reactive, err := DecodeEnergy(resp)
		if err != nil {
			return nil, short(p, err)
		}
		return readings(p, active, reactive), nil
	case RulePower:
		v, err := DecodePower(resp, p.scale())
		if err != nil {
			return nil, short(p, err)
		}
		return readings(p, v), nil
	case RuleVoltage:
		v, err := DecodeVoltage(resp)
		if err != nil {
			return nil, short(p, err)
		}
		return readings(p, v), nil
	case RuleCurrent:
		v, err := DecodeCurrent(resp)
		if err != nil {
			return nil, short(p, err)
		}
		return readings(p, v), nil
	case RulePowerFactor:
		v, err := DecodePowerFactor(resp)
		if err != nil {
			return nil, short(p, err)
		}
		return readings(p, v), nil
	}
	return nil, fmt.Errorf("%s: unsupported rule %s", p.Id, p.Rule)
}

// SwapWordPairs returns a copy of b with the bytes of each 16-bit half swapped:
// b0 b1 b2 b3 -> b1 b0 b3 b2.
func SwapWordPairs(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	for i := 0; i+1 < len(out); i += 2 {
		out[i], out[i+1] = out[i+1], out[i]
	}
	return out
}

// DecodeEnergy returns the active (Wh) and reactive counters.
// Active energy is reported in 1/50 Wh units.
func DecodeEnergy(resp []byte) (float64, float64, error) {
	if len(resp) < ENERGY_MIN_LEN {
		return 0, 0, tooShort(ENERGY_MIN_LEN, len(resp))
	}
	active := binary.BigEndian.Uint32(SwapWordPairs(resp[1:5]))
	reactive := binary.BigEndian.Uint32(SwapWordPairs(resp[9:13]))
	return float64(active) * ENERGY_ACTIVE_FACTOR, float64(reactive), nil
}

func DecodePower(resp []byte, scale float64) (float64, error) {
	raw, err := registerInt16(resp)
	if err != nil {
		return 0, err
	}
	return float64(raw) / 100 * 50 * scale, nil
}

func DecodeVoltage(resp []byte) (float64, error) {
	raw, err := registerInt16(resp)
	if err != nil {
		return 0, err
	}
	return float64(raw) / 100, nil
}

func DecodeCurrent(resp []byte) (float64, error) {
	raw, err := registerInt16(resp)
	if err != nil {
		return 0, err
	}
	return float64(raw) / 1000 * 50, nil
}

// DecodePowerFactor reads the 3-byte packed value at resp[1:4]. The two top bits of
// the first byte are flags and are ignored.
func DecodePowerFactor(resp []byte) (float64, error) {
	if len(resp) < REGISTER_MIN_LEN {
		return 0, tooShort(REGISTER_MIN_LEN, len(resp))
	}
	b := resp[1:4]
	raw := uint32(b[0]&POWER_FACTOR_MASK)<<16 | uint32(b[2])<<8 | uint32(b[1])
	return float64(raw) / 1000, nil
}

// VerifyTrailer checks that the last two bytes of frame are the little-endian
// CRC16/MODBUS of the preceding bytes.
func VerifyTrailer(frame []byte) error {
	if len(frame) < 3 {
		return fmt.Errorf("%w: frame of %d bytes has no trailer", ErrBadTrailer, len(frame))
	}
	body := frame[:len(frame)-2]
	got := binary.LittleEndian.Uint16(frame[len(frame)-2:])
	want := crc16.Checksum(body, crcTable)
	if got != want {
		return fmt.Errorf("%w: got 0x%04x, want 0x%04x", ErrBadTrailer, got, want)
	}
	return nil
}

func registerInt16(resp []byte) (int16, error) {
	if len(resp) < REGISTER_MIN_LEN {
		return 0, tooShort(REGISTER_MIN_LEN, len(resp))
	}
	return int16(binary.LittleEndian.Uint16(resp[2:4])), nil
}

func tooShort(want, got int) error {
	return &ShortResponseError{Want: want, Got: got}
}

func short(p Parameter, err error) error {
	var se *ShortResponseError
	if errors.As(err, &se) {
		se.Parameter = p.Id
	}
	return err
}

func readings(p Parameter, values ...float64) []Reading {
	out := make([]Reading, 0, len(values))
	for i, v := range values {
		if i >= len(p.Quantities) {
			break
		}
		q := p.Quantities[i]
		out = append(out, Reading{Quantity: q, Value: v, Unit: q.Unit()})
	}
	return out
}
