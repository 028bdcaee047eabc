package mercury236

import (
	"encoding/binary"
	"sync"

	"github.com/sigurn/crc16"
)

// TestTransport is an in-memory meter: it answers each request frame with a canned reply.
type TestTransport struct {
	mu        sync.Mutex
	responses map[string][]byte
	failures  map[string]error
	pending   []byte
	failure   error
	written   [][]byte
}

func NewTestTransport() *TestTransport {
	return &TestTransport{
		responses: make(map[string][]byte),
		failures:  make(map[string]error),
	}
}

// CreateTestTransport answers the default catalogue with a plausible three-phase load.
func CreateTestTransport() *TestTransport {
	c := DefaultCatalogue()
	t := NewTestTransport()

	t.Respond(c.Lookup(PARAM_ID), WithTrailer([]byte{0x00, 0x00}))
	t.Respond(c.Lookup(PARAM_ADMIN), WithTrailer([]byte{0x00, 0x00}))
	// A+ = 123456 * 50 Wh, R+ = 4567 varh
	t.Respond(c.Lookup(PARAM_ENERGY), WithTrailer([]byte{
		0x00,
		0x01, 0x00, 0x40, 0xe2,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0xd7, 0x11,
		0x00, 0x00, 0x00, 0x00,
	}))
	t.Respond(c.Lookup(PARAM_VOLTAGE_L1), registerReply(23015))
	t.Respond(c.Lookup(PARAM_VOLTAGE_L2), registerReply(22980))
	t.Respond(c.Lookup(PARAM_VOLTAGE_L3), registerReply(23102))
	t.Respond(c.Lookup(PARAM_TOTAL_POWER_ACTIVE), registerReply(600))
	t.Respond(c.Lookup(PARAM_POWER_ACTIVE_L1), registerReply(2000))
	t.Respond(c.Lookup(PARAM_POWER_ACTIVE_L2), registerReply(2000))
	t.Respond(c.Lookup(PARAM_POWER_ACTIVE_L3), registerReply(2000))
	t.Respond(c.Lookup(PARAM_TOTAL_POWER_REACTIVE), registerReply(600))
	t.Respond(c.Lookup(PARAM_POWER_REACTIVE_L1), registerReply(200))
	t.Respond(c.Lookup(PARAM_POWER_REACTIVE_L2), registerReply(200))
	t.Respond(c.Lookup(PARAM_POWER_REACTIVE_L3), registerReply(200))
	t.Respond(c.Lookup(PARAM_TOTAL_POWER_SEEM), registerReply(6300))
	t.Respond(c.Lookup(PARAM_POWER_SEEM_L1), registerReply(2100))
	t.Respond(c.Lookup(PARAM_POWER_SEEM_L2), registerReply(2100))
	t.Respond(c.Lookup(PARAM_POWER_SEEM_L3), registerReply(2100))
	t.Respond(c.Lookup(PARAM_CURRENT_L1), registerReply(90))
	t.Respond(c.Lookup(PARAM_CURRENT_L2), registerReply(90))
	t.Respond(c.Lookup(PARAM_CURRENT_L3), registerReply(90))
	t.Respond(c.Lookup(PARAM_FREQUENCY), registerReply(5000))
	// cos f = 0.952
	t.Respond(c.Lookup(PARAM_COSF), WithTrailer([]byte{0x00, 0x00, 0xb8, 0x03}))
	return t
}

// WithTrailer appends the little-endian CRC16/MODBUS of body.
func WithTrailer(body []byte) []byte {
	out := make([]byte, len(body), len(body)+2)
	copy(out, body)
	return binary.LittleEndian.AppendUint16(out, crc16.Checksum(body, crcTable))
}

func registerReply(raw int16) []byte {
	body := []byte{0x00, 0x00, 0x00, 0x00}
	binary.LittleEndian.PutUint16(body[2:4], uint16(raw))
	return WithTrailer(body)
}

func (t *TestTransport) Respond(frame []byte, resp []byte) *TestTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responses[string(frame)] = append([]byte(nil), resp...)
	delete(t.failures, string(frame))
	return t
}

// Fail makes the read following frame return err.
func (t *TestTransport) Fail(frame []byte, err error) *TestTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[string(frame)] = err
	return t
}

// Silence makes the meter ignore frame.
func (t *TestTransport) Silence(frame []byte) *TestTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.responses, string(frame))
	delete(t.failures, string(frame))
	return t
}

func (t *TestTransport) Write(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.written = append(t.written, append([]byte(nil), frame...))
	t.pending = append([]byte(nil), t.responses[string(frame)]...)
	t.failure = t.failures[string(frame)]
	return nil
}

func (t *TestTransport) Read(max int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.failure; err != nil {
		t.failure = nil
		t.pending = nil
		return nil, err
	}
	resp := t.pending
	if len(resp) > max {
		resp = resp[:max]
	}
	t.pending = nil
	return resp, nil
}

func (t *TestTransport) Close() error {
	return nil
}

func (t *TestTransport) Written() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.written...)
}
