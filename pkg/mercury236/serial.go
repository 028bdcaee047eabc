package mercury236

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goburrow/serial"
)

const (
	PARITY_NONE = "N"
	PARITY_EVEN = "E"
	PARITY_ODD  = "O"
)

type SerialConfig struct {
	Port     string
	BaudRate int
	Parity   string
	DataBits int
	StopBits int
	Timeout  time.Duration
}

// DefaultSerialConfig mirrors the meter's factory line settings.
func DefaultSerialConfig() SerialConfig {
	return SerialConfig{
		Port:     "/dev/ttyUSB0",
		BaudRate: 9600,
		Parity:   PARITY_NONE,
		DataBits: 8,
		StopBits: 1,
		Timeout:  1 * time.Second,
	}
}

// Validate normalizes parity and checks the line settings.
func (c *SerialConfig) Validate() error {
	if c.Port == "" {
		return &ConfigError{Field: "port", Value: c.Port, Reason: "must not be empty"}
	}
	if c.BaudRate <= 0 {
		return &ConfigError{Field: "baud rate", Value: c.BaudRate, Reason: "must be > 0"}
	}
	parity, err := ParseParity(c.Parity)
	if err != nil {
		return err
	}
	c.Parity = parity
	if c.DataBits < 5 || c.DataBits > 8 {
		return &ConfigError{Field: "data bits", Value: c.DataBits, Reason: "must be 5, 6, 7, or 8"}
	}
	if c.StopBits != 1 && c.StopBits != 2 {
		return &ConfigError{Field: "stop bits", Value: c.StopBits, Reason: "must be 1 or 2"}
	}
	if c.Timeout <= 0 {
		return &ConfigError{Field: "timeout", Value: c.Timeout, Reason: "must be > 0"}
	}
	return nil
}

// ParseParity accepts N, E or O in any case. Empty means none.
func ParseParity(parity string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(parity)) {
	case "", PARITY_NONE:
		return PARITY_NONE, nil
	case PARITY_EVEN:
		return PARITY_EVEN, nil
	case PARITY_ODD:
		return PARITY_ODD, nil
	}
	return "", &ConfigError{Field: "parity", Value: parity, Reason: "must be N, E or O"}
}

// SerialTransport is a Transport over a local serial port.
type SerialTransport struct {
	mu   sync.Mutex
	port serial.Port
	name string
}

func OpenSerial(cfg SerialConfig) (*SerialTransport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	port, err := serial.Open(&serial.Config{
		Address:  cfg.Port,
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		StopBits: cfg.StopBits,
		Parity:   cfg.Parity,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, &ConnectionError{Port: cfg.Port, Err: err}
	}
	return &SerialTransport{port: port, name: cfg.Port}, nil
}

func (t *SerialTransport) Write(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return fmt.Errorf("serial %s: port closed", t.name)
	}
	_, err := t.port.Write(frame)
	if err != nil {
		return fmt.Errorf("serial %s: write: %w", t.name, err)
	}
	return nil
}

func (t *SerialTransport) Read(max int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return nil, fmt.Errorf("serial %s: port closed", t.name)
	}
	buf := make([]byte, max)
	n, err := t.port.Read(buf)
	if err != nil {
		if errors.Is(err, serial.ErrTimeout) {
			return buf[:0], nil
		}
		return nil, fmt.Errorf("serial %s: read: %w", t.name, err)
	}
	return buf[:n], nil
}

func (t *SerialTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	return err
}
