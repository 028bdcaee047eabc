package mercury236

import "fmt"

// Transport is a half-duplex byte channel to the meter.
// Read returns whatever arrived within the transport timeout; an empty slice with a
// nil error means nothing arrived.
type Transport interface {
	Write(frame []byte) error
	Read(max int) ([]byte, error)
}

// ConfigError reports invalid line settings. It is returned before any I/O.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// ConnectionError reports a failure to open the line.
type ConnectionError struct {
	Port string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to open serial port %s: %v", e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
