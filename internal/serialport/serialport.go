// Package serialport binds the DMX encoder to a serial device (Enttec DMX USB Pro virtual COM port).
package serialport

import (
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"
)

// Config describes the line settings of the port.
type Config struct {
	Baud     int // Baud - скорость порта; USB Pro её игнорирует.
	DataBits int // DataBits - биты данных.
	StopBits int // StopBits - стоповые биты (1 или 2).
}

// DefaultConfig returns 57600 8N1.
func DefaultConfig() Config {
	return Config{Baud: 57600, DataBits: 8, StopBits: 1}
}

func (c Config) mode() (*serial.Mode, error) {
	m := &serial.Mode{
		BaudRate: c.Baud,
		DataBits: c.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	switch c.StopBits {
	case 0, 1:
	case 2:
		m.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("serial: unsupported stop bits %d", c.StopBits)
	}
	if m.BaudRate == 0 {
		m.BaudRate = DefaultConfig().Baud
	}
	if m.DataBits == 0 {
		m.DataBits = DefaultConfig().DataBits
	}
	return m, nil
}

// Port is an open serial connection used for raw byte writes.
type Port struct {
	name string
	port serial.Port
	once sync.Once
	err  error
}

// Open opens the named port. name is the plain logical name ("COM12", "/dev/ttyUSB0").
func Open(name string, cfg Config) (*Port, error) {
	mode, err := cfg.mode()
	if err != nil {
		return nil, err
	}
	p, err := serial.Open(portName(name), mode)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", name, err)
	}
	return &Port{name: name, port: p}, nil
}

// NewOpener returns an opener for dmx.Open.
func NewOpener(cfg Config) func(name string) (io.WriteCloser, error) {
	return func(name string) (io.WriteCloser, error) {
		p, err := Open(name, cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// Write writes b and waits until the output buffer is drained.
func (p *Port) Write(b []byte) (int, error) {
	n, err := p.port.Write(b)
	if err != nil {
		return n, fmt.Errorf("serial: write %s: %w", p.name, err)
	}
	if err := p.port.Drain(); err != nil {
		return n, fmt.Errorf("serial: drain %s: %w", p.name, err)
	}
	return n, nil
}

// Close closes the port. Subsequent calls return the result of the first one.
func (p *Port) Close() error {
	p.once.Do(func() {
		p.err = p.port.Close()
	})
	return p.err
}
