package dmx

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

var (
	// ErrOutOfRange is returned for channel numbers outside 1..512.
	ErrOutOfRange = errors.New("dmx: channel out of range")
	// ErrTransportUnavailable is returned when the transport cannot be opened.
	ErrTransportUnavailable = errors.New("dmx: transport unavailable")
	// ErrTransmitFailure is returned when a frame could not be written completely.
	ErrTransmitFailure = errors.New("dmx: transmit failure")
	// ErrTransportClosed is returned by any operation after Close.
	ErrTransportClosed = errors.New("dmx: transport closed")
)

// Opener opens the transport identified by port.
type Opener func(port string) (io.WriteCloser, error)

// Encoder keeps the state of one DMX universe and writes it to a USB Pro interface.
// It is safe for concurrent use.
type Encoder struct {
	mu        sync.Mutex
	frame     Frame
	transport io.WriteCloser
	closed    bool
}

// Open opens port with opener and returns an encoder that owns the connection.
// The caller must Close the encoder.
func Open(port string, opener Opener) (*Encoder, error) {
	t, err := opener(port)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTransportUnavailable, port, err)
	}
	if t == nil {
		return nil, fmt.Errorf("%w: %s: no transport", ErrTransportUnavailable, port)
	}
	return New(t), nil
}

// New returns an encoder writing to an already open transport.
func New(t io.WriteCloser) *Encoder {
	return &Encoder{
		frame:     NewFrame(),
		transport: t,
	}
}

// Get returns the buffered value of channel ch (1..512).
func (e *Encoder) Get(ch int) (byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	v, err := e.frame.Channel(ch)
	if err != nil {
		return 0, err
	}
	if e.closed {
		return 0, ErrTransportClosed
	}
	return v, nil
}

// Set buffers v for channel ch (1..512). Nothing is transmitted until Send.
func (e *Encoder) Set(ch int, v byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := index(ch); err != nil {
		return err
	}
	if e.closed {
		return ErrTransportClosed
	}
	return e.frame.SetChannel(ch, v)
}

// SetRange buffers vals for consecutive channels starting at start.
func (e *Encoder) SetRange(start int, vals []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrTransportClosed
	}
	return e.frame.SetChannels(start, vals)
}

// Apply writes vals and, if send is set, transmits the frame, all under one lock,
// so a concurrent Send never sees part of the batch.
func (e *Encoder) Apply(vals []ChannelValue, send bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrTransportClosed
	}
	if err := e.frame.SetValues(vals); err != nil {
		return err
	}
	if !send {
		return nil
	}
	return e.send()
}

// Send writes the whole frame to the transport in a single call.
// On failure the buffer is kept as is, so Send may be retried.
func (e *Encoder) Send() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrTransportClosed
	}
	return e.send()
}

func (e *Encoder) send() error {
	n, err := e.transport.Write(e.frame[:])
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransmitFailure, err)
	}
	if n != FrameSize {
		return fmt.Errorf("%w: wrote %d of %d bytes: %w", ErrTransmitFailure, n, FrameSize, io.ErrShortWrite)
	}
	return nil
}

// Frame returns a copy of the raw frame.
func (e *Encoder) Frame() Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frame
}

// Close releases the transport. Only the first call closes it.
func (e *Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	return e.transport.Close()
}
