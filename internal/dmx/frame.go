package dmx

import (
	"fmt"
)

const (
	// Channels is the number of DMX channels in one universe.
	Channels = 512
	// FrameSize is the length of one USB Pro "send DMX" message: 512 channels + 6 bytes overhead.
	FrameSize = Channels + 6
	// ChannelOffset is the distance between a channel number and its index in the frame.
	ChannelOffset = 4
)

// USB Pro message framing.
const (
	startOfMessage = 0x7E // Enttec start of message delimiter.
	labelSendDMX   = 0x06 // Instructs the USB Pro to send DMX data.
	lengthLSB      = 0x01 // Data length, low byte.
	lengthMSB      = 0x02 // Data length, high byte.
	startCode      = 0x00 // DMX start code.
	endOfMessage   = 0xE7 // Enttec end of message delimiter.
)

// Frame is one complete USB Pro message.
//
//	Index   Description
//	0       0x7E start of message
//	1       0x06 send DMX label
//	2       0x01 data length LSB
//	3       0x02 data length MSB
//	4       0x00 DMX start code
//	5-516   channel 1..512
//	517     0xE7 end of message
type Frame [FrameSize]byte

// NewFrame returns a frame with a zeroed payload and the framing bytes set.
func NewFrame() Frame {
	var f Frame
	f[0] = startOfMessage
	f[1] = labelSendDMX
	f[2] = lengthLSB
	f[3] = lengthMSB
	f[4] = startCode
	f[FrameSize-1] = endOfMessage
	return f
}

// index translates a 1-based channel into a frame index.
func index(ch int) (int, error) {
	if ch < 1 || ch > Channels {
		return 0, fmt.Errorf("%w: channel %d", ErrOutOfRange, ch)
	}
	return ch + ChannelOffset, nil
}

// Channel returns the value of channel ch (1..512).
func (f *Frame) Channel(ch int) (byte, error) {
	i, err := index(ch)
	if err != nil {
		return 0, err
	}
	return f[i], nil
}

// SetChannel stores v in channel ch (1..512).
func (f *Frame) SetChannel(ch int, v byte) error {
	i, err := index(ch)
	if err != nil {
		return err
	}
	f[i] = v
	return nil
}

// SetChannels copies vals into consecutive channels starting at start.
// Nothing is written unless the whole range fits.
func (f *Frame) SetChannels(start int, vals []byte) error {
	if len(vals) == 0 {
		return nil
	}
	first, err := index(start)
	if err != nil {
		return err
	}
	if _, err := index(start + len(vals) - 1); err != nil {
		return err
	}
	copy(f[first:], vals)
	return nil
}

// ChannelValue is a value for one channel (1..512).
type ChannelValue struct {
	Channel int
	Value   byte
}

// SetValues writes every value in vals. Nothing is written unless all channels are valid.
func (f *Frame) SetValues(vals []ChannelValue) error {
	for _, cv := range vals {
		if _, err := index(cv.Channel); err != nil {
			return err
		}
	}
	for _, cv := range vals {
		f[cv.Channel+ChannelOffset] = cv.Value
	}
	return nil
}

// payload returns the 512 channel bytes.
func (f *Frame) payload() []byte {
	return f[ChannelOffset+1 : ChannelOffset+1+Channels]
}
