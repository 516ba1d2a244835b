package artnet

import (
	"context"
	"net"
	"testing"
	"time"

	"dmxpro/internal/dmx"
	"dmxpro/internal/logger"
	"github.com/Haba1234/go-artnet/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopTransport struct{}

func (nopTransport) Write(p []byte) (int, error) { return len(p), nil }
func (nopTransport) Close() error                { return nil }

func dmxPacket(t *testing.T, netAddr, subUni uint8, data ...byte) []byte {
	t.Helper()
	p := packet.NewArtDMXPacket()
	p.Net = netAddr
	p.SubUni = subUni
	p.Length = uint16(len(data))
	copy(p.Data[:], data)
	b, err := p.MarshalBinary()
	require.NoError(t, err)
	return b
}

func channel(t *testing.T, enc *dmx.Encoder, ch int) byte {
	t.Helper()
	v, err := enc.Get(ch)
	require.NoError(t, err)
	return v
}

func TestAddressToUniverse(t *testing.T) {
	assert.Equal(t, uint16(0), addressToUniverse(0, 0))
	assert.Equal(t, uint16(3), addressToUniverse(0, 3))
	assert.Equal(t, uint16(0x0102), addressToUniverse(1, 2))

	c := NewReceiver(logger.Discard(), ArtConf{Universe: 0x0102}, nil)
	assert.Equal(t, "1:2", c.universeAddress())
	assert.Equal(t, ":6454", c.cfg.Listen)
}

func TestHandlePacket(t *testing.T) {
	enc := dmx.New(nopTransport{})
	defer enc.Close()
	c := NewReceiver(logger.Discard(), ArtConf{Universe: 3}, enc)

	require.NoError(t, c.handlePacket(dmxPacket(t, 0, 3, 10, 20, 30, 40)))
	assert.Equal(t, byte(10), channel(t, enc, 1))
	assert.Equal(t, byte(40), channel(t, enc, 4))

	require.NoError(t, c.handlePacket(dmxPacket(t, 0, 4, 99, 99)))
	assert.Equal(t, byte(10), channel(t, enc, 1), "other universe must be ignored")

	assert.Error(t, c.handlePacket([]byte("not an art-net packet")))
	assert.Equal(t, byte(10), channel(t, enc, 1))
}

func TestListenAddress(t *testing.T) {
	addr, err := listenAddress(":6454", "")
	require.NoError(t, err)
	assert.Equal(t, ":6454", addr)

	_, err = listenAddress(":6454", "not-a-cidr")
	assert.Error(t, err)

	_, err = listenAddress("6454", "10.0.0.0/8")
	assert.Error(t, err)

	_, err = FindArtNetIP("bad")
	assert.Error(t, err)
}

func TestReceiver(t *testing.T) {
	enc := dmx.New(nopTransport{})
	defer enc.Close()
	c := NewReceiver(logger.Discard(), ArtConf{Listen: "127.0.0.1:0"}, enc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx))
	defer c.Stop()

	conn, err := net.Dial("udp", c.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	b := dmxPacket(t, 0, 0, 1, 2, 3, 4)
	assert.Eventually(t, func() bool {
		_, _ = conn.Write(b)
		v, err := enc.Get(4)
		return err == nil && v == 4
	}, 5*time.Second, 20*time.Millisecond)
}

func TestReceiverStopsOnCancel(t *testing.T) {
	c := NewReceiver(logger.Discard(), ArtConf{Listen: "127.0.0.1:0"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Start(ctx))
	cancel()

	done := make(chan struct{})
	go func() {
		c.Stop()
		c.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("receiver did not stop")
	}
}
