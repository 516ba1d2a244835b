package artnet

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"

	"dmxpro/internal/dmx"
	"dmxpro/internal/logger"
	"github.com/Haba1234/go-artnet/packet"
)

// maxPacketSize is larger than any Art-Net packet.
const maxPacketSize = 4096

// ArtNet receives ArtDMX packets for one universe and forwards them to the DMX output.
type ArtNet struct {
	logger   logger.Logger
	cfg      ArtConf
	out      Output
	conn     net.PacketConn
	universe uint16
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Receiver is a convenience interface to use within this application.
type Receiver interface {
	Start(ctx context.Context) error
	Stop()
}

// NewReceiver конструктор.
func NewReceiver(log logger.Logger, cfg ArtConf, out Output) *ArtNet {
	if cfg.Listen == "" {
		cfg.Listen = ":6454"
	}
	return &ArtNet{
		logger:   log,
		cfg:      cfg,
		out:      out,
		universe: cfg.Universe,
		done:     make(chan struct{}),
	}
}

// Start opens the UDP socket and starts the receive loop.
func (c *ArtNet) Start(ctx context.Context) error {
	addr, err := listenAddress(c.cfg.Listen, c.cfg.Network)
	if err != nil {
		return err
	}
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen art-net on %s: %w", addr, err)
	}
	c.conn = conn

	c.logger.With(logger.Fields{"module": "art-net"}).Infof("Listening on %s for universe %v", conn.LocalAddr(), c.universeAddress())

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		c.receive()
	}()
	go func() {
		defer c.wg.Done()
		select {
		case <-ctx.Done():
		case <-c.done:
		}
		_ = conn.Close()
	}()
	return nil
}

// Stop closes the socket and waits for the loop to exit.
func (c *ArtNet) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
	c.wg.Wait()
}

// Addr returns the local address of the socket.
func (c *ArtNet) Addr() net.Addr {
	if c.conn == nil {
		return nil
	}
	return c.conn.LocalAddr()
}

func (c *ArtNet) receive() {
	buf := make([]byte, maxPacketSize)
	for {
		n, from, err := c.conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			c.logger.With(logger.Fields{"module": "art-net"}).Errorf("read: %v", err)
			continue
		}
		if err := c.handlePacket(buf[:n]); err != nil {
			c.logger.With(logger.Fields{"module": "art-net"}).Debugf("packet from %v dropped: %v", from, err)
		}
	}
}

// handlePacket copies the DMX data of a matching ArtDMX packet into the output and sends it.
func (c *ArtNet) handlePacket(b []byte) error {
	p := packet.NewArtDMXPacket()
	if err := p.UnmarshalBinary(b); err != nil {
		return fmt.Errorf("invalid packet: %w", err)
	}

	if u := addressToUniverse(p.Net, p.SubUni); u != c.universe {
		c.logger.With(logger.Fields{"module": "art-net"}).Debugf("DMX. Universe %v ignored", u)
		return nil
	}

	length := int(p.Length)
	if length == 0 {
		return nil
	}
	if length > dmx.Channels {
		length = dmx.Channels
	}
	if err := c.out.SetRange(1, p.Data[:length]); err != nil {
		return err
	}
	return c.out.Send()
}

func (c *ArtNet) universeAddress() string {
	v := make([]uint8, 2)
	binary.BigEndian.PutUint16(v, c.universe)
	return fmt.Sprintf("%d:%d", v[0], v[1])
}

// addressToUniverse converts an art-net address to a dmx universe.
// universe: старший байт - Net, младший байт - SubUni.
func addressToUniverse(netAddr, subUni uint8) uint16 {
	return binary.BigEndian.Uint16([]byte{netAddr, subUni})
}
