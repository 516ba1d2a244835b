package clientmqtt

import (
	"context"
	"sync"
	"testing"
	"time"

	"dmxpro/internal/dmx"
	"dmxpro/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type nopTransport struct {
	mu     sync.Mutex
	frames [][]byte
}

func (t *nopTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frames = append(t.frames, append([]byte(nil), p...))
	return len(p), nil
}

func (t *nopTransport) Close() error { return nil }

type fakeSequencer struct {
	mu     sync.Mutex
	lanes  []int
	all    int
	resets int
	done   chan struct{}
}

func (s *fakeSequencer) PlayLane(_ context.Context, n int) error {
	s.mu.Lock()
	s.lanes = append(s.lanes, n)
	s.mu.Unlock()
	s.done <- struct{}{}
	return nil
}

func (s *fakeSequencer) PlayAll(context.Context) error {
	s.mu.Lock()
	s.all++
	s.mu.Unlock()
	s.done <- struct{}{}
	return nil
}

func (s *fakeSequencer) Reset() error {
	s.resets++
	return nil
}

func newTestClient(t *testing.T) (*ClientMQTT, *dmx.Encoder, *nopTransport, *fakeSequencer) {
	t.Helper()
	tr := &nopTransport{}
	enc := dmx.New(tr)
	t.Cleanup(func() { _ = enc.Close() })
	seq := &fakeSequencer{done: make(chan struct{}, 4)}
	c := NewClient(logger.Discard(), MQTTConf{Prefix: "dmxpro"}, enc, seq)
	c.ctx = context.Background()
	return c, enc, tr, seq
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(logger.Discard(), MQTTConf{Prefix: "stage"}, nil, nil)
	assert.Equal(t, "tcp", c.cfgClient.Schema)
	assert.Equal(t, "stage/channels", c.topic(topicChannels))
}

func TestHandleChannels(t *testing.T) {
	c, enc, tr, _ := newTestClient(t)

	c.messageHandler(nil, fakeMessage{
		topic:   "dmxpro/channels",
		payload: []byte(`[{"channel":1,"value":255},{"channel":512,"value":9}]`),
	})

	require.Len(t, tr.frames, 1)
	assert.Equal(t, byte(255), tr.frames[0][5])
	assert.Equal(t, byte(9), tr.frames[0][516])
	v, err := enc.Get(512)
	require.NoError(t, err)
	assert.Equal(t, byte(9), v)
}

func TestHandleChannelsRejected(t *testing.T) {
	c, enc, tr, _ := newTestClient(t)

	err := c.handleChannels([]byte(`[{"channel":1,"value":255},{"channel":513,"value":1}]`))
	assert.ErrorIs(t, err, dmx.ErrOutOfRange)
	v, err := enc.Get(1)
	require.NoError(t, err)
	assert.Equal(t, byte(0), v, "rejected message must not be applied")

	assert.Error(t, c.handleChannels([]byte(`not json`)))
	assert.Empty(t, tr.frames)
}

func TestHandleChannelsClosed(t *testing.T) {
	c, enc, _, _ := newTestClient(t)
	require.NoError(t, enc.Close())

	err := c.handleChannels([]byte(`[{"channel":1,"value":1}]`))
	assert.ErrorIs(t, err, dmx.ErrTransportClosed)
}

func TestHandleSequence(t *testing.T) {
	c, _, _, seq := newTestClient(t)

	require.NoError(t, c.handleSequence([]byte(`{"action":"reset"}`)))
	assert.Equal(t, 1, seq.resets)

	c.messageHandler(nil, fakeMessage{topic: "dmxpro/sequence", payload: []byte(`{"action":"play","lane":2}`)})
	require.NoError(t, c.handleSequence([]byte(`{"action":"play-all"}`)))

	for i := 0; i < 2; i++ {
		select {
		case <-seq.done:
		case <-time.After(5 * time.Second):
			t.Fatal("sequence did not start")
		}
	}
	c.wg.Wait()
	assert.Equal(t, []int{2}, seq.lanes)
	assert.Equal(t, 1, seq.all)

	assert.Error(t, c.handleSequence([]byte(`{"action":"dance"}`)))
	assert.Error(t, c.handleSequence([]byte(`{`)))
}

func TestMessageHandlerUnknownTopic(t *testing.T) {
	c, _, tr, seq := newTestClient(t)

	c.messageHandler(nil, fakeMessage{topic: "other/channels", payload: []byte(`[{"channel":1,"value":1}]`)})
	assert.Empty(t, tr.frames)
	assert.Zero(t, seq.resets)
}

func TestStopWithoutStart(t *testing.T) {
	c := NewClient(logger.Discard(), MQTTConf{}, nil, nil)
	assert.NoError(t, c.Stop())
}

func TestHandleChannelsAtomicWithRefresh(t *testing.T) {
	c, enc, tr, _ := newTestClient(t)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				assert.NoError(t, enc.Send())
			}
		}
	}()

	on := []byte(`[{"channel":1,"value":255},{"channel":2,"value":255},{"channel":3,"value":255}]`)
	off := []byte(`[{"channel":1,"value":0},{"channel":2,"value":0},{"channel":3,"value":0}]`)
	for i := 0; i < 1000; i++ {
		msg := on
		if i%2 == 1 {
			msg = off
		}
		require.NoError(t, c.handleChannels(msg))
	}
	close(stop)
	<-done

	tr.mu.Lock()
	defer tr.mu.Unlock()
	for i, f := range tr.frames {
		require.True(t, f[5] == f[6] && f[6] == f[7], "frame %d carries a partial update: % x", i, f[5:8])
	}
}

func TestHandleSequenceAfterStop(t *testing.T) {
	c, _, _, seq := newTestClient(t)
	require.NoError(t, c.Stop())

	assert.ErrorIs(t, c.handleSequence([]byte(`{"action":"play-all"}`)), ErrStopped)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c2, _, _, _ := newTestClient(t)
	c2.ctx = ctx
	assert.ErrorIs(t, c2.handleSequence([]byte(`{"action":"play","lane":1}`)), ErrStopped)
	assert.Zero(t, seq.all)
}
