package clientmqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"dmxpro/internal/dmx"
	"dmxpro/internal/logger"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ErrStopped is returned for sequence commands received during shutdown.
var ErrStopped = errors.New("mqtt client stopped")

// ClientMQTT структура клиента MQTT.
type ClientMQTT struct {
	ctx       context.Context
	log       logger.Logger
	cfgClient MQTTConf
	client    mqtt.Client
	opts      *mqtt.ClientOptions
	out       Output
	seq       Sequencer
	seqMu     sync.Mutex
	stopped   bool
	wg        sync.WaitGroup
}

// MQTTClient is a convenience interface to use within this application.
type MQTTClient interface {
	Start(ctx context.Context) error
	Stop() error
}

// NewClient конструктор.
func NewClient(log logger.Logger, cfgClient MQTTConf, out Output, seq Sequencer) *ClientMQTT {
	if cfgClient.Schema == "" {
		cfgClient.Schema = "tcp"
	}
	return &ClientMQTT{
		log:       log,
		cfgClient: cfgClient,
		out:       out,
		seq:       seq,
	}
}

func (c *ClientMQTT) topic(name string) string {
	return fmt.Sprintf("%s/%s", c.cfgClient.Prefix, name)
}

func (c *ClientMQTT) Start(ctx context.Context) error {
	// TODO перенаправить в logger
	if c.log.GetLevel() == "debug" {
		mqtt.ERROR = log.New(os.Stdout, "[ERROR] ", 0)
		mqtt.CRITICAL = log.New(os.Stdout, "[CRIT] ", 0)
		mqtt.WARN = log.New(os.Stdout, "[WARN]  ", 0)
	}

	c.ctx = ctx

	c.opts = mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%s", c.cfgClient.Schema, c.cfgClient.Host, c.cfgClient.Port)).
		SetUsername(c.cfgClient.User).
		SetPassword(c.cfgClient.Password).
		SetDefaultPublishHandler(c.messageHandler).
		SetOnConnectHandler(c.connectHandler).
		SetConnectionLostHandler(c.connectLostHandler).
		SetClientID(c.cfgClient.ClientID).
		SetWill(c.topic(topicStatus), statusOffline, c.cfgClient.Qos, true).
		SetOrderMatters(true).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second)

	c.client = mqtt.NewClient(c.opts)

	token := c.client.Connect()
	select {
	case <-token.Done():
		if token.Error() != nil {
			return token.Error()
		}
	case <-c.ctx.Done():
		return errors.New("context canceled")
	}

	c.log.With(logger.Fields{"module": "mqtt"}).Infof("Status: %v", c.client.IsConnected())
	return nil
}

func (c *ClientMQTT) Stop() error {
	if c.client != nil && c.client.IsConnected() {
		token := c.client.Publish(c.topic(topicStatus), c.cfgClient.Qos, true, statusOffline)
		token.WaitTimeout(time.Second)
		c.client.Disconnect(500)
	}
	c.seqMu.Lock()
	c.stopped = true
	c.seqMu.Unlock()
	c.wg.Wait()
	return nil
}

// connectHandler подписывается заново после каждого переподключения.
func (c *ClientMQTT) connectHandler(client mqtt.Client) {
	c.log.With(logger.Fields{"module": "mqtt"}).Info("client connected to server")
	c.sub(client, c.topic(topicChannels))
	c.sub(client, c.topic(topicSequence))
	c.pub(client, c.topic(topicStatus), statusOnline)
}

func (c *ClientMQTT) connectLostHandler(_ mqtt.Client, err error) {
	c.log.With(logger.Fields{"module": "mqtt"}).Errorf("server connect lost: %v\n", err)
}

func (c *ClientMQTT) messageHandler(_ mqtt.Client, msg mqtt.Message) {
	c.log.With(logger.Fields{"module": "mqtt"}).Debugf("received message: %s from topic: %s", msg.Payload(), msg.Topic())

	var err error
	switch msg.Topic() {
	case c.topic(topicChannels):
		err = c.handleChannels(msg.Payload())
	case c.topic(topicSequence):
		err = c.handleSequence(msg.Payload())
	default:
		err = fmt.Errorf("unexpected topic %s", msg.Topic())
	}
	if err != nil {
		c.log.With(logger.Fields{"module": "mqtt"}).Errorf("message from %s rejected: %v", msg.Topic(), err)
	}
}

// handleChannels применяет все значения и отправляет один кадр под одной блокировкой кодера.
func (c *ClientMQTT) handleChannels(raw []byte) error {
	var data Payload
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("message could not be parsed (%s): %w", raw, err)
	}
	c.log.With(logger.Fields{"module": "mqtt"}).Debugf("message payload parsed. Result: %v", data)

	vals := make([]dmx.ChannelValue, len(data))
	for i, cmd := range data {
		vals[i] = dmx.ChannelValue{Channel: cmd.Channel, Value: cmd.Value}
	}
	return c.out.Apply(vals, true)
}

// handleSequence запускает дорожки в фоне; reset выполняется сразу.
func (c *ClientMQTT) handleSequence(raw []byte) error {
	var cmd SequenceCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return fmt.Errorf("message could not be parsed (%s): %w", raw, err)
	}

	var play func(ctx context.Context) error
	switch cmd.Action {
	case "reset":
		return c.seq.Reset()
	case "play":
		lane := cmd.Lane
		play = func(ctx context.Context) error { return c.seq.PlayLane(ctx, lane) }
	case "play-all":
		play = c.seq.PlayAll
	default:
		return fmt.Errorf("unknown action %q", cmd.Action)
	}

	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	c.seqMu.Lock()
	if c.stopped || ctx.Err() != nil {
		c.seqMu.Unlock()
		return ErrStopped
	}
	c.wg.Add(1)
	c.seqMu.Unlock()
	go func() {
		defer c.wg.Done()
		if err := play(ctx); err != nil && !errors.Is(err, context.Canceled) {
			c.log.With(logger.Fields{"module": "mqtt"}).Errorf("sequence %s: %v", cmd.Action, err)
		}
	}()
	return nil
}

func (c *ClientMQTT) sub(client mqtt.Client, topic string) {
	token := client.Subscribe(topic, c.cfgClient.Qos, nil)
	go func() {
		select {
		case <-c.ctx.Done():
			return
		case <-token.Done():
			if token.Error() != nil {
				c.log.With(logger.Fields{"module": "mqtt"}).Errorf("topic %s subscription error. %v\n", topic, token.Error())
				return
			}
		}
		c.log.With(logger.Fields{"module": "mqtt"}).Debugf("topic %s subscribed\n", topic)
	}()
}

func (c *ClientMQTT) pub(client mqtt.Client, topic, msg string) {
	token := client.Publish(topic, c.cfgClient.Qos, true, msg)
	go func() {
		select {
		case <-c.ctx.Done():
			return
		case <-token.Done():
			if token.Error() != nil {
				c.log.With(logger.Fields{"module": "mqtt"}).Errorf("error publish topic %s. %v\n", topic, token.Error())
			}
		}
	}()
}
