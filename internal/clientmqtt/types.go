package clientmqtt

import (
	"context"

	"dmxpro/internal/dmx"
)

type MQTTConf struct {
	ClientID string // ClientID - уникальное имя клиента для брокеров.
	Schema   string // Schema - тип подключения.
	Host     string // Host - адрес MQTT сервера.
	Port     string // Port - порт MQTT сервера.
	User     string // User - логин для подключения к MQTT серверу.
	Password string // Password - пароль для подключения к MQTT серверу.
	Qos      byte   // Qos - качество обслуживания.
	Prefix   string // Prefix - корень топиков.
}

// Output is the part of the DMX encoder driven by MQTT commands.
type Output interface {
	Apply(vals []dmx.ChannelValue, send bool) error
}

// Sequencer plays light sequences.
type Sequencer interface {
	PlayLane(ctx context.Context, n int) error
	PlayAll(ctx context.Context) error
	Reset() error
}

type DMXCommand struct {
	Channel int   `json:"channel"` // Channel is the channel a command can talk to (1-512).
	Value   uint8 `json:"value"`   // Value is the value a DMX channel can represent (0-255).
}

type Payload []DMXCommand

// SequenceCommand управляет световыми дорожками.
type SequenceCommand struct {
	Action string `json:"action"` // Action - play, play-all или reset.
	Lane   int    `json:"lane"`   // Lane - номер дорожки для play.
}

const (
	topicChannels = "channels"
	topicSequence = "sequence"
	topicStatus   = "status"

	statusOnline  = "online"
	statusOffline = "offline"
)
