package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config структура конфигурации.
type Config struct {
	Logger  LogConf     // Logger - конфигурация регистратора.
	Serial  SerialConf  // Serial - порт DMX USB Pro.
	Refresh RefreshConf // Refresh - периодическая отправка кадра.
	Show    ShowConf    // Show - световые дорожки.
	MQTT    MQTTConf    // MQTT - конфигурация MQTT клиента.
	ArtNet  ArtNetConf  // ArtNet - приём Art-Net.
}

// LogConf структура конфигурации.
type LogConf struct {
	Level  string `toml:"log-level"`  // Level - уровень логирования.
	Format string `toml:"log-format"` // Format - text или json.
}

// SerialConf структура конфигурации.
type SerialConf struct {
	Port      string   `toml:"port"`       // Port - имя порта (COM3, /dev/ttyUSB0).
	Baud      int      `toml:"baud"`       // Baud - скорость порта.
	DataBits  int      `toml:"data-bits"`  // DataBits - биты данных.
	StopBits  int      `toml:"stop-bits"`  // StopBits - стоповые биты.
	OpenDelay Duration `toml:"open-delay"` // OpenDelay - пауза перед открытием порта.
}

// RefreshConf структура конфигурации.
type RefreshConf struct {
	Rate int `toml:"rate"` // Rate - кадров в секунду, 0 - выключено.
}

// ShowConf структура конфигурации.
type ShowConf struct {
	FirstChannel int        `toml:"first-channel"` // FirstChannel - канал первого прибора.
	Lights       int        `toml:"lights"`        // Lights - количество приборов.
	Width        int        `toml:"width"`         // Width - каналов на прибор.
	LaneCount    int        `toml:"lanes"`         // LaneCount - количество дорожек.
	Opacity      []int      `toml:"opacity"`       // Opacity - шкала яркости.
	Step         Duration   `toml:"step"`          // Step - время на прибор.
	Hold         Duration   `toml:"hold"`          // Hold - удержание последнего прибора.
	Tail         Duration   `toml:"tail"`          // Tail - пауза после дорожки.
	Lane         []LaneConf `toml:"lane"`          // Lane - явная таблица дорожек.
}

// LaneConf структура конфигурации.
type LaneConf struct {
	Channels []int `toml:"channels"` // Channels - стартовые каналы приборов в порядке воспроизведения.
}

// MQTTConf структура конфигурации.
type MQTTConf struct {
	Enabled  bool   `toml:"enabled"`  // Enabled - включить клиент.
	ClientID string `toml:"clientID"` // ClientID - имя клиента.
	Host     string `toml:"server"`   // Host - адрес MQTT сервера.
	Port     string `toml:"port"`     // Port - порт MQTT сервера.
	User     string `toml:"user"`     // User - логин для подключения к MQTT серверу.
	Password string `toml:"password"` // Password - пароль для подключения к MQTT серверу.
	Qos      byte   `toml:"qos"`      // Qos - качество обслуживания.
	Prefix   string `toml:"prefix"`   // Prefix - корень топиков.
}

// ArtNetConf структура конфигурации.
type ArtNetConf struct {
	Enabled  bool   `toml:"enabled"`  // Enabled - включить приём.
	Listen   string `toml:"listen"`   // Listen - адрес UDP.
	Network  string `toml:"network"`  // Network - CIDR сети Art-Net для выбора интерфейса.
	Universe uint16 `toml:"universe"` // Universe - старший байт Net, младший SubUni.
}

// Duration is a time.Duration read from a string such as "600ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// NewConfig конструктор.
func NewConfig(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Default returns the configuration of the original three-lane rig.
func Default() *Config {
	return &Config{
		Logger: LogConf{Level: "info", Format: "text"},
		Serial: SerialConf{
			Port:      "COM3",
			Baud:      57600,
			DataBits:  8,
			StopBits:  1,
			OpenDelay: Duration{200 * time.Millisecond},
		},
		Refresh: RefreshConf{Rate: 44},
		Show: ShowConf{
			FirstChannel: 1,
			Lights:       15,
			Width:        3,
			LaneCount:    3,
			Opacity:      []int{1, 5, 20, 50, 255},
			Step:         Duration{600 * time.Millisecond},
			Hold:         Duration{3 * time.Second},
			Tail:         Duration{time.Second},
		},
		MQTT: MQTTConf{
			ClientID: "dmxpro",
			Host:     "localhost",
			Port:     "1883",
			Prefix:   "dmxpro",
		},
		ArtNet: ArtNetConf{
			Listen: ":6454",
		},
	}
}
