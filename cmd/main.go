package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"dmxpro/internal/artnet"
	"dmxpro/internal/clientmqtt"
	"dmxpro/internal/config"
	"dmxpro/internal/dmx"
	"dmxpro/internal/logger"
	"dmxpro/internal/serialport"
	"dmxpro/internal/show"
)

var (
	configFile  string
	playOnStart bool
)

func init() {
	flag.StringVar(&configFile, "config", "configs/conf.toml", "Path to configuration file")
	flag.BoolVar(&playOnStart, "play", false, "Play all lanes once after start")
}

func main() {
	flag.Parse()
	cfg, err := config.NewConfig(configFile)
	if err != nil {
		fmt.Printf("configuration file read error: %v", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Printf("failed to create a logger: %v", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	opener := serialport.NewOpener(ConvertConfigSerial(cfg.Serial))
	if err := run(ctx, log, cfg, opener, playOnStart); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// run serves until ctx is done. Background goroutines are joined before the encoder is closed.
func run(ctx context.Context, log *logger.Log, cfg *config.Config, opener dmx.Opener, play bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Пауза перед открытием порта, пока адаптер инициализируется.
	select {
	case <-time.After(cfg.Serial.OpenDelay.Duration):
	case <-ctx.Done():
		return nil
	}

	enc, err := dmx.Open(cfg.Serial.Port, opener)
	if err != nil {
		return fmt.Errorf("failed to open DMX USB Pro: %w", err)
	}
	defer func() {
		if err := enc.Close(); err != nil {
			log.With(logger.Fields{"module": "dmx"}).Errorf("close: %v", err)
		}
	}()
	log.With(logger.Fields{"module": "dmx"}).Infof("DMX USB Pro opened on %s", cfg.Serial.Port)

	// Начальный кадр: все каналы выключены.
	if err := enc.Send(); err != nil {
		return fmt.Errorf("failed to send the initial frame: %w", err)
	}

	player, err := show.NewPlayerFromConfig(log, enc, cfg.Show)
	if err != nil {
		return fmt.Errorf("invalid show configuration: %w", err)
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	if r := show.NewRefresher(log, enc, cfg.Refresh.Rate); r != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Run(ctx)
		}()
		log.With(logger.Fields{"module": "refresh"}).Debugf("refresh at %d Hz", cfg.Refresh.Rate)
	}

	var client *clientmqtt.ClientMQTT
	if cfg.MQTT.Enabled {
		client = clientmqtt.NewClient(log, ConvertConfigClientMQTT(cfg.MQTT), enc, player)
		if err := client.Start(ctx); err != nil {
			log.Error("failed to start MQTT service:", err.Error())
			cancel()
		}
	}

	var receiver *artnet.ArtNet
	if cfg.ArtNet.Enabled {
		receiver = artnet.NewReceiver(log, ConvertConfigArtNet(cfg.ArtNet), enc)
		if err := receiver.Start(ctx); err != nil {
			log.Error("failed to start art-net service:", err.Error())
			cancel()
		}
	}

	if play {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := player.PlayAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.With(logger.Fields{"module": "show"}).Errorf("main sequence: %v", err)
			}
		}()
	}

	<-ctx.Done()

	if client != nil {
		if err := client.Stop(); err != nil {
			log.Error("failed to stop MQTT service:", err.Error())
		}
	}
	if receiver != nil {
		receiver.Stop()
	}
	return nil
}

// ConvertConfigClientMQTT преобразует структуры.
func ConvertConfigClientMQTT(cfg config.MQTTConf) clientmqtt.MQTTConf {
	return clientmqtt.MQTTConf{
		ClientID: cfg.ClientID,
		Schema:   "tcp",
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		Qos:      cfg.Qos,
		Prefix:   cfg.Prefix,
	}
}

// ConvertConfigArtNet преобразует структуры.
func ConvertConfigArtNet(cfg config.ArtNetConf) artnet.ArtConf {
	return artnet.ArtConf{
		Listen:   cfg.Listen,
		Network:  cfg.Network,
		Universe: cfg.Universe,
	}
}

// ConvertConfigSerial преобразует структуры.
func ConvertConfigSerial(cfg config.SerialConf) serialport.Config {
	return serialport.Config{
		Baud:     cfg.Baud,
		DataBits: cfg.DataBits,
		StopBits: cfg.StopBits,
	}
}
