// Package mqtt publishes trip snapshots to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rotblauer/tripd/geo/trip"
	"github.com/rotblauer/tripd/params"
)

// ErrPublishTimeout is returned when the broker does not acknowledge a publish in time.
var ErrPublishTimeout = errors.New("timed out waiting for broker")

// Publisher sends snapshots as JSON to <prefix>/snapshot.
type Publisher struct {
	config *params.MQTTConfig
	client MQTT.Client
	logger *slog.Logger
}

func NewPublisher(config *params.MQTTConfig) *Publisher {
	if config == nil {
		config = params.DefaultMQTTConfig()
	}
	opts := MQTT.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", config.Broker, config.Port))
	opts.SetClientID(config.ClientID)
	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(config.ConnectTimeout)

	p := &Publisher{
		config: config,
		logger: slog.With("sink", "mqtt", "broker", config.Broker),
	}
	opts.SetOnConnectHandler(func(MQTT.Client) {
		p.logger.Info("MQTT connection established")
	})
	opts.SetConnectionLostHandler(func(_ MQTT.Client, err error) {
		p.logger.Warn("MQTT connection lost", "error", err)
	})
	p.client = MQTT.NewClient(opts)
	return p
}

// Connect dials the broker, waiting at most the configured timeout.
func (p *Publisher) Connect() error {
	token := p.client.Connect()
	if !token.WaitTimeout(p.config.ConnectTimeout) {
		return fmt.Errorf("connect to MQTT broker %s:%d: timed out", p.config.Broker, p.config.Port)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to MQTT broker %s:%d: %w", p.config.Broker, p.config.Port, err)
	}
	return nil
}

func (p *Publisher) Topic() string {
	return p.config.TopicPrefix + "/snapshot"
}

func (p *Publisher) Publish(snap trip.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	token := p.client.Publish(p.Topic(), p.config.QoS, p.config.Retain, data)
	timeout := p.config.PublishTimeout
	if timeout <= 0 {
		timeout = params.DefaultMQTTConfig().PublishTimeout
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish to %s: %w", p.Topic(), ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.Topic(), err)
	}
	p.logger.Debug("Published snapshot", "topic", p.Topic(), "size", len(data))
	return nil
}

// Close disconnects, allowing a quarter second for in-flight messages.
func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

// ExportSnapshots publishes every snapshot on snaps until it is closed or ctx is done.
// Publish failures are logged and counted; the last one is returned.
func (p *Publisher) ExportSnapshots(ctx context.Context, snaps <-chan trip.Snapshot) error {
	var last error
	sent, failed := 0, 0
	defer func() {
		p.logger.Info("Published snapshots", "count", sent, "failed", failed)
	}()
	for {
		select {
		case <-ctx.Done():
			return last
		case snap, ok := <-snaps:
			if !ok {
				return last
			}
			if err := p.Publish(snap); err != nil {
				p.logger.Warn("Publish failed", "error", err)
				last = err
				failed++
				continue
			}
			sent++
		}
	}
}
