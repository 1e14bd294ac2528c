package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"poseai/internal/config"
)

// MQTTPublisher broadcasts live results to <prefix>/<session>/result.
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
	qos    byte
}

func NewMQTTPublisher(cfg config.MQTTConfig) (*MQTTPublisher, error) {
	if cfg.Broker == "" {
		return nil, errors.New("MQTT_BROKER not set")
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			slog.Warn("MQTT connection lost", "error", err)
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(15 * time.Second) {
		return nil, fmt.Errorf("connect to %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}
	slog.Info("Connected to MQTT broker", "broker", cfg.Broker)
	return newMQTTPublisher(client, cfg.TopicPrefix, byte(cfg.QoS)), nil
}

func newMQTTPublisher(client mqtt.Client, prefix string, qos byte) *MQTTPublisher {
	if qos > 2 {
		qos = 0
	}
	return &MQTTPublisher{client: client, prefix: prefix, qos: qos}
}

// Topic returns the result topic of a session.
func (p *MQTTPublisher) Topic(sessionID string) string {
	return p.prefix + "/" + sessionID + "/result"
}

func (p *MQTTPublisher) Publish(ctx context.Context, u *Update) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode live result: %w", err)
	}
	token := p.client.Publish(p.Topic(u.SessionID), p.qos, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
