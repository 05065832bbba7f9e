package notify

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/statwatch-io/statwatch/internal/domain"
)

const publishTimeout = 5 * time.Second

// MQTTNotifier publishes every archived record to
// <prefix>/records/<kind>, JSON-encoded, for machine consumers of the live
// feed.
type MQTTNotifier struct {
	client      mqtt.Client
	topicPrefix string
	logger      *slog.Logger
}

func mqttClientID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return "statwatch_" + hex.EncodeToString(b)
}

// NewMQTTNotifier connects to the broker and returns the notifier. The
// client keeps reconnecting on its own after the initial handshake.
func NewMQTTNotifier(brokerURL, topicPrefix string, logger *slog.Logger) (*MQTTNotifier, error) {
	log := logger.With("component", "mqtt_notifier")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(mqttClientID())
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Info("connected to MQTT broker", "broker", brokerURL)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn("MQTT connection lost", "error", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &MQTTNotifier{
		client:      client,
		topicPrefix: topicPrefix,
		logger:      log,
	}, nil
}

// RecordArchived publishes the record at QoS 1.
func (n *MQTTNotifier) RecordArchived(ctx context.Context, rec *domain.Record) error {
	if !n.client.IsConnected() {
		return fmt.Errorf("mqtt broker not connected")
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record for mqtt: %w", err)
	}

	topic := fmt.Sprintf("%s/records/%s", n.topicPrefix, rec.Kind)
	token := n.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish to %s failed: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker, letting in-flight publishes drain.
func (n *MQTTNotifier) Close() {
	if n.client.IsConnected() {
		n.client.Disconnect(250)
	}
}
