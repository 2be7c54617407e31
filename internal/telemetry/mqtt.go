package telemetry

import (
	"fmt"
	"time"

	"controlling_fermenter/internal/models"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Config holds the broker connection settings.
type Config struct {
	Broker      string
	ClientID    string
	TopicPrefix string
}

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// MQTTPublisher publishes to an MQTT broker through paho.
type MQTTPublisher struct {
	client paho.Client
	prefix string
	now    func() time.Time
}

// NewMQTTPublisher connects to the broker. The status topic carries a
// retained last-will so subscribers see when the controller goes away.
func NewMQTTPublisher(cfg Config) (*MQTTPublisher, error) {
	statusTopic := Topic(cfg.TopicPrefix, TopicStatus)
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(statusTopic, `{"status":"OFFLINE"}`, 1, true)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connect to %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return &MQTTPublisher{client: client, prefix: cfg.TopicPrefix, now: time.Now}, nil
}

// PublishStatus sends the snapshot retained with QoS 1.
func (p *MQTTPublisher) PublishStatus(run models.Run) error {
	payload, err := FormatStatusPayload(run, p.now())
	if err != nil {
		return fmt.Errorf("format status payload: %w", err)
	}
	return p.publish(Topic(p.prefix, TopicStatus), 1, true, payload)
}

// PublishReadings sends the tick's readings with QoS 0.
func (p *MQTTPublisher) PublishReadings(readings []models.Reading) error {
	if len(readings) == 0 {
		return nil
	}
	payload, err := FormatReadingsPayload(readings)
	if err != nil {
		return fmt.Errorf("format readings payload: %w", err)
	}
	return p.publish(Topic(p.prefix, TopicReadings), 0, false, payload)
}

func (p *MQTTPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// IsConnected reports the broker connection state.
func (p *MQTTPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
