package messaging

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	config "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Config"
	logger "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Logger"
	fldmodels "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models"
)

const (
	alertQoS    byte = 1
	snapshotQoS byte = 0

	connectWait = 10 * time.Second
)

// ErrNotConnected is returned while the broker connection is down
var ErrNotConnected = errors.New("mqtt client not connected")

// publishClient is the subset of mqtt.Client the publisher uses
type publishClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// Publisher fans alert events and broadcast snapshots out to an MQTT broker
type Publisher struct {
	client publishClient
	prefix string
	logger *logger.Logger
}

// Connect dials the broker described by cfg. Reconnects are handled by paho.
func Connect(cfg *config.Config, log *logger.Logger) (*Publisher, error) {
	log = log.WithComponent("mqtt-publisher")

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.GetMQTTBrokerURL()).
		SetClientID(cfg.MQTT.ClientID).
		SetKeepAlive(cfg.MQTT.KeepAlive).
		SetPingTimeout(cfg.MQTT.PingTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetCleanSession(true)

	if cfg.MQTT.BrokerUser != "" {
		opts.SetUsername(cfg.MQTT.BrokerUser)
		opts.SetPassword(cfg.MQTT.BrokerPass)
	}

	if cfg.MQTT.UseTLS {
		tlsCfg, err := tlsConfig(cfg.MQTT.CACertPath)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Logger.Warn().Err(err).Msg("MQTT connection lost")
	}
	opts.OnConnect = func(_ mqtt.Client) {
		log.Logger.Info().Str("broker", cfg.GetMQTTBrokerURL()).Msg("MQTT connected")
	}

	client := mqtt.NewClient(opts)
	tk := client.Connect()
	if !tk.WaitTimeout(connectWait) {
		// SetConnectRetry keeps trying in the background
		log.Logger.Warn().Msg("MQTT broker not reachable yet, retrying in background")
	} else if tk.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", tk.Error())
	}

	return newPublisher(client, cfg.MQTT.TopicPrefix, log), nil
}

func newPublisher(client publishClient, prefix string, log *logger.Logger) *Publisher {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "flood"
	}
	return &Publisher{client: client, prefix: prefix, logger: log}
}

func (p *Publisher) IsConnected() bool {
	return p.client != nil && p.client.IsConnected()
}

func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(500)
	}
}

// AlertTopic is <prefix>/alerts/<channel>
func (p *Publisher) AlertTopic(channelID string) string {
	if channelID == "" {
		channelID = "unknown"
	}
	return fmt.Sprintf("%s/alerts/%s", p.prefix, channelID)
}

func (p *Publisher) SnapshotTopic() string {
	return p.prefix + "/snapshots"
}

// PublishAlert sends one alert event at QoS 1
func (p *Publisher) PublishAlert(ctx context.Context, event fldmodels.AlertEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal alert event: %w", err)
	}
	return p.publish(ctx, p.AlertTopic(event.ChannelID), alertQoS, false, payload)
}

// PublishSnapshot sends the broadcast snapshot as a retained message so new
// subscribers immediately see the latest state.
func (p *Publisher) PublishSnapshot(ctx context.Context, devices []fldmodels.DeviceSnapshot) error {
	if devices == nil {
		devices = []fldmodels.DeviceSnapshot{}
	}
	payload, err := json.Marshal(devices)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return p.publish(ctx, p.SnapshotTopic(), snapshotQoS, true, payload)
}

func (p *Publisher) publish(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error {
	if !p.IsConnected() {
		return ErrNotConnected
	}
	token := p.client.Publish(topic, qos, retained, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish to %s: %w", topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func tlsConfig(caFile string) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if caFile == "" {
		return cfg, nil
	}
	ca, err := os.ReadFile(caFile)
	if err != nil {
		return nil, err
	}
	cp := x509.NewCertPool()
	if !cp.AppendCertsFromPEM(ca) {
		return nil, fmt.Errorf("bad CA file")
	}
	cfg.RootCAs = cp
	return cfg, nil
}
