package mqtt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"smarthome/backend/services/telemetry-service/internal/models"
)

const (
	qosAtLeastOnce  = 1
	connectTimeout  = 10 * time.Second
	publishTimeout  = 5 * time.Second
	disconnectQuiet = 250
)

// Ingester accepts raw reading payloads.
type Ingester interface {
	IngestJSON(ctx context.Context, body io.Reader) (models.Reading, error)
}

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Options configures the bridge.
type Options struct {
	Broker        string
	ClientID      string
	ReadingsTopic string
	StateTopic    string
}

// Bridge feeds readings published by sensors over MQTT into the ingestion path and
// publishes each decision back for actuators.
type Bridge struct {
	opts     Options
	client   paho.Client
	pub      publisher
	ingester Ingester
	logger   *zap.Logger
	ctx      context.Context
}

// NewBridge builds the bridge; it connects in Run.
func NewBridge(opts Options, ingester Ingester, logger *zap.Logger) *Bridge {
	b := &Bridge{
		opts:     opts,
		ingester: ingester,
		logger:   logger,
		ctx:      context.Background(),
	}

	clientOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetOnConnectHandler(b.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn("mqtt connection lost", zap.Error(err))
		})
	b.client = paho.NewClient(clientOpts)
	b.pub = b.client
	return b
}

// Run connects to the broker and serves until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	b.ctx = ctx
	token := b.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt: connect to %s timed out", b.opts.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: connect: %w", err)
	}

	<-ctx.Done()
	b.client.Unsubscribe(b.opts.ReadingsTopic).WaitTimeout(publishTimeout)
	b.client.Disconnect(disconnectQuiet)
	b.logger.Info("mqtt bridge stopped")
	return nil
}

// onConnect (re)subscribes; paho calls it after every successful connect.
func (b *Bridge) onConnect(c paho.Client) {
	token := c.Subscribe(b.opts.ReadingsTopic, qosAtLeastOnce, b.onMessage)
	if token.WaitTimeout(connectTimeout) && token.Error() != nil {
		b.logger.Error("mqtt subscribe failed", zap.String("topic", b.opts.ReadingsTopic), zap.Error(token.Error()))
		return
	}
	b.logger.Info("mqtt bridge subscribed", zap.String("broker", b.opts.Broker), zap.String("topic", b.opts.ReadingsTopic))
}

func (b *Bridge) onMessage(_ paho.Client, msg paho.Message) {
	response, err := b.handle(b.ctx, msg.Payload())
	if err != nil {
		b.logger.Warn("mqtt reading rejected", zap.String("topic", msg.Topic()), zap.Error(err))
		return
	}
	if b.opts.StateTopic == "" {
		return
	}
	token := b.pub.Publish(b.opts.StateTopic, qosAtLeastOnce, true, response)
	if !token.WaitTimeout(publishTimeout) {
		b.logger.Warn("mqtt state publish timed out", zap.String("topic", b.opts.StateTopic))
		return
	}
	if err := token.Error(); err != nil {
		b.logger.Warn("mqtt state publish failed", zap.String("topic", b.opts.StateTopic), zap.Error(err))
	}
}

// handle ingests one payload and returns the encoded decision.
func (b *Bridge) handle(ctx context.Context, payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, errors.New("mqtt: empty payload")
	}
	reading, err := b.ingester.IngestJSON(ctx, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	return json.Marshal(models.Decision{DeviceState: reading.DeviceState})
}
