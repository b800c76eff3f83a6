package devices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	connectTimeout    = 10 * time.Second
	keepAlive         = 60 * time.Second
	pingTimeout       = 10 * time.Second
	maxReconnect      = 2 * time.Minute
	disconnectQuiesce = 250 // milliseconds
	qos               = 1
)

// ErrNotConnected is returned when a command is sent while the broker is
// unreachable.
var ErrNotConnected = errors.New("devices: not connected to broker")

// BridgeOptions configures the MQTT connection.
type BridgeOptions struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// StateTopic is the wildcard subscription for entity state messages.
func StateTopic(prefix string) string {
	return prefix + "/state/+"
}

// CommandTopic is where a service call for domain is published.
func CommandTopic(prefix, domain, service string) string {
	return fmt.Sprintf("%s/command/%s/%s", prefix, domain, service)
}

// Bridge keeps a Registry in sync with the state topics and publishes
// service calls as commands.
type Bridge struct {
	client   pahomqtt.Client
	registry *Registry
	prefix   string
	logger   *zap.Logger

	onChange func(entityID string)
	mu       sync.RWMutex
}

// NewBridge prepares a bridge. Nothing is sent until Connect.
func NewBridge(opts BridgeOptions, registry *Registry, logger *zap.Logger) *Bridge {
	b := &Bridge{
		registry: registry,
		prefix:   opts.TopicPrefix,
		logger:   logger,
	}

	clientOpts := pahomqtt.NewClientOptions()
	clientOpts.AddBroker(opts.Broker)
	clientOpts.SetClientID(opts.ClientID)
	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
		clientOpts.SetPassword(opts.Password)
	}
	clientOpts.SetCleanSession(true)
	clientOpts.SetAutoReconnect(true)
	clientOpts.SetConnectRetry(true)
	clientOpts.SetMaxReconnectInterval(maxReconnect)
	clientOpts.SetConnectTimeout(connectTimeout)
	clientOpts.SetKeepAlive(keepAlive)
	clientOpts.SetPingTimeout(pingTimeout)
	clientOpts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		logger.Warn("mqtt connection lost", zap.Error(err))
	})
	// Subscriptions do not survive a clean session, so every (re)connect
	// subscribes again.
	clientOpts.SetOnConnectHandler(func(c pahomqtt.Client) {
		topic := StateTopic(b.prefix)
		if token := c.Subscribe(topic, qos, b.handleMessage); token.Wait() && token.Error() != nil {
			logger.Error("failed to subscribe", zap.String("topic", topic), zap.Error(token.Error()))
			return
		}
		logger.Info("mqtt connected", zap.String("topic", topic))
	})

	b.client = pahomqtt.NewClient(clientOpts)
	return b
}

// OnChange registers the callback run for every entity whose state
// changed. It runs on the MQTT delivery goroutine and must not block.
func (b *Bridge) OnChange(fn func(entityID string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

// Connect opens the broker connection.
func (b *Bridge) Connect(ctx context.Context) error {
	if err := wait(ctx, b.client.Connect()); err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (b *Bridge) Close() {
	b.client.Disconnect(disconnectQuiesce)
}

// IsConnected reports whether the broker connection is up.
func (b *Bridge) IsConnected() bool {
	return b.client.IsConnectionOpen()
}

// Call publishes a service call. The payload is data encoded as JSON.
func (b *Bridge) Call(ctx context.Context, domain, service string, data map[string]any) error {
	if !b.client.IsConnectionOpen() {
		return ErrNotConnected
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("error marshaling command: %w", err)
	}

	topic := CommandTopic(b.prefix, domain, service)
	if err := wait(ctx, b.client.Publish(topic, qos, false, payload)); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	b.logger.Debug("command published", zap.String("topic", topic))
	return nil
}

func (b *Bridge) handleMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	if err := b.handleState(msg.Topic(), msg.Payload()); err != nil {
		b.logger.Warn("state message ignored", zap.String("topic", msg.Topic()), zap.Error(err))
	}
}

// handleState applies a state message. The entity id defaults to the last
// topic segment.
func (b *Bridge) handleState(topic string, payload []byte) error {
	var msg StateMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if msg.EntityID == "" {
		msg.EntityID = topic[strings.LastIndex(topic, "/")+1:]
	}

	changed, err := b.registry.Apply(msg)
	if err != nil {
		return err
	}
	if !changed || msg.Removed {
		return nil
	}

	b.logger.Debug("entity changed", zap.String("entityId", msg.EntityID), zap.String("state", msg.State))

	b.mu.RLock()
	fn := b.onChange
	b.mu.RUnlock()
	if fn != nil {
		fn(msg.EntityID)
	}
	return nil
}

func wait(ctx context.Context, token pahomqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
