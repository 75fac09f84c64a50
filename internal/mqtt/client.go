package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/dchest/uniuri"
	pm "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/denwilliams/go-ambient-match/internal/color"
	"github.com/denwilliams/go-ambient-match/internal/logging"
	"github.com/denwilliams/go-ambient-match/internal/telemetry"
)

const (
	TopicCommand = "cmd"
	TopicStatus  = "status"
)

// MessageHandler receives the payload of a subscribed topic.
type MessageHandler func(topic string, payload []byte)

type status struct {
	Status  string `json:"status"`
	Session string `json:"session,omitempty"`
}

type MQTTClient struct {
	client  pm.Client
	prefix  string
	session string

	mu   sync.Mutex
	subs map[string]MessageHandler
}

// NewMQTTClient creates a client for the broker at uri. Topics are published
// under prefix, and a retained offline status is left as the will.
func NewMQTTClient(uri *url.URL, prefix string, idPrefix string, keepAlive time.Duration) *MQTTClient {
	mc := &MQTTClient{
		prefix:  prefix,
		session: uuid.NewString(),
		subs:    make(map[string]MessageHandler),
	}

	broker := url.URL{Scheme: uri.Scheme, Host: uri.Host}
	will, _ := json.Marshal(status{Status: "offline"})

	opts := pm.NewClientOptions().
		AddBroker(broker.String()).
		SetClientID(idPrefix + uniuri.New()).
		SetKeepAlive(keepAlive).
		SetAutoReconnect(true).
		SetWill(mc.Topic(TopicStatus), string(will), 1, true).
		SetOnConnectHandler(mc.onConnect).
		SetConnectionLostHandler(onConnectionLostHandler)
	if uri.User != nil {
		opts.SetUsername(uri.User.Username())
		if pw, ok := uri.User.Password(); ok {
			opts.SetPassword(pw)
		}
	}

	mc.client = pm.NewClient(opts)
	return mc
}

// Topic returns the full topic name for a sub topic.
func (mc *MQTTClient) Topic(sub string) string {
	return mc.prefix + "/" + sub
}

func (mc *MQTTClient) Connect() error {
	if token := mc.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return nil
}

// Publish implements telemetry.Sink. Events are retained so late subscribers
// see the current state.
func (mc *MQTTClient) Publish(ctx context.Context, ev telemetry.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	topic := mc.Topic(string(ev.Kind()))
	logging.Debug("Publishing %s %s", topic, payload)
	return wait(ctx, mc.client.Publish(topic, 0, true, payload))
}

// PublishCommand asks a device to show c.
func (mc *MQTTClient) PublishCommand(ctx context.Context, c color.RGB) error {
	payload, err := json.Marshal(map[string][3]uint8{"led": c.Array()})
	if err != nil {
		return err
	}
	return wait(ctx, mc.client.Publish(mc.Topic(TopicCommand), 0, false, payload))
}

// HandleCommands subscribes to the command topic and forwards valid commands
// to h. Invalid payloads are logged and dropped.
func (mc *MQTTClient) HandleCommands(h CommandHandler) error {
	return mc.Subscribe(mc.Topic(TopicCommand), func(topic string, payload []byte) {
		cmd, err := ParseCommand(payload)
		if err != nil {
			logging.Warn("Ignoring command on %s: %s %q", topic, err, payload)
			return
		}
		if cmd.Clamped {
			logging.Info("Command clamped to %s", cmd)
		}
		logging.Debug("Received command on %s: %s", topic, cmd)

		go func() {
			if err := h.SetColor(context.Background(), cmd.RGB); err != nil {
				logging.Warn("Command %s failed: %s", cmd, err)
			}
		}()
	})
}

// Subscribe registers handler for topic. Subscriptions are restored on
// every reconnect.
func (mc *MQTTClient) Subscribe(topic string, handler MessageHandler) error {
	mc.mu.Lock()
	mc.subs[topic] = handler
	mc.mu.Unlock()

	if !mc.client.IsConnectionOpen() {
		return nil
	}
	return mc.subscribe(topic, handler)
}

func (mc *MQTTClient) subscribe(topic string, handler MessageHandler) error {
	cb := func(_ pm.Client, msg pm.Message) {
		handler(msg.Topic(), msg.Payload())
	}
	if token := mc.client.Subscribe(topic, 0, cb); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", topic, token.Error())
	}
	logging.Info("Subscribed to %s", topic)
	return nil
}

func (mc *MQTTClient) Disconnect() {
	logging.Info("Disconnecting from MQTT")

	offline, _ := json.Marshal(status{Status: "offline", Session: mc.session})
	token := mc.client.Publish(mc.Topic(TopicStatus), 1, true, offline)
	token.WaitTimeout(time.Second)

	mc.mu.Lock()
	topics := make([]string, 0, len(mc.subs))
	for t := range mc.subs {
		topics = append(topics, t)
	}
	mc.mu.Unlock()
	if len(topics) > 0 {
		mc.client.Unsubscribe(topics...).WaitTimeout(time.Second)
	}

	mc.client.Disconnect(250)
}

func (mc *MQTTClient) onConnect(c pm.Client) {
	logging.Info("Connected to MQTT")

	online, _ := json.Marshal(status{Status: "online", Session: mc.session})
	c.Publish(mc.Topic(TopicStatus), 1, true, online)

	mc.mu.Lock()
	subs := make(map[string]MessageHandler, len(mc.subs))
	for t, h := range mc.subs {
		subs[t] = h
	}
	mc.mu.Unlock()

	// Subscribing blocks on the broker, which must not happen on the
	// connect callback goroutine.
	go func() {
		for t, h := range subs {
			if err := mc.subscribe(t, h); err != nil {
				logging.Error("%s", err)
			}
		}
	}()
}

func onConnectionLostHandler(c pm.Client, err error) {
	logging.Warn("Lost MQTT connection: %s", err)
}

func wait(ctx context.Context, token pm.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
