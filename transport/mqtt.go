package transport

import (
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"dxcluster/config"
	"dxcluster/window"
)

// SpotHandler receives every successfully parsed spot frame.
type SpotHandler func(window.Candidate)

// Client wraps a single MQTT connection used both to subscribe to the spot
// stream and to publish daily-summary snapshots (spec §6), following the
// options/reconnect-handler idiom of wsprnet_mqtt's MQTTClient.
type Client struct {
	cfg     config.TransportConfig
	client  mqtt.Client
	onSpot  SpotHandler
	session string
}

// NewClient builds an MQTT client from cfg. onSpot is invoked for every
// frame that parses successfully on a PROD_SPOT-prefixed topic; onSpot may
// be nil for a publish-only client (e.g. the batch binary's -publish mode).
func NewClient(cfg config.TransportConfig, onSpot SpotHandler) *Client {
	c := &Client{
		cfg:     cfg,
		onSpot:  onSpot,
		session: uuid.NewString(),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(fmt.Sprintf("%s-%s", cfg.ClientIDPrefix, c.session))
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Printf("transport[%s]: connected to %s", c.session, cfg.BrokerURL)
		if c.onSpot != nil {
			c.subscribe()
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("transport[%s]: connection lost: %v", c.session, err)
	})
	opts.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		log.Printf("transport[%s]: reconnecting...", c.session)
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// Connect opens the MQTT connection. If onSpot is non-nil it also
// subscribes once the connection handshake completes.
func (c *Client) Connect() error {
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("transport: connect %s: %w", c.cfg.BrokerURL, token.Error())
	}
	return nil
}

// Disconnect closes the connection, waiting up to 250ms to flush in-flight
// publishes.
func (c *Client) Disconnect() {
	c.client.Disconnect(250)
}

func (c *Client) subscribe() {
	filter := c.cfg.TopicPrefix + "/#"
	token := c.client.Subscribe(filter, 0, c.handleMessage)
	if token.Wait() && token.Error() != nil {
		log.Printf("transport[%s]: subscribe %s failed: %v", c.session, filter, token.Error())
		return
	}
	log.Printf("transport[%s]: subscribed to %s", c.session, filter)
}

// handleMessage is the transient error path of spec §7: a frame that fails
// to parse is dropped silently, never perturbing engine state.
func (c *Client) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	if !IsSpotTopic(msg.Topic()) {
		return
	}
	cand, ok := ParseFrame(msg.Payload())
	if !ok {
		return
	}
	c.onSpot(cand)
}

// Publish sends a two-frame daily-summary message: an MQTT topic (frame 1)
// and a JSON payload (frame 2), per spec §6's publisher contract.
func (c *Client) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, 0, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("transport: publish %s: %w", topic, token.Error())
	}
	return nil
}
