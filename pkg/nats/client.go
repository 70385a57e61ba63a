package nats

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Client wraps a NATS JetStream connection used to mirror the engine's
// dispatched event stream for external subscribers.
type Client struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger *logrus.Entry
	config *Config
}

// Config holds NATS connection and stream configuration.
type Config struct {
	URL      string
	ClientID string
	Streams  []StreamConfig
}

// StreamConfig defines JetStream configuration for one stream.
type StreamConfig struct {
	Name      string
	Subjects  []string
	Retention nats.RetentionPolicy
	MaxAge    time.Duration
	MaxMsgs   int64
}

// NewClient connects to NATS and ensures the configured streams exist.
func NewClient(config *Config) (*Client, error) {
	logger := logrus.WithField("component", "nats-client")

	opts := []nats.Option{
		nats.Name(config.ClientID),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Errorf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Errorf("NATS error: %v", err)
		}),
	}

	conn, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	client := &Client{
		conn:   conn,
		js:     js,
		logger: logger,
		config: config,
	}

	if err := client.initializeStreams(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize streams: %w", err)
	}

	return client, nil
}

// initializeStreams creates or updates the configured JetStream streams.
func (c *Client) initializeStreams() error {
	for _, streamConfig := range c.config.Streams {
		config := &nats.StreamConfig{
			Name:      streamConfig.Name,
			Subjects:  streamConfig.Subjects,
			Retention: streamConfig.Retention,
			MaxAge:    streamConfig.MaxAge,
			MaxMsgs:   streamConfig.MaxMsgs,
			Storage:   nats.FileStorage,
			Replicas:  1,
		}

		_, err := c.js.StreamInfo(streamConfig.Name)
		if err == nil {
			_, err = c.js.UpdateStream(config)
			if err != nil {
				return fmt.Errorf("failed to update stream %s: %w", streamConfig.Name, err)
			}
			c.logger.Infof("Updated stream: %s", streamConfig.Name)
		} else {
			_, err = c.js.AddStream(config)
			if err != nil {
				return fmt.Errorf("failed to create stream %s: %w", streamConfig.Name, err)
			}
			c.logger.Infof("Created stream: %s", streamConfig.Name)
		}
	}

	return nil
}

// Close closes the NATS connection.
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// publish publishes a message to a subject.
func (c *Client) publish(subject string, data interface{}) error {
	msg, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	_, err = c.js.Publish(subject, msg)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	c.logger.Debugf("Published to %s", subject)
	return nil
}

// PublishEngineEvent mirrors one dispatcher event onto engine.events.<kind>
// so an external subscriber can follow a live run without holding the
// Dispatcher itself. Used by events.NatsSink.
func (c *Client) PublishEngineEvent(kind string, data interface{}) error {
	subject := fmt.Sprintf("engine.events.%s", kind)
	return c.publish(subject, data)
}
