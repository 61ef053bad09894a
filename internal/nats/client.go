package nats

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/relabs-tech/gnss_reports/internal/gps"
)

// Subjects the epoch reports are published on.
const (
	SubjectTime       = "gnss.time"
	SubjectPosition   = "gnss.position"
	SubjectSatellites = "gnss.satellites"
)

// conn is the part of *nats.Conn the client uses.
type conn interface {
	Publish(subj string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// Client represents a NATS client
type Client struct {
	conn conn
}

// New creates a new NATS client
func New(url string) (*Client, error) {
	nc, err := nats.Connect(url,
		nats.Name("gnss-reports"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Client{conn: nc}, nil
}

// PublishEpoch publishes the three reports of an epoch as JSON, each on
// its own subject, and waits for the server to acknowledge them.
func (c *Client) PublishEpoch(e gps.Epoch) error {
	msgs := []struct {
		subject string
		payload any
	}{
		{SubjectTime, e.Time},
		{SubjectPosition, e.Position},
		{SubjectSatellites, e.Satellites},
	}

	for _, m := range msgs {
		data, err := json.Marshal(m.payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", m.subject, err)
		}
		if err := c.conn.Publish(m.subject, data); err != nil {
			return fmt.Errorf("failed to publish %s: %w", m.subject, err)
		}
	}

	if err := c.conn.FlushTimeout(2 * time.Second); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}
	return nil
}

// Close closes the NATS connection
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
