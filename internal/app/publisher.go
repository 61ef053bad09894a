package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gnss_reports/internal/config"
	"github.com/relabs-tech/gnss_reports/internal/gps"
	"github.com/relabs-tech/gnss_reports/internal/nats"
	"github.com/relabs-tech/gnss_reports/internal/redis"
)

type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

type epochBus interface {
	PublishEpoch(e gps.Epoch) error
}

type epochCache interface {
	StoreEpoch(ctx context.Context, e gps.Epoch) error
}

// EpochPublisher sends every epoch to MQTT as three retained JSON
// messages, and to NATS and Redis when those are configured.
type EpochPublisher struct {
	component string
	mqtt      mqttPublisher
	topics    Topics
	bus       epochBus
	cache     epochCache
	closers   []func()
}

// NewEpochPublisher connects to the broker and to the optional sinks
// named in cfg. component prefixes log lines.
func NewEpochPublisher(cfg *config.Config, clientID, component string) (*EpochPublisher, error) {
	client, err := connectMQTT(cfg.MQTTBroker, clientID, component)
	if err != nil {
		return nil, err
	}

	p := &EpochPublisher{
		component: component,
		mqtt:      client,
		topics:    topicsFrom(cfg),
		closers:   []func(){func() { client.Disconnect(250) }},
	}

	if cfg.NATSURL != "" {
		nc, err := nats.New(cfg.NATSURL)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.bus = nc
		p.closers = append(p.closers, nc.Close)
		log.Printf("%s: publishing to NATS at %s", component, cfg.NATSURL)
	}

	if cfg.RedisAddr != "" {
		rc, err := redis.New(cfg.RedisAddr, time.Duration(cfg.RedisTTLSeconds)*time.Second)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.cache = rc
		p.closers = append(p.closers, func() { rc.Close() })
		log.Printf("%s: caching latest epoch in Redis at %s", component, cfg.RedisAddr)
	}

	return p, nil
}

// Publish sends one epoch everywhere. Consistency problems are logged,
// the epoch is still published. A failing sink does not stop the others.
func (p *EpochPublisher) Publish(ctx context.Context, e gps.Epoch) error {
	if err := e.Check(); err != nil {
		log.Printf("%s: inconsistent epoch: %v", p.component, err)
	}

	var errs []error
	msgs := []struct {
		topic   string
		payload any
	}{
		{p.topics.Time, e.Time},
		{p.topics.Position, e.Position},
		{p.topics.Satellites, e.Satellites},
	}
	for _, m := range msgs {
		data, err := json.Marshal(m.payload)
		if err != nil {
			errs = append(errs, fmt.Errorf("marshal %s: %w", m.topic, err))
			continue
		}
		token := p.mqtt.Publish(m.topic, 0, true, data)
		token.Wait()
		if token.Error() != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", m.topic, token.Error()))
		}
	}

	if p.bus != nil {
		if err := p.bus.PublishEpoch(e); err != nil {
			errs = append(errs, fmt.Errorf("nats: %w", err))
		}
	}
	if p.cache != nil {
		if err := p.cache.StoreEpoch(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Close releases all connections, last opened first.
func (p *EpochPublisher) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
	p.closers = nil
}
