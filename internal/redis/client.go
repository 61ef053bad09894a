package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/relabs-tech/gnss_reports/internal/gnss"
	"github.com/relabs-tech/gnss_reports/internal/gps"
)

// Keys holding the latest published reports.
const (
	KeyTime       = "gnss:latest:time"
	KeyPosition   = "gnss:latest:position"
	KeySatellites = "gnss:latest:satellites"
)

// RedisClientInterface defines the Redis operations used by our client
type RedisClientInterface interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// Client caches the latest epoch in Redis so readers that start late, or
// lose their MQTT session, still get a recent snapshot.
type Client struct {
	client RedisClientInterface
	ttl    time.Duration
}

// New creates a new Redis client. Entries expire after ttl; zero keeps them.
func New(addr string, ttl time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{client: client, ttl: ttl}, nil
}

// NewWithClient creates a new Redis client with a custom RedisClientInterface (useful for testing)
func NewWithClient(client RedisClientInterface, ttl time.Duration) *Client {
	return &Client{client: client, ttl: ttl}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// StoreEpoch stores the three reports of an epoch.
func (c *Client) StoreEpoch(ctx context.Context, e gps.Epoch) error {
	if err := c.setData(ctx, KeyTime, e.Time); err != nil {
		return err
	}
	if err := c.setData(ctx, KeyPosition, e.Position); err != nil {
		return err
	}
	return c.setData(ctx, KeySatellites, e.Satellites)
}

func (c *Client) setData(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

// getData retrieves data from Redis and unmarshals it into the target.
// It reports false when the key does not exist or has expired.
func (c *Client) getData(ctx context.Context, key string, target any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

// LatestTime returns the last stored time report.
func (c *Client) LatestTime(ctx context.Context) (gnss.Time, bool, error) {
	var t gnss.Time
	ok, err := c.getData(ctx, KeyTime, &t)
	return t, ok, err
}

// LatestPosition returns the last stored position report.
func (c *Client) LatestPosition(ctx context.Context) (gnss.Position, bool, error) {
	var p gnss.Position
	ok, err := c.getData(ctx, KeyPosition, &p)
	return p, ok, err
}

// LatestSatellites returns the last stored satellite list.
func (c *Client) LatestSatellites(ctx context.Context) ([]gnss.SatelliteDetail, bool, error) {
	var sats []gnss.SatelliteDetail
	ok, err := c.getData(ctx, KeySatellites, &sats)
	return sats, ok, err
}

// Clear removes all stored reports.
func (c *Client) Clear(ctx context.Context) error {
	return c.client.Del(ctx, KeyTime, KeyPosition, KeySatellites).Err()
}
