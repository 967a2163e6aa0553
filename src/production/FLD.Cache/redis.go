package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	config "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Config"
	fldmodels "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models"
)

const (
	SnapshotKey     = "flood:snapshot:latest"
	SnapshotChannel = "flood:deviceData"
)

// ErrNoSnapshot is returned when nothing has been cached yet or the entry expired
var ErrNoSnapshot = errors.New("no cached snapshot")

// CachedSnapshot is the stored form of one broadcast cycle
type CachedSnapshot struct {
	UpdatedAt time.Time                  `json:"updatedAt"`
	Devices   []fldmodels.DeviceSnapshot `json:"devices"`
}

// SnapshotCache keeps the last broadcast in Redis and republishes it on a
// pub/sub channel so other processes can follow the live stream.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewSnapshotCache(ctx context.Context, cfg config.RedisConfig) (*SnapshotCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newSnapshotCache(client, cfg.SnapshotTTL), nil
}

func newSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, ttl: ttl, now: time.Now}
}

func (c *SnapshotCache) Close() error {
	return c.client.Close()
}

func (c *SnapshotCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// StoreSnapshot writes the snapshot with its TTL and publishes the
// deviceData frame in one pipeline.
func (c *SnapshotCache) StoreSnapshot(ctx context.Context, devices []fldmodels.DeviceSnapshot) error {
	stored, err := encodeSnapshot(devices, c.now())
	if err != nil {
		return err
	}
	frame, err := json.Marshal(map[string]interface{}{"event": "deviceData", "data": nonNil(devices)})
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, SnapshotKey, stored, c.ttl)
	pipe.Publish(ctx, SnapshotChannel, frame)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

// Latest returns the most recent cached snapshot
func (c *SnapshotCache) Latest(ctx context.Context) (*CachedSnapshot, error) {
	raw, err := c.client.Get(ctx, SnapshotKey).Bytes()
	if err == redis.Nil {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("redis get snapshot failed: %w", err)
	}
	return decodeSnapshot(raw)
}

func encodeSnapshot(devices []fldmodels.DeviceSnapshot, at time.Time) ([]byte, error) {
	b, err := json.Marshal(CachedSnapshot{UpdatedAt: at.UTC(), Devices: nonNil(devices)})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return b, nil
}

func decodeSnapshot(raw []byte) (*CachedSnapshot, error) {
	var s CachedSnapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode cached snapshot: %w", err)
	}
	if s.Devices == nil {
		s.Devices = []fldmodels.DeviceSnapshot{}
	}
	return &s, nil
}

func nonNil(devices []fldmodels.DeviceSnapshot) []fldmodels.DeviceSnapshot {
	if devices == nil {
		return []fldmodels.DeviceSnapshot{}
	}
	return devices
}
