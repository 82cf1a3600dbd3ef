package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

// RedisPublisher mirrors every derived slice into Redis: the latest value
// under a key for late subscribers, plus a pub/sub channel for live ones.
// Publication is best-effort; a broken Redis never blocks the engine.
type RedisPublisher struct {
	client *redis.Client
	ctx    context.Context
	prefix string
}

func NewRedisPublisher(addr, password string, db int, prefix string) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.Ping(pingCtx).Result(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	return &RedisPublisher{client: client, ctx: ctx, prefix: prefix}, nil
}

func (p *RedisPublisher) key(slice string) string {
	return fmt.Sprintf("%s:%s", p.prefix, slice)
}

func (p *RedisPublisher) Publish(slice string, payload interface{}) {
	b, err := json.Marshal(payload)
	if err != nil {
		log.WithError(err).Errorf("Error marshalling %s slice for redis", slice)
		return
	}

	ctx, cancel := context.WithTimeout(p.ctx, 2*time.Second)
	defer cancel()

	key := p.key(slice)
	if err := p.client.Set(ctx, key, b, 0).Err(); err != nil {
		log.WithError(err).Debugf("Error storing %s in redis", key)
	}
	if err := p.client.Publish(ctx, key, b).Err(); err != nil {
		log.WithError(err).Debugf("Error publishing %s to redis", key)
	}
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
