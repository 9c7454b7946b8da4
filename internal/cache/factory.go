package cache

import (
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Backend  string
	TTL      time.Duration
	Capacity int
	Prefix   string
}

func New(cfg Config, redisClient *redis.Client) Store {
	switch cfg.Backend {
	case "redis":
		return NewRedisStore(redisClient, RedisConfig{
			Prefix: cfg.Prefix,
		})
	default:
		return NewMemoryStore(cfg.Capacity, time.Minute)
	}
}
