package events

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/alexanderksmi/doffin-hunter/internal/model"
)

// RedisConfig holds the connection settings of the Redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient creates a client with the timeouts used for event delivery.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
	})
}

// RedisPublisher sends events with PUBLISH.
type RedisPublisher struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev model.Event) error {
	payload, err := encode(ev)
	if err != nil {
		return err
	}
	err = p.client.Publish(ctx, Channel(ev.OrganizationID), string(payload)).Err()
	return eris.Wrapf(err, "events: redis publish %s", ev.Type)
}
