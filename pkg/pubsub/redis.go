package pubsub

import (
	"context"
	"fmt"
	"sync"

	"github.com/Alwanly/service-fleet-monitor/pkg/logger"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type redisPubSub struct {
	client *redis.Client
	logger *logger.CanonicalLogger

	mu     sync.Mutex
	pubsub *redis.PubSub
	cancel context.CancelFunc
}

func NewRedisPubSub(cfg RedisConfig, log *logger.CanonicalLogger) (PubSub, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Try a ping to validate connection
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	log.Info("redis client initialized", logger.String("addr", addr))

	return &redisPubSub{
		client: client,
		logger: log,
	}, nil
}

// Publish publishes a message to a Redis channel
func (r *redisPubSub) Publish(ctx context.Context, channel string, message string) error {
	if err := r.client.Publish(ctx, channel, message).Err(); err != nil {
		r.logger.WithError(err).Error("failed to publish message to redis")
		return err
	}
	return nil
}

// Ping checks if Redis connection is healthy
func (r *redisPubSub) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Subscribe subscribes to Redis channels
func (r *redisPubSub) Subscribe(ctx context.Context, channels ...string) (<-chan Message, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("no channels to subscribe")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pubsub != nil {
		return nil, fmt.Errorf("already subscribed")
	}

	ps := r.client.Subscribe(ctx, channels...)
	// wait for the subscription confirmation so no message is missed after return
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	r.pubsub = ps

	listenCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	out := make(chan Message, 16)
	go r.listen(listenCtx, ps, out)

	r.logger.Info("subscribed to redis channels", logger.Any("channels", channels))
	return out, nil
}

// Unsubscribe unsubscribes from Redis channels
func (r *redisPubSub) Unsubscribe(ctx context.Context, channels ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pubsub == nil {
		return nil
	}
	return r.pubsub.Unsubscribe(ctx, channels...)
}

// Close closes the Redis connection
func (r *redisPubSub) Close() error {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	if r.pubsub != nil {
		_ = r.pubsub.Close()
	}
	r.mu.Unlock()

	if err := r.client.Close(); err != nil {
		r.logger.WithError(err).Error("failed to close redis client")
		return err
	}
	return nil
}

// listen forwards messages until ctx is done; it owns and closes out
func (r *redisPubSub) listen(ctx context.Context, ps *redis.PubSub, out chan<- Message) {
	defer close(out)
	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping redis listener")
			return
		case m, ok := <-ch:
			if !ok {
				r.logger.Info("redis pubsub channel closed")
				return
			}
			select {
			case out <- Message{Channel: m.Channel, Payload: m.Payload}:
			case <-ctx.Done():
				return
			}
		}
	}
}
