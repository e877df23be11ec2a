package reload

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// RedisConfig selects the pub/sub channel that triggers reloads.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// Subscribe connects to Redis and triggers w on every message published to
// cfg.Channel. It blocks until ctx is done.
func Subscribe(ctx context.Context, cfg RedisConfig, w *Watcher) error {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	defer func() { _ = client.Close() }()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return eris.Wrapf(err, "reload: redis %s", cfg.Addr)
	}

	pubsub := client.Subscribe(ctx, cfg.Channel)
	defer func() { _ = pubsub.Close() }()

	// Wait for the subscription to be confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		return eris.Wrapf(err, "reload: subscribe %s", cfg.Channel)
	}

	zap.L().Info("reload: listening for triggers",
		zap.String("addr", cfg.Addr),
		zap.String("channel", cfg.Channel),
	)
	Listen(ctx, pubsub.Channel(), w)
	return nil
}

// Listen triggers w for each message until msgs closes or ctx is done.
func Listen(ctx context.Context, msgs <-chan *redis.Message, w *Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			zap.L().Debug("reload: trigger received",
				zap.String("channel", msg.Channel),
				zap.String("payload", msg.Payload),
			)
			w.Trigger()
		}
	}
}
