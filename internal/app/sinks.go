package app

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/bugfreev587/openshift-utilization/internal/config"
	"github.com/bugfreev587/openshift-utilization/internal/db"
	"github.com/bugfreev587/openshift-utilization/internal/sender"
)

// Backends are the optional stores a run writes to. Close releases them.
type Backends struct {
	Redis     *redis.Client
	Timescale *db.TimescaleDB
}

func (b *Backends) Close() {
	if b.Redis != nil {
		b.Redis.Close()
	}
	if b.Timescale != nil {
		b.Timescale.CloseDB()
	}
}

// OpenBackends connects to the redis and timescale backends that cfg enables.
func OpenBackends(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backends, error) {
	b := &Backends{}
	if cfg.Redis.Enabled() {
		rdb, err := db.NewRedisClient(ctx, db.RedisOptions{
			URL:      cfg.Redis.URL,
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		b.Redis = rdb
		logger.Info("redis connected")
	}
	if cfg.Timescale.DSN != "" {
		ts, err := db.InitTimescale(cfg.Timescale.DSN)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("timescale: %w", err)
		}
		if err := ts.EnsureSchema(ctx); err != nil {
			ts.CloseDB()
			b.Close()
			return nil, fmt.Errorf("timescale schema: %w", err)
		}
		b.Timescale = ts
		logger.Info("timescale connected")
	}
	return b, nil
}

// BuildSenders returns the output sink plus every configured backend sink.
func BuildSenders(cfg *config.Config, b *Backends) sender.MultiSender {
	senders := sender.MultiSender{sender.NewFileSender(cfg.Output.Path, cfg.Output.Format)}
	if cfg.Sink.WebhookURL != "" {
		senders = append(senders, sender.NewHTTPSender(cfg.Sink.WebhookURL, cfg.Sink.WebhookAPIKey, cfg.HTTPTimeout))
	}
	if b != nil && b.Redis != nil {
		senders = append(senders, &sender.RedisSender{Client: b.Redis, KeyPrefix: cfg.Redis.KeyPrefix, TTL: cfg.Redis.TTL})
	}
	if b != nil && b.Timescale != nil {
		senders = append(senders, &sender.TimescaleSender{Store: b.Timescale})
	}
	return senders
}
