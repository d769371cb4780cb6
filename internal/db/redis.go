package db

import (
	"context"

	"github.com/go-redis/redis/v8"
)

// RedisOptions mirrors the redis section of the config.
type RedisOptions struct {
	URL      string
	Addr     string
	Password string
	DB       int
}

// NewRedisClient prefers a redis:// URL and falls back to address fields.
func NewRedisClient(ctx context.Context, o RedisOptions) (*redis.Client, error) {
	var rdb *redis.Client
	if o.URL != "" {
		// redis://[:password@]host[:port][/db]
		opts, err := redis.ParseURL(o.URL)
		if err != nil {
			return nil, err
		}
		rdb = redis.NewClient(opts)
	} else {
		rdb = redis.NewClient(&redis.Options{
			Addr:     o.Addr,
			Password: o.Password,
			DB:       o.DB,
		})
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}
