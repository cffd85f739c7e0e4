package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	goredis "github.com/redis/go-redis/v9"
)

// Client is the part of go-redis the adapters use. *goredis.Client satisfies it.
type Client interface {
	GeoAdd(ctx context.Context, key string, geoLocation ...*goredis.GeoLocation) *goredis.IntCmd
	GeoRadius(ctx context.Context, key string, longitude, latitude float64, query *goredis.GeoRadiusQuery) *goredis.GeoLocationCmd
	GeoPos(ctx context.Context, key string, members ...string) *goredis.GeoPosCmd
	ZRem(ctx context.Context, key string, members ...interface{}) *goredis.IntCmd
	HSet(ctx context.Context, key string, values ...interface{}) *goredis.IntCmd
	HGet(ctx context.Context, key, field string) *goredis.StringCmd
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

// Connect opens a client and checks it with PING.
func Connect(ctx context.Context, cfg Config) (*goredis.Client, error) {
	c := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return c, nil
}

func unavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, goredis.Nil) {
		return types.ErrNotFound
	}
	return fmt.Errorf("%w: %w", types.ErrStoreUnavailable, err)
}
