package infra

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Startup ping retries; redis often becomes ready after the API container.
var (
	intentosRedis = 5
	esperaRedis   = time.Second
)

// NewRedis connects the client the API and the workers share. Each queue
// worker parks one connection on BRPOP, so the pool is grown by workers on top
// of go-redis' default size unless the URL sets pool_size.
func NewRedis(ctx context.Context, redisURL string, workers int) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	if opts.ClientName == "" {
		opts.ClientName = "logospos"
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = 10*runtime.GOMAXPROCS(0) + workers
	}

	rdb := redis.NewClient(opts)
	espera := esperaRedis
	for intento := 1; ; intento++ {
		err = rdb.Ping(ctx).Err()
		if err == nil {
			log.Info().
				Str("addr", opts.Addr).
				Int("db", opts.DB).
				Int("pool_size", opts.PoolSize).
				Msg("redis conectado")
			return rdb, nil
		}
		if intento >= intentosRedis {
			break
		}
		log.Warn().Err(err).Int("intento", intento).Dur("espera", espera).Msg("redis no responde, reintentando")
		select {
		case <-ctx.Done():
			_ = rdb.Close()
			return nil, ctx.Err()
		case <-time.After(espera):
		}
		espera *= 2
	}
	_ = rdb.Close()
	return nil, fmt.Errorf("redis: ping %s after %d attempts: %w", opts.Addr, intentosRedis, err)
}
