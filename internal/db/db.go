package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PoolOptions struct {
	MaxConns int32
	// InsecureTLS keeps TLS on but skips server certificate verification,
	// which managed Postgres offerings with self-signed chains need.
	InsecureTLS bool
}

func NewPool(dbURL string, opts PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := ParseConfig(dbURL, opts)

	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)

	if err != nil {
		return nil, err
	}

	err = pool.Ping(ctx)

	if err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

func ParseConfig(dbURL string, opts PoolOptions) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)

	if err != nil {
		return nil, err
	}

	cfg.MaxConns = 5
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	if opts.InsecureTLS {
		if cfg.ConnConfig.TLSConfig != nil {
			cfg.ConnConfig.TLSConfig.InsecureSkipVerify = true
		}
		for _, fb := range cfg.ConnConfig.Fallbacks {
			if fb.TLSConfig != nil {
				fb.TLSConfig.InsecureSkipVerify = true
			}
		}
	}

	return cfg, nil
}
