package redis

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strconv"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

// Options converts cfg into go-redis client options.
func Options(cfg Config) (*redis.Options, error) {
	var opts *redis.Options

	switch {
	case cfg.ConnectionURL != "":
		u, err := url.Parse(cfg.ConnectionURL)
		if err != nil {
			return nil, errors.Join(ErrFailedToParseRedisConnString, err)
		}
		switch u.Scheme {
		case "redis", "rediss", "unix":
		default:
			return nil, errors.Join(ErrFailedToParseRedisConnString, ErrUnsupportedScheme)
		}
		opts, err = redis.ParseURL(cfg.ConnectionURL)
		if err != nil {
			return nil, errors.Join(ErrFailedToParseRedisConnString, err)
		}
	case cfg.Socket != "":
		opts = &redis.Options{Network: "unix", Addr: cfg.Socket, DB: cfg.Database}
	case cfg.Host != "":
		port := cfg.Port
		if port == 0 {
			port = 6379
		}
		opts = &redis.Options{
			Network: "tcp",
			Addr:    net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
			DB:      cfg.Database,
		}
	default:
		return nil, ErrEmptyConnectionURL
	}

	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	return opts, nil
}

// Connect opens a client and pings it with exponential backoff until it answers,
// RetryAttempts is exhausted or ConnectTimeout passes.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	client := redis.NewClient(opts)

	b := backoff.NewExponentialBackOff()
	if cfg.RetryInterval > 0 {
		b.InitialInterval = cfg.RetryInterval
	}
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	ping := func() error {
		return client.Ping(ctx).Err()
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
	if err := backoff.Retry(ping, policy); err != nil {
		_ = client.Close()
		return nil, errors.Join(ErrRedisNotReady, err)
	}

	return client, nil
}

// Healthcheck returns a check function that pings the client.
func Healthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
