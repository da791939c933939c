package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/busengine/integration/database/redis"
)

func TestOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		cfg         redis.Config
		wantNetwork string
		wantAddr    string
		wantDB      int
		wantPass    string
		wantErr     error
	}{
		{
			name:        "url",
			cfg:         redis.Config{ConnectionURL: "redis://:secret@cache:6380/2"},
			wantNetwork: "tcp",
			wantAddr:    "cache:6380",
			wantDB:      2,
			wantPass:    "secret",
		},
		{
			name:        "password overrides url",
			cfg:         redis.Config{ConnectionURL: "redis://cache:6380/1", Password: "override"},
			wantNetwork: "tcp",
			wantAddr:    "cache:6380",
			wantDB:      1,
			wantPass:    "override",
		},
		{
			name:        "socket",
			cfg:         redis.Config{Socket: "/tmp/redis.sock", Host: "ignored", Database: 3},
			wantNetwork: "unix",
			wantAddr:    "/tmp/redis.sock",
			wantDB:      3,
		},
		{
			name:        "host and default port",
			cfg:         redis.Config{Host: "localhost", Password: "foobared"},
			wantNetwork: "tcp",
			wantAddr:    "localhost:6379",
			wantPass:    "foobared",
		},
		{
			name:    "unsupported scheme",
			cfg:     redis.Config{ConnectionURL: "http://localhost:6379"},
			wantErr: redis.ErrFailedToParseRedisConnString,
		},
		{
			name:    "empty",
			cfg:     redis.Config{},
			wantErr: redis.ErrEmptyConnectionURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts, err := redis.Options(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantNetwork, opts.Network)
			assert.Equal(t, tt.wantAddr, opts.Addr)
			assert.Equal(t, tt.wantDB, opts.DB)
			assert.Equal(t, tt.wantPass, opts.Password)
		})
	}
}

func TestConnect(t *testing.T) {
	t.Parallel()

	t.Run("connects and passes healthcheck", func(t *testing.T) {
		t.Parallel()
		mr := miniredis.RunT(t)

		cfg := redis.DefaultConfig()
		cfg.ConnectionURL = "redis://" + mr.Addr() + "/0"

		client, err := redis.Connect(context.Background(), cfg)
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })

		check := redis.Healthcheck(client)
		assert.NoError(t, check(context.Background()))

		mr.Close()
		assert.ErrorIs(t, check(context.Background()), redis.ErrHealthcheckFailed)
	})

	t.Run("gives up on unreachable store", func(t *testing.T) {
		t.Parallel()
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		cfg := redis.Config{
			ConnectionURL:  "redis://" + addr,
			RetryAttempts:  2,
			RetryInterval:  10 * time.Millisecond,
			ConnectTimeout: 2 * time.Second,
		}

		_, err := redis.Connect(context.Background(), cfg)
		assert.ErrorIs(t, err, redis.ErrRedisNotReady)
	})

	t.Run("invalid config", func(t *testing.T) {
		t.Parallel()
		_, err := redis.Connect(context.Background(), redis.Config{})
		assert.ErrorIs(t, err, redis.ErrEmptyConnectionURL)
	})
}
