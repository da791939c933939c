package redis

import "time"

// Config describes how to reach the store. ConnectionURL wins when set;
// otherwise Socket (unix domain socket) wins over Host/Port.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL"`
	Host           string        `env:"REDIS_HOST" envDefault:"localhost"`
	Port           int           `env:"REDIS_PORT" envDefault:"6379"`
	Socket         string        `env:"REDIS_SOCKET"`
	Database       int           `env:"REDIS_DATABASE" envDefault:"0"`
	Password       string        `env:"REDIS_PASSWORD"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}

// DefaultConfig mirrors the envDefault tags.
func DefaultConfig() Config {
	return Config{
		Host:           "localhost",
		Port:           6379,
		RetryAttempts:  3,
		RetryInterval:  5 * time.Second,
		ConnectTimeout: 30 * time.Second,
	}
}
