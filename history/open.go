package history

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Drivers accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Driver      string
	Path        string
	RedisAddr   string
	RedisPrefix string
}

// Open returns the store named by opts.Driver (sqlite when empty).
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", DriverSQLite:
		return OpenSQLite(opts.Path)
	case DriverRedis:
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("history driver redis requires redis_addr")
		}
		client := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, storageErr("connect redis", err)
		}
		return NewRedisStore(client, opts.RedisPrefix), nil
	default:
		return nil, fmt.Errorf("history driver %s not supported", opts.Driver)
	}
}
