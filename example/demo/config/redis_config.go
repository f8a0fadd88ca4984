package config

import (
	goredis "github.com/redis/go-redis/v9"
)

// RedisOptions returns the client options for the configured Redis server.
func (c Config) RedisOptions() *goredis.Options {
	return &goredis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}
