package redisclient

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	_defaultConnAttempts = 10
	_defaultConnTimeout  = time.Second
)

type RedisClient struct {
	connAttempts int
	connTimeout  time.Duration

	url string

	Client *redis.Client
}

func New(ctx context.Context, url string, opts ...Option) (*RedisClient, error) {
	rc := &RedisClient{
		connAttempts: _defaultConnAttempts,
		connTimeout:  _defaultConnTimeout,
		url:          url,
	}

	for _, opt := range opts {
		opt(rc)
	}

	redisOpts, err := redis.ParseURL(rc.url)
	if err != nil {
		return nil, fmt.Errorf("RedisClient - New - redis.ParseURL: %w", err)
	}

	rc.Client = redis.NewClient(redisOpts)

	for rc.connAttempts > 0 {
		err = rc.Client.Ping(ctx).Err()
		if err == nil {
			break
		}

		log.Printf("Redis is trying to connect, attempts left: %d", rc.connAttempts)

		time.Sleep(rc.connTimeout)

		rc.connAttempts--
	}

	if err != nil {
		return nil, fmt.Errorf("RedisClient - New - connAttempts == 0: %w", err)
	}

	return rc, nil
}

func (rc *RedisClient) Close() error {
	if rc.Client != nil {
		return rc.Client.Close()
	}
	return nil
}
