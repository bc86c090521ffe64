package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pavelanni/interviewer/internal/model"
)

const redisKeyPrefix = "interviewer:session:"

// RedisOptions configures the redis store.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// TTL is applied to every write; 0 keeps sessions until deleted.
	TTL time.Duration
}

// Redis stores each session as a JSON string under its own key. Expiry is
// left to redis key TTLs.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to redis and verifies the connection.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisWithClient(rdb, opts.TTL), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: rdb, ttl: ttl}
}

func sessionKey(id string) string {
	return redisKeyPrefix + id
}

func (r *Redis) Create(ctx context.Context, s model.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ok, err := r.client.SetNX(ctx, sessionKey(s.ID), data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return model.ErrSessionExists
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, id string) (model.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Session{}, model.ErrSessionNotFound
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("redis get: %w", err)
	}
	return decodeSession(string(data))
}

func (r *Redis) Update(ctx context.Context, s model.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	// XX only overwrites an existing key, so an expired session stays gone.
	err = r.client.SetArgs(ctx, sessionKey(s.ID), data, redis.SetArgs{
		Mode: "XX",
		TTL:  r.ttl,
	}).Err()
	if errors.Is(err, redis.Nil) {
		return model.ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) List(ctx context.Context) ([]model.Session, error) {
	var sessions []model.Session
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := r.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis get: %w", err)
		}
		s, err := decodeSession(string(data))
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].CreatedAt.Before(sessions[j].CreatedAt) })
	return sessions, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
