package repository

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// EngineerQueue is the durable FIFO rotation of engineer ids behind
// round-robin assignment. Pop takes from the tail, Push restores to the head.
// Rotate composes the two as one atomic unit: concurrent assignments can
// never observe the same popped id or drop one between the steps.
type EngineerQueue interface {
	Pop(ctx context.Context) (string, error)
	Push(ctx context.Context, engineerID string) error
	Rotate(ctx context.Context) (string, error)

	// RotateOrSeed behaves like Rotate on a non-empty queue. An empty queue
	// is instead seeded with fallback, which is then returned. The check and
	// the seed are one atomic operation, so concurrent callers racing on an
	// empty queue seed exactly one entry.
	RotateOrSeed(ctx context.Context, fallback string) (string, error)
	Length(ctx context.Context) (int64, error)
}

type redisEngineerQueue struct {
	client *redis.Client
	key    string
}

// NewRedisEngineerQueue returns a queue stored as a Redis list under key.
func NewRedisEngineerQueue(client *redis.Client, key string) EngineerQueue {
	return &redisEngineerQueue{client: client, key: key}
}

func (q *redisEngineerQueue) Pop(ctx context.Context) (string, error) {
	id, err := q.client.RPop(ctx, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrEmptyQueue
	}
	return id, err
}

func (q *redisEngineerQueue) Push(ctx context.Context, engineerID string) error {
	return q.client.LPush(ctx, q.key, engineerID).Err()
}

// Rotate pops the tail and pushes it back onto the head in a single Redis
// command, so the list length is constant across assignments.
func (q *redisEngineerQueue) Rotate(ctx context.Context) (string, error) {
	id, err := q.client.RPopLPush(ctx, q.key, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrEmptyQueue
	}
	return id, err
}

// rotateOrSeedScript runs rotate-or-seed server side; the script executes
// atomically, so two clients racing on an empty list cannot both seed it.
var rotateOrSeedScript = redis.NewScript(`
local id = redis.call("RPOPLPUSH", KEYS[1], KEYS[1])
if id then
    return id
end
redis.call("LPUSH", KEYS[1], ARGV[1])
return ARGV[1]`)

func (q *redisEngineerQueue) RotateOrSeed(ctx context.Context, fallback string) (string, error) {
	return rotateOrSeedScript.Run(ctx, q.client, []string{q.key}, fallback).Text()
}

func (q *redisEngineerQueue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
