package retry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisScheduler keeps retry jobs in a sorted set scored by NotBefore (unix ms)
// with job bodies in a companion hash keyed by call id.
type RedisScheduler struct {
	client *redis.Client
	queue  string
	jobs   string
}

func NewRedisScheduler(client *redis.Client, prefix string) *RedisScheduler {
	if prefix == "" {
		prefix = "pulsecall:retry"
	}
	return &RedisScheduler{client: client, queue: prefix + ":queue", jobs: prefix + ":jobs"}
}

var enqueueScript = redis.NewScript(`
-- KEYS[1] = queue zset
-- KEYS[2] = jobs hash
-- ARGV[1] = call id
-- ARGV[2] = score (unix ms)
-- ARGV[3] = job json
--
-- Returns:
--  1 if enqueued
--  0 if a job for this call id is already queued
if redis.call('HSETNX', KEYS[2], ARGV[1], ARGV[3]) == 0 then
  return 0
end
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[1])
return 1
`)

var popDueScript = redis.NewScript(`
-- KEYS[1] = queue zset
-- KEYS[2] = jobs hash
-- ARGV[1] = max score (unix ms)
-- ARGV[2] = limit
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
local out = {}
for _, id in ipairs(ids) do
  local body = redis.call('HGET', KEYS[2], id)
  redis.call('ZREM', KEYS[1], id)
  redis.call('HDEL', KEYS[2], id)
  if body then
    table.insert(out, body)
  end
end
return out
`)

func (s *RedisScheduler) Enqueue(ctx context.Context, j Job) error {
	if err := j.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(j)
	if err != nil {
		return err
	}
	if err := enqueueScript.Run(ctx, s.client, []string{s.queue, s.jobs}, j.CallID, j.NotBefore.UnixMilli(), string(body)).Err(); err != nil {
		return fmt.Errorf("retry: enqueue: %w", err)
	}
	return nil
}

// Due atomically pops up to limit jobs that are ready at now.
func (s *RedisScheduler) Due(ctx context.Context, now time.Time, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 100
	}
	raw, err := popDueScript.Run(ctx, s.client, []string{s.queue, s.jobs}, now.UnixMilli(), limit).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("retry: pop due: %w", err)
	}
	out := make([]Job, 0, len(raw))
	for _, b := range raw {
		var j Job
		if err := json.Unmarshal([]byte(b), &j); err != nil {
			return nil, fmt.Errorf("retry: decode job: %w", err)
		}
		out = append(out, j)
	}
	return out, nil
}
