package sessions

import (
	"chaldea/sources/platform"
	"chaldea/sources/tracing"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTable stores entries as JSON values under session:<table>:<key>; expiry is the
// key TTL.
type RedisTable struct {
	name   string
	ttl    time.Duration
	client *redis.Client
}

func NewRedisTable(name string, ttl time.Duration, client *redis.Client) *RedisTable {
	return &RedisTable{name: name, ttl: ttl, client: client}
}

func (x *RedisTable) Name() string {
	return x.name
}

func (x *RedisTable) key(key string) string {
	return "session:" + x.name + ":" + key
}

func (x *RedisTable) Put(log *tracing.Logger, key string, entry Entry) error {
	defer tracing.ProfilePoint(log, "Session put completed", "sessions.put", tracing.SessionTable, x.name, tracing.SessionKey, key)()

	ctx, cancel := platform.ContextTimeoutVal(context.Background(), 5*time.Second)
	defer cancel()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.E("Failed to marshal session", tracing.InnerError, err)
		return err
	}

	if err := x.client.Set(ctx, x.key(key), data, x.ttl).Err(); err != nil {
		log.E("Failed to set session in Redis", tracing.InnerError, err)
		return err
	}

	return nil
}

func (x *RedisTable) Get(log *tracing.Logger, key string) (Entry, error) {
	defer tracing.ProfilePoint(log, "Session get completed", "sessions.get", tracing.SessionTable, x.name, tracing.SessionKey, key)()

	ctx, cancel := platform.ContextTimeoutVal(context.Background(), 5*time.Second)
	defer cancel()

	data, err := x.client.Get(ctx, x.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, ErrSessionNotFound
	}
	if err != nil {
		log.E("Failed to get session from Redis", tracing.InnerError, err)
		return Entry{}, err
	}

	var entry Entry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		log.E("Failed to unmarshal session", tracing.InnerError, err)
		return Entry{}, err
	}

	return entry, nil
}

func (x *RedisTable) Update(log *tracing.Logger, key string, mutate func(*Entry)) error {
	entry, err := x.Get(log, key)
	if err != nil {
		return err
	}

	mutate(&entry)

	data, err := json.Marshal(entry)
	if err != nil {
		log.E("Failed to marshal session", tracing.InnerError, err)
		return err
	}

	ctx, cancel := platform.ContextTimeoutVal(context.Background(), 5*time.Second)
	defer cancel()

	if err := x.client.Set(ctx, x.key(key), data, redis.KeepTTL).Err(); err != nil {
		log.E("Failed to update session in Redis", tracing.InnerError, err)
		return err
	}
	return nil
}

func (x *RedisTable) Delete(log *tracing.Logger, key string) error {
	ctx, cancel := platform.ContextTimeoutVal(context.Background(), 5*time.Second)
	defer cancel()

	if err := x.client.Del(ctx, x.key(key)).Err(); err != nil {
		log.E("Failed to delete session from Redis", tracing.InnerError, err)
		return err
	}
	return nil
}

func (x *RedisTable) Count(log *tracing.Logger) (int, error) {
	ctx, cancel := platform.ContextTimeoutVal(context.Background(), 10*time.Second)
	defer cancel()

	count := 0
	iter := x.client.Scan(ctx, 0, x.key("*"), 256).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		log.E("Failed to count sessions in Redis", tracing.InnerError, err)
		return 0, err
	}
	return count, nil
}
