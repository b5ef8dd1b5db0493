package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisEpisodicBackend persists an Episodic store's full episode list as a
// single JSON blob under one Redis key, the same pattern
// learning.RedisPatternStore uses for a Knowledge Base snapshot — giving
// multiple processes (e.g. several agent hosts sharing one Sentinel run) a
// common view of episodic memory instead of each holding its own
// in-process copy.
type RedisEpisodicBackend struct {
	client    *redis.Client
	namespace string
}

// NewRedisEpisodicBackend dials redisURL with the same pool settings
// learning.NewRedisPatternStore uses, under namespace.
func NewRedisEpisodicBackend(redisURL, namespace string) (*RedisEpisodicBackend, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.MaxRetries = 3

	return &RedisEpisodicBackend{client: redis.NewClient(opts), namespace: namespace}, nil
}

// NewRedisEpisodicBackendWithClient wraps an already-constructed client,
// for tests driving the backend against miniredis.
func NewRedisEpisodicBackendWithClient(client *redis.Client, namespace string) *RedisEpisodicBackend {
	return &RedisEpisodicBackend{client: client, namespace: namespace}
}

func (b *RedisEpisodicBackend) key() string {
	return fmt.Sprintf("%s:episodic:episodes", b.namespace)
}

// Save writes every episode currently held by e as one JSON array.
func (b *RedisEpisodicBackend) Save(ctx context.Context, e *Episodic) error {
	data, err := json.Marshal(e.episodes)
	if err != nil {
		return fmt.Errorf("marshal episodes: %w", err)
	}
	if err := b.client.Set(ctx, b.key(), data, 0).Err(); err != nil {
		return fmt.Errorf("write episodic snapshot to redis: %w", err)
	}
	return nil
}

// Load rebuilds an Episodic from the shared snapshot. A missing key
// returns a freshly empty Episodic, not an error — there is simply
// nothing shared yet.
func (b *RedisEpisodicBackend) Load(ctx context.Context) (*Episodic, error) {
	data, err := b.client.Get(ctx, b.key()).Bytes()
	if err == redis.Nil {
		return NewEpisodic(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read episodic snapshot from redis: %w", err)
	}

	var episodes []Episode
	if err := json.Unmarshal(data, &episodes); err != nil {
		return nil, fmt.Errorf("unmarshal episodes: %w", err)
	}
	return &Episodic{episodes: episodes}, nil
}

// Close releases the underlying connection pool.
func (b *RedisEpisodicBackend) Close() error {
	return b.client.Close()
}
