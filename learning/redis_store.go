package learning

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/itsneelabh/sentinel-swarm/core"
)

// RedisPatternStore persists the Knowledge Base to Redis instead of a local
// file, for sharing learned patterns across processes, keyed and
// namespaced the way the teacher's RedisRegistry namespaces service
// records (_examples/itsneelabh-gomind/core/redis_registry.go).
type RedisPatternStore struct {
	client    *redis.Client
	namespace string
}

// NewRedisPatternStore dials redisURL and wraps it in namespace (falling
// back to core.DefaultNamespace), applying the same production-leaning pool
// settings the teacher's RedisRegistry uses.
func NewRedisPatternStore(redisURL, namespace string) (*RedisPatternStore, error) {
	if namespace == "" {
		namespace = core.DefaultNamespace
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", core.ErrInvalidConfiguration)
	}
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.MaxRetries = 3

	client := redis.NewClient(opt)
	return &RedisPatternStore{client: client, namespace: namespace}, nil
}

// NewRedisPatternStoreWithClient wraps an already-constructed redis.Client,
// letting tests point it at a miniredis instance without going through
// ParseURL.
func NewRedisPatternStoreWithClient(client *redis.Client, namespace string) *RedisPatternStore {
	if namespace == "" {
		namespace = core.DefaultNamespace
	}
	return &RedisPatternStore{client: client, namespace: namespace}
}

func (s *RedisPatternStore) key() string {
	return fmt.Sprintf("%s:knowledge-base:snapshot", s.namespace)
}

// Load fetches the snapshot blob. A missing key yields a nil snapshot, not
// an error, matching JSONFileStore's "start from empty state" behavior.
func (s *RedisPatternStore) Load(ctx context.Context) (*Snapshot, error) {
	data, err := s.client.Get(ctx, s.key()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("knowledge base redis load: %w", core.ErrConnectionFailed)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Save writes the whole snapshot blob in one SET, which is as close to
// atomic as a single-key Redis write gets — no reader ever observes a
// torn write across the patterns/relations/deviations maps.
func (s *RedisPatternStore) Save(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(), data, 0).Err(); err != nil {
		return fmt.Errorf("knowledge base redis save: %w", core.ErrConnectionFailed)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *RedisPatternStore) Close() error { return s.client.Close() }

var _ Store = (*RedisPatternStore)(nil)
