// ABOUTME: Redis-backed APIKeyStore for deployments that provision keys outside SQLite
// ABOUTME: Keys are JSON documents under a prefix with a set index for listing

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix namespaces all api key entries
const DefaultRedisKeyPrefix = "shelf:apikeys:"

// RedisOptions configures the connection used by RedisAPIKeyStore
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisAPIKeyStore implements APIKeyStore on top of Redis
type RedisAPIKeyStore struct {
	client    *redis.Client
	keyPrefix string
}

// storedAPIKey is the JSON document kept under each key
type storedAPIKey struct {
	Token       string    `json:"token"`
	Scopes      []string  `json:"scopes"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// OpenRedisAPIKeyStore connects to Redis and verifies the connection with a ping.
func OpenRedisAPIKeyStore(ctx context.Context, opts RedisOptions) (*RedisAPIKeyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}

	return NewRedisAPIKeyStore(client, opts.KeyPrefix), nil
}

// NewRedisAPIKeyStore wraps an existing client. An empty prefix uses DefaultRedisKeyPrefix.
func NewRedisAPIKeyStore(client *redis.Client, keyPrefix string) *RedisAPIKeyStore {
	if keyPrefix == "" {
		keyPrefix = DefaultRedisKeyPrefix
	}
	return &RedisAPIKeyStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (s *RedisAPIKeyStore) keyFor(token string) string {
	return s.keyPrefix + "key:" + token
}

func (s *RedisAPIKeyStore) indexKey() string {
	return s.keyPrefix + "index"
}

// CreateAPIKey stores a new key, returning ErrDuplicateAPIKey if the token exists.
func (s *RedisAPIKeyStore) CreateAPIKey(ctx context.Context, key *APIKey) error {
	key.Scopes = normalizeScopes(key.Scopes)
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(storedAPIKey{
		Token:       key.Token,
		Scopes:      key.Scopes,
		Description: key.Description,
		CreatedAt:   key.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encoding api key: %w", err)
	}

	var setnx *redis.BoolCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		setnx = pipe.SetNX(ctx, s.keyFor(key.Token), data, 0)
		pipe.SAdd(ctx, s.indexKey(), key.Token)
		return nil
	})
	if err != nil {
		// EXEC does not roll back: drop a document the index never saw.
		if setnx != nil && setnx.Val() {
			s.client.Del(ctx, s.keyFor(key.Token))
		}
		return fmt.Errorf("storing api key: %w", err)
	}
	if !setnx.Val() {
		return ErrDuplicateAPIKey
	}
	return nil
}

// GetAPIKey looks up a key by token, returning ErrNotFound when absent.
func (s *RedisAPIKeyStore) GetAPIKey(ctx context.Context, token string) (*APIKey, error) {
	data, err := s.client.Get(ctx, s.keyFor(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading api key: %w", err)
	}

	var stored storedAPIKey
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decoding api key: %w", err)
	}

	return &APIKey{
		Token:       stored.Token,
		Scopes:      stored.Scopes,
		Description: stored.Description,
		CreatedAt:   stored.CreatedAt,
	}, nil
}

// ListAPIKeys returns every indexed key, oldest first. Index entries whose
// document has disappeared are skipped.
func (s *RedisAPIKeyStore) ListAPIKeys(ctx context.Context) ([]*APIKey, error) {
	tokens, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}

	keys := make([]*APIKey, 0, len(tokens))
	for _, token := range tokens {
		key, err := s.GetAPIKey(ctx, token)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	sort.Slice(keys, func(a, b int) bool {
		return keys[a].CreatedAt.Before(keys[b].CreatedAt)
	})
	return keys, nil
}

// DeleteAPIKey removes a key and its index entry.
func (s *RedisAPIKeyStore) DeleteAPIKey(ctx context.Context, token string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.keyFor(token))
		pipe.SRem(ctx, s.indexKey(), token)
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting api key: %w", err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks the redis connection
func (s *RedisAPIKeyStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client
func (s *RedisAPIKeyStore) Close() error {
	return s.client.Close()
}
