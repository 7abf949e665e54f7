// Package redis persists session history in Redis, for deployments that
// want shared history with an expiry.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smallnest/datalyst/session"
)

// RedisStore implements session.Store using Redis. Each entry is stored
// under its own key and indexed in a per-session set.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOptions configuration for the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default "datalyst:"
	TTL      time.Duration // Expiration for entries, default 0 (no expiration)
}

// NewRedisStore creates a new Redis-backed history store.
func NewRedisStore(opts RedisOptions) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "datalyst:"
	}

	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    opts.TTL,
	}
}

func (s *RedisStore) entryKey(id string) string {
	return fmt.Sprintf("%sentry:%s", s.prefix, id)
}

func (s *RedisStore) sessionKey(id string) string {
	return fmt.Sprintf("%ssession:%s:entries", s.prefix, id)
}

// Save stores an entry and indexes it under its session.
func (s *RedisStore) Save(ctx context.Context, entry *session.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.entryKey(entry.ID), data, s.ttl)

	sessKey := s.sessionKey(entry.SessionID)
	pipe.SAdd(ctx, sessKey, entry.ID)
	if s.ttl > 0 {
		pipe.Expire(ctx, sessKey, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save entry to redis: %w", err)
	}
	return nil
}

// Load retrieves an entry by ID.
func (s *RedisStore) Load(ctx context.Context, entryID string) (*session.Entry, error) {
	data, err := s.client.Get(ctx, s.entryKey(entryID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%w: %s", session.ErrEntryNotFound, entryID)
		}
		return nil, fmt.Errorf("failed to load entry from redis: %w", err)
	}

	var entry session.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return &entry, nil
}

// List returns a session's entries in Seq order.
func (s *RedisStore) List(ctx context.Context, sessionID string, tab session.Tab) ([]*session.Entry, error) {
	ids, err := s.client.SMembers(ctx, s.sessionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list entries for session %s: %w", sessionID, err)
	}
	if len(ids) == 0 {
		return []*session.Entry{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.entryKey(id)
	}

	// MGet returns nil for expired keys; those entries are skipped.
	results, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entries: %w", err)
	}

	var entries []*session.Entry
	for _, result := range results {
		data, ok := result.(string)
		if !ok {
			continue
		}
		var entry session.Entry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			continue
		}
		if tab != "" && entry.Tab != tab {
			continue
		}
		entries = append(entries, &entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Tab != entries[j].Tab {
			return entries[i].Tab < entries[j].Tab
		}
		return entries[i].Seq < entries[j].Seq
	})
	return entries, nil
}

// Delete removes an entry and its session index reference.
func (s *RedisStore) Delete(ctx context.Context, entryID string) error {
	entry, err := s.Load(ctx, entryID)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.entryKey(entryID))
	pipe.SRem(ctx, s.sessionKey(entry.SessionID), entryID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return nil
}

// Clear removes all entries of a session including the index key.
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	sessKey := s.sessionKey(sessionID)
	ids, err := s.client.SMembers(ctx, sessKey).Result()
	if err != nil {
		return fmt.Errorf("failed to get entries for clearing: %w", err)
	}

	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, s.entryKey(id))
	}
	pipe.Del(ctx, sessKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}
	return nil
}
