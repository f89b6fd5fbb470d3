// Package redisrepo implements the repository ports on Redis. Entities are
// stored as JSON values under typed key prefixes; TTL-style housekeeping maps
// directly onto Redis key expiry.
package redisrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	subKeyPrefix     = "sub:"
	userKeyPrefix    = "user:"
	invoiceKeyPrefix = "invoice:"
	inviteKeyPrefix  = "invite:"
	rateKeyPrefix    = "rate:"

	dateLayout = "2006-01-02"
)

// Store wraps the Redis client shared by all repositories
type Store struct {
	client *redis.Client
}

// NewStore connects to Redis and verifies the connection
func NewStore(ctx context.Context, url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Store{client: client}, nil
}

// Client exposes the underlying client for health checks
func (s *Store) Client() *redis.Client {
	return s.client
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	return s.client.Close()
}

// scanKeys collects all keys matching a prefix
func (s *Store) scanKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan %s keys: %w", prefix, err)
	}
	return keys, nil
}

// ttlOf returns the remaining lifetime of a key and whether an expiry is set
func (s *Store) ttlOf(ctx context.Context, key string) (time.Duration, bool, error) {
	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, false, fmt.Errorf("ttl of %s: %w", key, err)
	}
	// redis reports -1 for keys without expiry and -2 for missing keys
	if ttl < 0 {
		return 0, false, nil
	}
	return ttl, true, nil
}

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := formatDate(*t)
	return &formatted
}

func parseDatePtr(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := parseDate(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
