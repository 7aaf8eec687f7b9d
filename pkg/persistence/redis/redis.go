// Package redis provides a Redis document store.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/redis/go-redis/v9"
)

// Store keeps each document under <prefix>:<collection>:<id> and tracks the
// ids of a collection in the set <prefix>:<collection>.
type Store struct {
	client *redis.Client
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix. Default is "flowrun".
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// NewStore creates a Redis-backed document store.
func NewStore(client *redis.Client, opts ...Option) *Store {
	store := &Store{client: client, prefix: "flowrun"}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// NewStoreFromURL parses a redis:// URL and creates a store.
func NewStoreFromURL(url string, opts ...Option) (*Store, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return NewStore(redis.NewClient(options), opts...), nil
}

func (s *Store) documentKey(collection, id string) string {
	return strings.Join([]string{s.prefix, collection, id}, ":")
}

func (s *Store) indexKey(collection string) string {
	return s.prefix + ":" + collection
}

// Put writes the document and records its id in the collection index.
func (s *Store) Put(ctx context.Context, collection, id string, doc []byte) error {
	if id == "" {
		return persistence.NewDocumentError("Put", collection, id, persistence.ErrInvalidID)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.documentKey(collection, id), doc, 0)
	pipe.SAdd(ctx, s.indexKey(collection), id)

	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.NewDocumentError("Put", collection, id, fmt.Errorf("redis pipeline failed: %w", err))
	}

	return nil
}

// Get reads a document.
func (s *Store) Get(ctx context.Context, collection, id string) ([]byte, error) {
	doc, err := s.client.Get(ctx, s.documentKey(collection, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, persistence.NewDocumentError("Get", collection, id, persistence.ErrNotFound)
	}

	if err != nil {
		return nil, persistence.NewDocumentError("Get", collection, id, fmt.Errorf("redis get failed: %w", err))
	}

	return doc, nil
}

// Delete removes a document and its index entry.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.documentKey(collection, id))
	pipe.SRem(ctx, s.indexKey(collection), id)

	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.NewDocumentError("Delete", collection, id, fmt.Errorf("redis pipeline failed: %w", err))
	}

	return nil
}

// List returns every document of a collection ordered by id.
func (s *Store) List(ctx context.Context, collection string) ([][]byte, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey(collection)).Result()
	if err != nil {
		return nil, persistence.NewDocumentError("List", collection, "", fmt.Errorf("redis smembers failed: %w", err))
	}

	if len(ids) == 0 {
		return [][]byte{}, nil
	}

	sort.Strings(ids)

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.documentKey(collection, id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, persistence.NewDocumentError("List", collection, "", fmt.Errorf("redis mget failed: %w", err))
	}

	docs := make([][]byte, 0, len(values))

	for _, value := range values {
		if raw, ok := value.(string); ok {
			docs = append(docs, []byte(raw))
		}
	}

	return docs, nil
}

// HealthCheck pings the server.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

// Close closes the client.
func (s *Store) Close(_ context.Context) error {
	return s.client.Close()
}
