package natskv

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/hamed0406/uptimewatch/internal/repo"
)

const DefaultBucket = "uptime"

// Store persists documents as values in a JetStream KeyValue bucket.
type Store struct {
	nc *nats.Conn
	kv nats.KeyValue
}

// New connects and opens bucket, creating it when it does not exist.
func New(url, bucket string) (*Store, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}
	nc, err := nats.Connect(url, nats.Name("uptimewatch"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	kv, err := js.KeyValue(bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      bucket,
			Description: "uptime monitor documents",
			History:     1,
		})
	}
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("open bucket %q: %w", bucket, err)
	}
	return &Store{nc: nc, kv: kv}, nil
}

func (s *Store) Get(_ context.Context, name string) ([]byte, error) {
	entry, err := s.kv.Get(name)
	if errors.Is(err, nats.ErrKeyNotFound) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	return entry.Value(), nil
}

func (s *Store) Put(_ context.Context, name string, data []byte) error {
	if _, err := s.kv.Put(name, data); err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.nc == nil {
		return nil
	}
	if err := s.nc.Drain(); err != nil {
		s.nc.Close()
		return fmt.Errorf("drain nats: %w", err)
	}
	return nil
}

var _ repo.DocumentStore = (*Store)(nil)
