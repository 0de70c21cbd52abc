// Package redis stores the override map in a Redis hash with a version field,
// giving the mutate path a compare-and-swap write.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/couchcryptid/pop-status-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	fieldValue   = "value"
	fieldVersion = "version"
)

// Store implements the override store on one Redis hash key.
type Store struct {
	client redis.UniversalClient
	key    string
	logger *slog.Logger
}

// NewStore creates a store for key.
func NewStore(client redis.UniversalClient, key string, logger *slog.Logger) *Store {
	return &Store{client: client, key: key, logger: logger}
}

// Get reads the override map and its version. A missing key has revision "0".
func (s *Store) Get(ctx context.Context) (domain.StoredOverrides, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return domain.StoredOverrides{}, storeErr(fmt.Errorf("%w: hgetall %s: %w", domain.ErrUpstreamUnreachable, s.key, err))
	}

	value, found := fields[fieldValue]
	return domain.StoredOverrides{
		Value:    value,
		Found:    found,
		Revision: versionOrZero(fields[fieldVersion]),
	}, nil
}

// Put writes value when the stored version still equals revision. An empty
// revision writes unconditionally. A concurrent writer that got in first
// causes domain.ErrOverrideConflict.
func (s *Store) Put(ctx context.Context, value, revision string) (domain.StoredOverrides, error) {
	var written domain.StoredOverrides

	txf := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, s.key, fieldVersion).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: hget %s: %w", domain.ErrUpstreamUnreachable, s.key, err)
		}
		current = versionOrZero(current)
		if revision != "" && revision != current {
			return fmt.Errorf("%w: have version %s, write expected %s", domain.ErrOverrideConflict, current, revision)
		}

		n, err := strconv.ParseUint(current, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: version field %q: %w", domain.ErrMalformedPayload, current, err)
		}
		next := strconv.FormatUint(n+1, 10)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.key, fieldValue, value, fieldVersion, next)
			return nil
		})
		if err != nil {
			return err
		}
		written = domain.StoredOverrides{Value: value, Found: true, Revision: next}
		return nil
	}

	err := s.client.Watch(ctx, txf, s.key)
	switch {
	case err == nil:
		s.logger.Info("override map written", "key", s.key, "version", written.Revision)
		return written, nil
	case errors.Is(err, redis.TxFailedErr):
		return domain.StoredOverrides{}, storeErr(fmt.Errorf("%w: key %s modified during write", domain.ErrOverrideConflict, s.key))
	case errors.Is(err, domain.ErrOverrideConflict), errors.Is(err, domain.ErrUpstreamUnreachable), errors.Is(err, domain.ErrMalformedPayload):
		return domain.StoredOverrides{}, storeErr(err)
	default:
		return domain.StoredOverrides{}, storeErr(fmt.Errorf("%w: write %s: %w", domain.ErrUpstreamUnreachable, s.key, err))
	}
}

func versionOrZero(v string) string {
	if v == "" {
		return "0"
	}
	return v
}

func storeErr(err error) error {
	return &domain.SourceError{Source: domain.SourceOverrideStore, Err: err}
}
