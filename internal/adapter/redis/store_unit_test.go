package redis_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redisstore "github.com/couchcryptid/pop-status-service/internal/adapter/redis"
	"github.com/couchcryptid/pop-status-service/internal/domain"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const unitKey = "modified_pop_status"

func startMiniredis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStore_GetMissingKey(t *testing.T) {
	_, client := startMiniredis(t)
	store := redisstore.NewStore(client, unitKey, discardLogger())

	got, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, got.Found)
	assert.Equal(t, "0", got.Revision)
}

func TestStore_PutThenGet(t *testing.T) {
	mr, client := startMiniredis(t)
	store := redisstore.NewStore(client, unitKey, discardLogger())
	ctx := context.Background()

	written, err := store.Put(ctx, `{"AMS":1}`, "0")
	require.NoError(t, err)
	assert.Equal(t, domain.StoredOverrides{Value: `{"AMS":1}`, Found: true, Revision: "1"}, written)

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, written, got)
	assert.Equal(t, "1", mr.HGet(unitKey, "version"))
}

func TestStore_PutStaleRevision(t *testing.T) {
	_, client := startMiniredis(t)
	store := redisstore.NewStore(client, unitKey, discardLogger())
	ctx := context.Background()

	first, err := store.Get(ctx)
	require.NoError(t, err)

	_, err = store.Put(ctx, `{"AMS":1}`, first.Revision)
	require.NoError(t, err)

	_, err = store.Put(ctx, `{"LHR":2}`, first.Revision)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOverrideConflict)

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"AMS":1}`, got.Value)
}

func TestStore_PutEmptyRevisionIsUnconditional(t *testing.T) {
	mr, client := startMiniredis(t)
	mr.HSet(unitKey, "value", `{"AMS":1}`, "version", "7")
	store := redisstore.NewStore(client, unitKey, discardLogger())

	written, err := store.Put(context.Background(), `{}`, "")
	require.NoError(t, err)
	assert.Equal(t, "8", written.Revision)
}

// interleavingHook writes to the watched key right before the MULTI/EXEC
// pipeline runs, so the transaction is aborted by WATCH.
type interleavingHook struct {
	mr   *miniredis.Miniredis
	done bool
}

func (h *interleavingHook) DialHook(next goredis.DialHook) goredis.DialHook { return next }

func (h *interleavingHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook { return next }

func (h *interleavingHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		if !h.done {
			h.done = true
			h.mr.HSet(unitKey, "version", "41")
		}
		return next(ctx, cmds)
	}
}

func TestStore_PutConcurrentWriteAbortsTransaction(t *testing.T) {
	mr, client := startMiniredis(t)
	client.AddHook(&interleavingHook{mr: mr})
	store := redisstore.NewStore(client, unitKey, discardLogger())

	_, err := store.Put(context.Background(), `{"AMS":1}`, "0")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOverrideConflict)
	assert.Equal(t, "41", mr.HGet(unitKey, "version"))
	assert.Empty(t, mr.HGet(unitKey, "value"))
}

func TestStore_PutCorruptVersion(t *testing.T) {
	mr, client := startMiniredis(t)
	mr.HSet(unitKey, "value", `{}`, "version", "banana")
	store := redisstore.NewStore(client, unitKey, discardLogger())

	_, err := store.Put(context.Background(), `{"AMS":1}`, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMalformedPayload)
}

func TestStore_Unreachable(t *testing.T) {
	mr, client := startMiniredis(t)
	store := redisstore.NewStore(client, unitKey, discardLogger())
	mr.Close()

	_, err := store.Get(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnreachable)

	var src *domain.SourceError
	require.True(t, errors.As(err, &src))
	assert.Equal(t, domain.SourceOverrideStore, src.Source)
}
