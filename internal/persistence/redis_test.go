package persistence_test

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/task-service/internal/persistence"
)

// keyStore answers SET NX and DEL in memory so no server is needed.
type keyStore struct {
	mu   sync.Mutex
	keys map[string]bool
	args [][]interface{}
	err  error
}

func newKeyStore() *keyStore {
	return &keyStore{keys: make(map[string]bool)}
}

func (k *keyStore) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, errors.New("dial not expected")
	}
}

func (k *keyStore) ProcessHook(redis.ProcessHook) redis.ProcessHook {
	return func(_ context.Context, cmd redis.Cmder) error {
		k.mu.Lock()
		defer k.mu.Unlock()
		k.args = append(k.args, cmd.Args())
		if k.err != nil {
			cmd.SetErr(k.err)
			return k.err
		}
		key, _ := cmd.Args()[1].(string)
		switch c := cmd.(type) {
		case *redis.BoolCmd:
			fresh := !k.keys[key]
			k.keys[key] = true
			c.SetVal(fresh)
		case *redis.IntCmd:
			if k.keys[key] {
				delete(k.keys, key)
				c.SetVal(1)
			} else {
				c.SetVal(0)
			}
		}
		return nil
	}
}

func (k *keyStore) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func newMarker(t *testing.T) (*persistence.RedisMarker, *keyStore) {
	t.Helper()
	store := newKeyStore()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	client.AddHook(store)
	t.Cleanup(func() { _ = client.Close() })
	return persistence.NewRedisMarker(client), store
}

func TestRedisMarker_MarkOnce(t *testing.T) {
	ctx := context.Background()
	marker, store := newMarker(t)

	fresh, err := marker.MarkOnce(ctx, "deadline:t1:2024-05-20", 48*time.Hour)
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = marker.MarkOnce(ctx, "deadline:t1:2024-05-20", 48*time.Hour)
	require.NoError(t, err)
	assert.False(t, fresh, "second mark within the ttl is refused")

	fresh, err = marker.MarkOnce(ctx, "deadline:t1:2024-05-21", 48*time.Hour)
	require.NoError(t, err)
	assert.True(t, fresh)

	first := store.args[0]
	assert.Equal(t, "set", first[0])
	assert.Equal(t, "task-service:sweep:deadline:t1:2024-05-20", first[1])
	assert.Contains(t, first, "nx")
	assert.Contains(t, first, "ex")
	assert.Contains(t, first, int64(172800))
}

func TestRedisMarker_Release(t *testing.T) {
	ctx := context.Background()
	marker, _ := newMarker(t)

	_, err := marker.MarkOnce(ctx, "inactivity:w1:2024-05-20", time.Hour)
	require.NoError(t, err)
	require.NoError(t, marker.Release(ctx, "inactivity:w1:2024-05-20"))

	fresh, err := marker.MarkOnce(ctx, "inactivity:w1:2024-05-20", time.Hour)
	require.NoError(t, err)
	assert.True(t, fresh, "released keys can be marked again")
}

func TestRedisMarker_Errors(t *testing.T) {
	ctx := context.Background()
	marker, store := newMarker(t)
	store.err = errors.New("READONLY")

	_, err := marker.MarkOnce(ctx, "k", time.Hour)
	assert.Error(t, err)
	assert.Error(t, marker.Release(ctx, "k"))

	var unset *persistence.RedisMarker
	_, err = unset.MarkOnce(ctx, "k", time.Hour)
	assert.Error(t, err)
	assert.Error(t, persistence.NewRedisMarker(nil).Release(ctx, "k"))
}
