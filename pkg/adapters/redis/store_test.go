package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/muhammadut/Finite-State-Machine/pkg/adapters/redis"
	"github.com/muhammadut/Finite-State-Machine/pkg/domain"
	"github.com/muhammadut/Finite-State-Machine/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunSessionStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_KeysAndIndex(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("test:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.Session{ID: "abc", Current: "S0", History: []string{"S0"}}))

	assert.True(t, mr.Exists("test:abc"))
	members, err := mr.ZMembers("test:_index")
	require.NoError(t, err)
	assert.Equal(t, []string{"abc"}, members)

	require.NoError(t, store.Delete(ctx, "abc"))
	assert.False(t, mr.Exists("test:abc"))
}

func TestRedisStore_IndexDoesNotCollideWithSessions(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.Session{ID: "a", Current: "S0", History: []string{"S0"}}))
	require.NoError(t, store.Save(ctx, &domain.Session{ID: "index", Current: "S0", History: []string{"S0"}}))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "index"}, ids)

	loaded, err := store.Load(ctx, "index")
	require.NoError(t, err)
	assert.Equal(t, "S0", loaded.Current)

	err = store.Save(ctx, &domain.Session{ID: "_index", Current: "S0", History: []string{"S0"}})
	assert.ErrorIs(t, err, domain.ErrInvalidSessionID)
	members, err := mr.ZMembers(redis.DefaultPrefix + "_index")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "index"}, members)
}

func TestRedisStore_TTL(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.Session{ID: "short", Current: "S0", History: []string{"S0"}}))
	assert.Equal(t, time.Minute, mr.TTL(redis.DefaultPrefix+"short"))

	mr.FastForward(2 * time.Minute)

	_, err := store.Load(ctx, "short")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRedisStore_PrunesExpiredIndexEntries(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	// An index entry whose expiry lies in the past.
	_, err := mr.ZAdd(redis.DefaultPrefix+"_index", 1, "stale")
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, &domain.Session{ID: "live", Current: "S0", History: []string{"S0"}}))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"live"}, ids)
}

func TestRedisStore_ConnectionError(t *testing.T) {
	store := redis.New("127.0.0.1:1", "", 0)
	t.Cleanup(func() { _ = store.Close() })

	_, err := store.Load(context.Background(), "abc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSessionNotFound)
}
