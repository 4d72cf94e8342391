package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/muhammadut/Finite-State-Machine/pkg/adapters/memory"
	"github.com/muhammadut/Finite-State-Machine/pkg/adapters/redis"
	"github.com/muhammadut/Finite-State-Machine/pkg/automaton"
	"github.com/muhammadut/Finite-State-Machine/pkg/domain"
	"github.com/muhammadut/Finite-State-Machine/pkg/ports"
	"github.com/muhammadut/Finite-State-Machine/pkg/registry"
	"github.com/muhammadut/Finite-State-Machine/pkg/session"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	*memory.Store
}

func (s SlowStore) Save(ctx context.Context, sess *domain.Session) error {
	time.Sleep(2 * time.Millisecond)
	return s.Store.Save(ctx, sess)
}

func (s SlowStore) Load(ctx context.Context, id string) (*domain.Session, error) {
	time.Sleep(2 * time.Millisecond)
	return s.Store.Load(ctx, id)
}

func fixedClock() func() time.Time {
	t := time.Date(2025, 5, 3, 0, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func newManager(t *testing.T, opts ...session.Option) *session.Manager {
	t.Helper()
	opts = append([]session.Option{session.WithClock(fixedClock())}, opts...)
	return session.NewManager(memory.NewStore(), registry.Default(), opts...)
}

func TestManager_StartFeedReset(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	s, err := m.Start(ctx, "s1", "mod-three")
	require.NoError(t, err)
	assert.Equal(t, "S0", s.Current)
	assert.Equal(t, []string{"S0"}, s.History)

	s, err = m.Feed(ctx, "s1", []string{"1", "1"})
	require.NoError(t, err)
	assert.Equal(t, "S0", s.Current)

	// Continues from the stored cursor.
	s, err = m.Feed(ctx, "s1", []string{"0", "1"})
	require.NoError(t, err)
	assert.Equal(t, "S1", s.Current)
	assert.Equal(t, []string{"S0", "S1", "S0", "S0", "S1"}, s.History)

	loaded, err := m.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, s.History, loaded.History)

	s, err = m.Reset(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "S0", s.Current)
	assert.Equal(t, []string{"S0"}, s.History)
}

func TestManager_FeedPersistsPrefixOnError(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	_, err := m.Start(ctx, "s1", "mod-three")
	require.NoError(t, err)

	s, err := m.Feed(ctx, "s1", []string{"1", "0", "2", "1"})
	require.ErrorIs(t, err, automaton.ErrUnknownSymbol)
	require.NotNil(t, s)
	assert.Equal(t, "S2", s.Current)

	var stepErr *automaton.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 2, stepErr.Position)

	loaded, err := m.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"S0", "S1", "S2"}, loaded.History)
}

func TestManager_Errors(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	_, err := m.Start(ctx, "s1", "no-such-machine")
	assert.ErrorIs(t, err, registry.ErrDefinitionNotFound)

	_, err = m.Start(ctx, "bad/id", "mod-three")
	assert.ErrorIs(t, err, domain.ErrInvalidSessionID)

	_, err = m.Start(ctx, "s1", "mod-three")
	require.NoError(t, err)
	_, err = m.Start(ctx, "s1", "mod-three")
	assert.ErrorIs(t, err, domain.ErrSessionExists)

	_, err = m.Feed(ctx, "missing", []string{"1"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = m.Reset(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	assert.ErrorIs(t, m.Delete(ctx, "missing"), domain.ErrSessionNotFound)
}

func TestManager_RejectsTamperedSession(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	m := session.NewManager(store, registry.Default())

	require.NoError(t, store.Save(ctx, &domain.Session{
		ID:      "tampered",
		Machine: "mod-three",
		Current: "S9",
		History: []string{"S0", "S9"},
	}))

	_, err := m.Feed(ctx, "tampered", []string{"1"})
	assert.ErrorIs(t, err, automaton.ErrInvalidSnapshot)
}

func TestManager_DeleteAndList(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)

	for _, id := range []string{"b", "a"} {
		_, err := m.Start(ctx, id, "mod-three")
		require.NoError(t, err)
	}

	ids, err := m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	require.NoError(t, m.Delete(ctx, "a"))

	ids, err = m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
}

func TestManager_SerializesFeeds(t *testing.T) {
	ctx := context.Background()
	m := session.NewManager(SlowStore{memory.NewStore()}, registry.Default())

	_, err := m.Start(ctx, "race-test", "mod-three")
	require.NoError(t, err)

	const writers = 20
	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Feed(ctx, "race-test", []string{"1"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// A lost update would drop entries from the history.
	s, err := m.Load(ctx, "race-test")
	require.NoError(t, err)
	assert.Len(t, s.History, writers+1)
	// 2^20 - 1 is divisible by three.
	assert.Equal(t, "S0", s.Current)
}

func TestManager_AutomatonOptions(t *testing.T) {
	ctx := context.Background()

	var transitions []string
	m := newManager(t, session.WithAutomatonOptions(func(machine string) []automaton.Option[string, string] {
		return []automaton.Option[string, string]{
			automaton.WithHooks(automaton.Hooks[string, string]{
				OnTransition: func(ev automaton.TransitionEvent[string, string]) {
					transitions = append(transitions, machine+":"+ev.From+"->"+ev.To)
				},
			}),
		}
	}))

	_, err := m.Start(ctx, "s1", "mod-three")
	require.NoError(t, err)
	_, err = m.Feed(ctx, "s1", []string{"1", "0"})
	require.NoError(t, err)

	assert.Equal(t, []string{"mod-three:S0->S1", "mod-three:S1->S2"}, transitions)
}

type recordingLocker struct {
	mu   sync.Mutex
	keys []string
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	l.keys = append(l.keys, key)
	l.mu.Unlock()
	return func(context.Context) error { return nil }, nil
}

func TestManager_UsesDistributedLocker(t *testing.T) {
	ctx := context.Background()
	locker := &recordingLocker{}
	m := newManager(t, session.WithLocker(locker))

	_, err := m.Start(ctx, "s1", "mod-three")
	require.NoError(t, err)
	_, err = m.Feed(ctx, "s1", []string{"1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"s1", "s1"}, locker.keys)
}

func TestManager_RedisBackedReplicas(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	// Two managers share storage and locks, as two replicas would.
	newReplica := func() *session.Manager {
		return session.NewManager(
			redis.NewFromClient(client),
			registry.Default(),
			session.WithLocker(redis.NewLocker(client, redis.DefaultPrefix)),
			session.WithLockTTL(5*time.Second),
		)
	}
	a, b := newReplica(), newReplica()

	_, err := a.Start(ctx, "shared", "mod-three")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, m := range []*session.Manager{a, b, a, b} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Feed(ctx, "shared", []string{"1", "0"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s, err := b.Load(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, s.History, 9)
	assert.False(t, mr.Exists(redis.DefaultPrefix+"lock:shared"))
}
