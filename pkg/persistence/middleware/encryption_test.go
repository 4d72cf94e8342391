package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhammadut/Finite-State-Machine/pkg/adapters/memory"
	"github.com/muhammadut/Finite-State-Machine/pkg/domain"
	"github.com/muhammadut/Finite-State-Machine/pkg/persistence/middleware"
	"github.com/muhammadut/Finite-State-Machine/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func newSecureStore(t *testing.T, underlying ports.SessionStore, active []byte, fallbacks ...[]byte) ports.SessionStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    active,
		FallbackKeys: fallbacks,
	})
	require.NoError(t, err)
	return mw(underlying)
}

func sampleSession(id string) *domain.Session {
	now := time.Date(2025, 5, 3, 9, 30, 0, 0, time.UTC)
	return &domain.Session{
		ID:        id,
		Machine:   "mod-three",
		Current:   "S1",
		History:   []string{"S0", "S1"},
		Accepting: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, newSecureStore(t, memory.NewStore(), generateKey(t)))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	secure := newSecureStore(t, underlying, generateKey(t))

	require.NoError(t, secure.Save(ctx, sampleSession("s1")))

	stored, err := underlying.Load(ctx, "s1")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Sealed)
	assert.Empty(t, stored.Machine)
	assert.Empty(t, stored.Current)
	assert.Nil(t, stored.History)
	assert.True(t, stored.UpdatedAt.Equal(sampleSession("s1").UpdatedAt))

	loaded, err := secure.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "S1", loaded.Current)
	assert.Equal(t, []string{"S0", "S1"}, loaded.History)
	assert.Empty(t, loaded.Sealed)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	secureOld := newSecureStore(t, underlying, oldKey)
	require.NoError(t, secureOld.Save(ctx, sampleSession("rot")))

	secureNew := newSecureStore(t, underlying, newKey, oldKey)
	loaded, err := secureNew.Load(ctx, "rot")
	require.NoError(t, err, "fallback key should open the old envelope")
	assert.Equal(t, "S1", loaded.Current)

	loaded.Current = "S0"
	loaded.History = []string{"S0"}
	require.NoError(t, secureNew.Save(ctx, loaded))

	_, err = secureOld.Load(ctx, "rot")
	assert.ErrorIs(t, err, middleware.ErrDecrypt)
}

func TestEncryptionMiddleware_PlainSessionRejected(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewStore()
	require.NoError(t, underlying.Save(ctx, sampleSession("plain")))

	_, err := newSecureStore(t, underlying, generateKey(t)).Load(ctx, "plain")
	assert.ErrorIs(t, err, middleware.ErrNotSealed)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("short")},
	})
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)
}

type recordingStore struct {
	ports.SessionStore
	saves *[]string
	name  string
}

func (r recordingStore) Save(ctx context.Context, s *domain.Session) error {
	*r.saves = append(*r.saves, r.name)
	return r.SessionStore.Save(ctx, s)
}

func TestChain_Order(t *testing.T) {
	var saves []string
	record := func(name string) middleware.Middleware {
		return func(next ports.SessionStore) ports.SessionStore {
			return recordingStore{SessionStore: next, saves: &saves, name: name}
		}
	}

	store := middleware.Chain(memory.NewStore(), record("outer"), record("inner"))
	require.NoError(t, store.Save(context.Background(), sampleSession("c1")))
	assert.Equal(t, []string{"outer", "inner"}, saves)
}
