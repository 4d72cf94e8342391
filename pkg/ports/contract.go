package ports

import (
	"context"
	"testing"
	"time"

	"github.com/muhammadut/Finite-State-Machine/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")
	created := time.Date(2025, 5, 3, 9, 30, 0, 0, time.UTC)

	newSession := func(id string) *domain.Session {
		return &domain.Session{
			ID:        id,
			Machine:   "mod-three",
			Current:   "S1",
			History:   []string{"S0", "S1", "S0", "S0", "S1"},
			Accepting: true,
			CreatedAt: created,
			UpdatedAt: created.Add(time.Second),
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		session := newSession(sessionID)

		err := store.Save(ctx, session)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, session.ID, loaded.ID)
		assert.Equal(t, session.Machine, loaded.Machine)
		assert.Equal(t, session.Current, loaded.Current)
		assert.Equal(t, session.History, loaded.History)
		assert.Equal(t, session.Accepting, loaded.Accepting)
		assert.True(t, session.CreatedAt.Equal(loaded.CreatedAt), "CreatedAt should survive persistence")
		assert.True(t, session.UpdatedAt.Equal(loaded.UpdatedAt), "UpdatedAt should survive persistence")
	})

	t.Run("Load Returns A Copy", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, newSession(sessionID)))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.History[0] = "mutated"
		loaded.Current = "mutated"

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "S0", again.History[0])
		assert.Equal(t, "S1", again.Current)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		session := newSession(sessionID)
		require.NoError(t, store.Save(ctx, session))

		session.Current = "S0"
		session.History = []string{"S0"}
		require.NoError(t, store.Save(ctx, session))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "S0", loaded.Current)
		assert.Equal(t, []string{"S0"}, loaded.History)
	})

	t.Run("Invalid ID", func(t *testing.T) {
		for _, id := range []string{"../escape", "_index", ""} {
			assert.ErrorIs(t, store.Save(ctx, newSession(id)), domain.ErrInvalidSessionID, "Save %q", id)

			_, err := store.Load(ctx, id)
			assert.ErrorIs(t, err, domain.ErrInvalidSessionID, "Load %q", id)

			assert.ErrorIs(t, store.Delete(ctx, id), domain.ErrInvalidSessionID, "Delete %q", id)
		}
	})

	t.Run("Reserved-Looking IDs", func(t *testing.T) {
		for _, id := range []string{"index", "lock"} {
			require.NoError(t, store.Save(ctx, newSession(id)))
		}
		defer func() {
			_ = store.Delete(ctx, "index")
			_ = store.Delete(ctx, "lock")
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, "index")
		assert.Contains(t, sessions, "lock")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, newSession(sessionID)))

		err := store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sessionID), "Deleting a missing session should not fail")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, newSession(id2)))
		require.NoError(t, store.Save(ctx, newSession(id1)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
		assert.IsNonDecreasing(t, sessions, "List should be sorted")
	})
}
