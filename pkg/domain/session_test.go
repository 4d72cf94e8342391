package domain_test

import (
	"testing"
	"time"

	"github.com/muhammadut/Finite-State-Machine/pkg/automaton"
	"github.com/muhammadut/Finite-State-Machine/pkg/domain"
	"github.com/muhammadut/Finite-State-Machine/pkg/modthree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_TracksAutomaton(t *testing.T) {
	a, err := modthree.Definition().Build()
	require.NoError(t, err)

	created := time.Date(2025, 5, 3, 12, 0, 0, 0, time.UTC)
	s := domain.NewSession("s1", "mod-three", a, created)
	assert.Equal(t, "S0", s.Current)
	assert.Equal(t, []string{"S0"}, s.History)
	assert.True(t, s.Accepting)
	assert.Equal(t, 0, s.Len())

	_, err = a.Run([]string{"1", "0"})
	require.NoError(t, err)

	later := created.Add(time.Minute)
	s.Apply(a, later)
	assert.Equal(t, "S2", s.Current)
	assert.Equal(t, []string{"S0", "S1", "S2"}, s.History)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, created, s.CreatedAt)
	assert.Equal(t, later, s.UpdatedAt)

	b, err := modthree.Definition().Build()
	require.NoError(t, err)
	require.NoError(t, b.Restore(s.Snapshot()))
	assert.Equal(t, "S2", b.Current())
}

func TestSession_CloneIsDeep(t *testing.T) {
	s := &domain.Session{ID: "x", History: []string{"a", "b"}}
	c := s.Clone()
	c.History[0] = "z"
	assert.Equal(t, "a", s.History[0])
}

func TestSession_SnapshotIsDetached(t *testing.T) {
	s := &domain.Session{Current: "b", History: []string{"a", "b"}}
	snap := s.Snapshot()
	snap.History[0] = "z"
	assert.Equal(t, []string{"a", "b"}, s.History)
	assert.IsType(t, automaton.Snapshot[string]{}, snap)
}

func TestValidateID(t *testing.T) {
	for _, id := range []string{"abc", "A-1_b.2", "index", "a_", "0d5c1c6e-3f1a-4c4e-9a53-1b2c3d4e5f60"} {
		assert.NoError(t, domain.ValidateID(id), id)
	}
	for _, id := range []string{"", ".hidden", "_index", "../etc", "a/b", "a b", "ümlaut"} {
		assert.ErrorIs(t, domain.ValidateID(id), domain.ErrInvalidSessionID, id)
	}
}
