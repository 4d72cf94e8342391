package ports_test

import (
	"context"
	"slices"
	"testing"

	"github.com/muhammadut/Finite-State-Machine/pkg/domain"
	"github.com/muhammadut/Finite-State-Machine/pkg/ports"
)

// MockStore is a minimal map-backed SessionStore used to exercise the contract itself.
type MockStore struct {
	data map[string]*domain.Session
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]*domain.Session),
	}
}

func (m *MockStore) Save(ctx context.Context, session *domain.Session) error {
	if err := domain.ValidateID(session.ID); err != nil {
		return err
	}
	m.data[session.ID] = session.Clone()
	return nil
}

func (m *MockStore) Load(ctx context.Context, id string) (*domain.Session, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}
	session, ok := m.data[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (m *MockStore) Delete(ctx context.Context, id string) error {
	if err := domain.ValidateID(id); err != nil {
		return err
	}
	delete(m.data, id)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func TestMockStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, NewMockStore())
}
