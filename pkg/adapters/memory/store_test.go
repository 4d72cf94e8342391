package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/muhammadut/Finite-State-Machine/pkg/adapters/memory"
	"github.com/muhammadut/Finite-State-Machine/pkg/domain"
	"github.com/muhammadut/Finite-State-Machine/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, memory.NewStore())
}

func TestMemoryStore_SaveCopies(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	session := &domain.Session{ID: "s1", Current: "S1", History: []string{"S0", "S1"}}
	require.NoError(t, store.Save(ctx, session))

	session.History[1] = "mutated"

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"S0", "S1"}, loaded.History)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i)
			_ = store.Save(ctx, &domain.Session{ID: id, Current: "S0", History: []string{"S0"}})
			_, _ = store.Load(ctx, id)
			_, _ = store.List(ctx)
		}()
	}
	wg.Wait()

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 10)
}
