package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/uniform-inventory/internal/adapter/storage"
	"github.com/rl1809/uniform-inventory/internal/core/domain"
	"github.com/rl1809/uniform-inventory/internal/core/service"
)

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, events []domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, events...)
	return nil
}

func (m *mockPublisher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func seedEvents(t *testing.T, store *storage.MemoryAdapter, n int) {
	t.Helper()
	unitID, err := store.CreateUniform(context.Background(), domain.UniformUnit{Garment: "Shirt", Size: "M"})
	require.NoError(t, err)

	stock := service.NewStockService(store, service.NewLedger(), service.NewMovementRecorder(), nil, 0)
	for i := 0; i < n; i++ {
		_, err := stock.RecordEntry(context.Background(), unitID, 1, 1)
		require.NoError(t, err)
	}
}

func TestRelayOnce(t *testing.T) {
	store := storage.NewMemoryAdapter()
	seedEvents(t, store, 3)
	pub := &mockPublisher{}
	relay := NewOutboxRelay(store, pub, nil, time.Second, 2)

	n, err := relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.Equal(t, 3, pub.count())
	for _, ev := range pub.events {
		assert.Equal(t, domain.EventStockMoved, ev.EventType)
	}
}

func TestRelayOnce_PublishFailureKeepsEventsPending(t *testing.T) {
	store := storage.NewMemoryAdapter()
	seedEvents(t, store, 2)
	pub := &mockPublisher{err: errors.New("broker down")}
	relay := NewOutboxRelay(store, pub, nil, time.Second, 10)

	_, err := relay.RelayOnce(context.Background())
	require.Error(t, err)

	pending, err := store.PendingEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	pub.err = nil
	n, err := relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStart_StopsOnCancel(t *testing.T) {
	store := storage.NewMemoryAdapter()
	seedEvents(t, store, 1)
	pub := &mockPublisher{}
	relay := NewOutboxRelay(store, pub, nil, 10*time.Millisecond, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
