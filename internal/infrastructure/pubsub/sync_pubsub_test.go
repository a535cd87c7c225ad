package pubsub

import (
	"context"
	"testing"
	"time"

	"ledger-shopify-sync/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan *domain.SyncEvent) *domain.SyncEvent {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestSyncPubSub(t *testing.T) {
	t.Run("delivers to matching subscribers", func(t *testing.T) {
		ps := NewSyncPubSub(zerolog.Nop())
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		all := ps.Subscribe(ctx, nil)
		byStore := ps.Subscribe(ctx, &SyncEventFilter{StoreID: "s1"})
		byTopic := ps.Subscribe(ctx, &SyncEventFilter{Topics: []string{"bulk/product"}})

		ps.Publish(&domain.SyncEvent{StoreID: "s2", Topic: "bulk/product", Status: "completed"})

		assert.Equal(t, "bulk/product", receive(t, all.Events).Topic)
		assert.Equal(t, "completed", receive(t, byTopic.Events).Status)
		select {
		case <-byStore.Events:
			t.Fatal("filtered subscriber received a foreign store's event")
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("context cancellation unsubscribes", func(t *testing.T) {
		ps := NewSyncPubSub(zerolog.Nop())
		ctx, cancel := context.WithCancel(context.Background())

		sub := ps.Subscribe(ctx, nil)
		require.Equal(t, 1, ps.Stats()["active_subscriptions"])

		cancel()
		select {
		case <-sub.Done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for unsubscribe")
		}
		assert.Equal(t, 0, ps.Stats()["active_subscriptions"])
	})

	t.Run("full buffer drops instead of blocking", func(t *testing.T) {
		ps := NewSyncPubSub(zerolog.Nop())
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sub := ps.Subscribe(ctx, nil)
		for i := 0; i < cap(sub.Events)+5; i++ {
			ps.Publish(&domain.SyncEvent{Topic: "bulk/product"})
		}

		assert.Len(t, sub.Events, cap(sub.Events))
	})
}
