package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNotifier_PublishAndSubscribe(t *testing.T) {
	client := setupRedis(t)
	notifier := NewNotifier(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan Event, 1)
	err := notifier.StartContextSubscriber(ctx, func(channel, payload string) {
		var ev Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			t.Errorf("bad payload on %s: %v", channel, err)
			return
		}
		received <- ev
	})
	require.NoError(t, err)

	// PSubscribe is asynchronous; give the subscriber a moment to register.
	time.Sleep(50 * time.Millisecond)

	want := Event{Name: "comment_created", ContextID: 7, ObjectID: 42, UserID: 3, At: 1_700_000_000}
	require.NoError(t, notifier.PublishContextEvent(ctx, want))

	select {
	case got := <-received:
		assert.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestNotifier_NilClientIsNoop(t *testing.T) {
	notifier := NewNotifier(nil)
	ctx := context.Background()

	assert.NoError(t, notifier.PublishContextEvent(ctx, Event{Name: "comment_created", ContextID: 7}))
	assert.NoError(t, notifier.StartContextSubscriber(ctx, func(string, string) {
		t.Error("subscriber must not run without a client")
	}))
}

func TestContextChannel(t *testing.T) {
	assert.Equal(t, "comments:context:7", ContextChannel(7))
	assert.Equal(t, "comments:context:0", ContextChannel(0))
}
