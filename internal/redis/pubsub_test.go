package redisx

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlightsPubSub_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ps := NewFlightsPubSub(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu  sync.Mutex
		got []int64
	)
	done := make(chan error, 1)
	go func() {
		done <- ps.Subscribe(ctx, func(ctx context.Context, flightID int64) {
			mu.Lock()
			got = append(got, flightID)
			mu.Unlock()
		})
	}()

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(ChannelFlightsChanged())[ChannelFlightsChanged()] == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, ps.PublishFlightChanged(ctx, 42))
	require.NoError(t, rdb.Publish(ctx, ChannelFlightsChanged(), "not json").Err())
	require.NoError(t, ps.PublishFlightChanged(ctx, 43))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []int64{42, 43}, got)
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not stop")
	}
}

func TestFlightsPubSub_NilPublisher(t *testing.T) {
	var ps *FlightsPubSub
	assert.NoError(t, ps.PublishFlightChanged(context.Background(), 1))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "flightbook:v1:flight:7", KeyFlight(7))
	assert.Equal(t, "flightbook:v1:flight:7:availability", KeyFlightAvailability(7))
	assert.Equal(t, "flightbook:v1:rl:bookings:u1", KeyRateLimit("bookings", "u1"))
	assert.Equal(t, "flightbook:v1:idem:bookings:u1:k1", KeyIdemBooking("u1", "k1"))
}
