package broker

import (
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

type note string

func (n note) Name() string {
	return "note"
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := NewBroker()
	go b.Start()
	defer b.Stop()

	s1 := b.Subscribe()
	s2 := b.Subscribe()
	require.Eventually(t, func() bool {
		return b.SubCount() == 2
	}, time.Second, time.Millisecond)

	b.Publish(note("hello"))

	for i, ch := range []chan Message{s1, s2} {
		select {
		case msg := <-ch:
			require.Equal(t, note("hello"), msg)
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never got the message", i)
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBroker()
	go b.Start()
	defer b.Stop()

	s1 := b.Subscribe()
	s2 := b.Subscribe()
	require.Eventually(t, func() bool {
		return b.SubCount() == 2
	}, time.Second, time.Millisecond)

	b.Unsubscribe(s1)
	require.Eventually(t, func() bool {
		return b.SubCount() == 1
	}, time.Second, time.Millisecond)

	b.Publish(note("second"))

	select {
	case msg := <-s2:
		require.Equal(t, note("second"), msg)
	case <-time.After(time.Second):
		t.Fatal("remaining subscriber never got the message")
	}

	select {
	case msg := <-s1:
		t.Fatalf("unexpected message after unsubscribe: %v", msg)
	default:
	}
}

func TestFullSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := NewBroker()
	go b.Start()
	defer b.Stop()

	ch := b.Subscribe()
	require.Eventually(t, func() bool {
		return b.SubCount() == 1
	}, time.Second, time.Millisecond)

	for i := 0; i < subscriberBuffer+10; i++ {
		b.Publish(note("x"))
	}

	require.Eventually(t, func() bool {
		return b.DropCount() == 10
	}, time.Second, time.Millisecond)
	require.Len(t, ch, subscriberBuffer)
}
