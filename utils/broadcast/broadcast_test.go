package broadcast

import (
	"testing"
	"time"

	"go.viam.com/test"
	"go.viam.com/utils/testutils"
)

func collect(t *testing.T, sub *Subscription[int], n int) []int {
	t.Helper()
	got := make([]int, 0, n)
	timeout := time.After(5 * time.Second)
	for len(got) < n {
		select {
		case v, ok := <-sub.Events():
			if !ok {
				return got
			}
			got = append(got, v)
		case <-timeout:
			t.Fatalf("timed out after receiving %d of %d values", len(got), n)
		}
	}
	return got
}

func TestOrderingAcrossSubscribers(t *testing.T) {
	const n = 2000
	b := New[int](Options{})
	defer b.Close()

	sub1 := b.Subscribe()
	defer sub1.Unsubscribe()
	sub2 := b.Subscribe()
	defer sub2.Unsubscribe()

	for i := 0; i < n; i++ {
		b.Publish(i)
	}

	expected := make([]int, n)
	for i := range expected {
		expected[i] = i
	}
	test.That(t, collect(t, sub1, n), test.ShouldResemble, expected)
	test.That(t, collect(t, sub2, n), test.ShouldResemble, expected)
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	const n = 10000
	b := New[int](Options{})
	defer b.Close()

	stalled := b.Subscribe()
	defer stalled.Unsubscribe()
	active := b.Subscribe()
	defer active.Unsubscribe()

	published := make(chan struct{})
	go func() {
		defer close(published)
		for i := 0; i < n; i++ {
			b.Publish(i)
		}
	}()
	select {
	case <-published:
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked on a subscriber that never reads")
	}

	got := collect(t, active, n)
	test.That(t, got, test.ShouldHaveLength, n)
	test.That(t, got[n-1], test.ShouldEqual, n-1)

	// The stalled subscriber still has everything queued.
	test.That(t, collect(t, stalled, 3), test.ShouldResemble, []int{0, 1, 2})
}

func TestPendingBeforeFirstSubscriber(t *testing.T) {
	b := New[int](Options{})
	defer b.Close()

	b.Publish(1)
	b.Publish(2)
	b.Publish(3)

	first := b.Subscribe()
	defer first.Unsubscribe()
	test.That(t, collect(t, first, 1), test.ShouldResemble, []int{3})

	late := b.Subscribe()
	defer late.Unsubscribe()
	b.Publish(4)
	test.That(t, collect(t, late, 1), test.ShouldResemble, []int{4})
	test.That(t, collect(t, first, 1), test.ShouldResemble, []int{4})
}

func TestPendingLimit(t *testing.T) {
	b := New[int](Options{PendingLimit: 2})
	defer b.Close()
	for i := 0; i < 5; i++ {
		b.Publish(i)
	}
	sub := b.Subscribe()
	defer sub.Unsubscribe()
	test.That(t, collect(t, sub, 2), test.ShouldResemble, []int{3, 4})

	disabled := New[int](Options{PendingLimit: -1})
	disabled.Publish(1)
	sub2 := disabled.Subscribe()
	disabled.Publish(2)
	test.That(t, collect(t, sub2, 1), test.ShouldResemble, []int{2})
	disabled.Close()
	_, ok := <-sub2.Events()
	test.That(t, ok, test.ShouldBeFalse)
}

func TestNoReplayAfterSubscribersLeave(t *testing.T) {
	b := New[int](Options{})
	defer b.Close()

	sub := b.Subscribe()
	sub.Unsubscribe()
	b.Publish(1)

	late := b.Subscribe()
	defer late.Unsubscribe()
	b.Publish(2)
	test.That(t, collect(t, late, 1), test.ShouldResemble, []int{2})
}

func TestUnsubscribe(t *testing.T) {
	b := New[int](Options{})
	defer b.Close()

	sub := b.Subscribe()
	test.That(t, b.SubscriberCount(), test.ShouldEqual, 1)
	b.Publish(1)
	sub.Unsubscribe()
	sub.Unsubscribe()
	test.That(t, b.SubscriberCount(), test.ShouldEqual, 0)

	// The channel closes; anything undelivered may or may not have been received first.
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		select {
		case _, ok := <-sub.Events():
			test.That(tb, ok, test.ShouldBeFalse)
		default:
			tb.Fatal("channel not closed yet")
		}
	})

	// Publishing with no subscribers left is fine.
	b.Publish(2)
}

func TestCloseDrainsQueues(t *testing.T) {
	b := New[int](Options{})
	sub := b.Subscribe()
	for i := 0; i < 100; i++ {
		b.Publish(i)
	}
	b.Close()
	b.Close()
	b.Publish(100)

	var got []int
	for v := range sub.Events() {
		got = append(got, v)
	}
	test.That(t, got, test.ShouldHaveLength, 100)
	test.That(t, got[99], test.ShouldEqual, 99)

	closedSub := b.Subscribe()
	_, ok := <-closedSub.Events()
	test.That(t, ok, test.ShouldBeFalse)
	closedSub.Unsubscribe()
}

func TestAbandonedSubscriptionAfterClose(t *testing.T) {
	b := New[int](Options{DrainTimeout: 10 * time.Millisecond})
	sub := b.Subscribe()
	for i := 0; i < 3; i++ {
		b.Publish(i)
	}
	b.Close()

	test.That(t, <-sub.Events(), test.ShouldEqual, 0)

	// the reader walks away; delivery gives up on the rest instead of blocking forever
	time.Sleep(100 * time.Millisecond)
	select {
	case _, ok := <-sub.Events():
		test.That(t, ok, test.ShouldBeFalse)
	case <-time.After(5 * time.Second):
		t.Fatal("subscription channel was never closed")
	}
}

func TestOpenBroadcasterWaitsForSlowReader(t *testing.T) {
	b := New[int](Options{DrainTimeout: 10 * time.Millisecond})
	sub := b.Subscribe()
	b.Publish(1)

	// the drain timeout only applies after Close
	time.Sleep(50 * time.Millisecond)
	test.That(t, <-sub.Events(), test.ShouldEqual, 1)

	b.Close()
	_, ok := <-sub.Events()
	test.That(t, ok, test.ShouldBeFalse)
}
