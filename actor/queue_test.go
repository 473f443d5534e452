package actor

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestQueueFIFO verifies pop order matches push order.
func TestQueueFIFO(t *testing.T) {
	t.Parallel()

	q := newLocalityQueue()
	addr := &Address{}

	for i := 0; i < 5; i++ {
		require.True(t, q.push(NewMessage(addr, probe{n: i})))
	}
	require.Equal(t, 5, q.size())

	for i := 0; i < 5; i++ {
		m, ok := q.pop()
		require.True(t, ok)
		require.Equal(t, i, m.Payload().(probe).n)
	}

	_, ok := q.pop()
	require.False(t, ok)
}

// TestQueueCloseRefusesAndDrains verifies close refuses further pushes and
// hands back the undelivered remainder exactly once.
func TestQueueCloseRefusesAndDrains(t *testing.T) {
	t.Parallel()

	q := newLocalityQueue()
	addr := &Address{}

	q.push(NewMessage(addr, probe{n: 1}))
	q.push(NewMessage(addr, probe{n: 2}))

	remainder := q.close()
	require.Len(t, remainder, 2)
	require.True(t, q.isClosed())

	require.False(t, q.push(NewMessage(addr, probe{n: 3})))
	require.Nil(t, q.close())

	_, ok := q.pop()
	require.False(t, ok)
}

// TestQueueConcurrentPush verifies the queue accepts pushes from many
// goroutines while a single consumer drains, with nothing lost.
func TestQueueConcurrentPush(t *testing.T) {
	t.Parallel()

	q := newLocalityQueue()
	addr := &Address{}

	const (
		senders = 8
		each    = 100
	)

	var wg sync.WaitGroup
	for s := 0; s < senders; s++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				q.push(NewMessage(addr, probe{n: i}))
			}
		}()
	}

	received := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for received < senders*each {
			if _, ok := q.pop(); ok {
				received++
				continue
			}
			<-q.wait()
		}
	}()

	wg.Wait()
	// Final wake in case the consumer parked after the last push's
	// notification was consumed.
	q.push(NewMessage(addr, probe{n: -1}))
	<-done

	require.GreaterOrEqual(t, received, senders*each)
}

// TestQueueWaitClosedOnClose verifies waiters observe queue closure.
func TestQueueWaitClosedOnClose(t *testing.T) {
	t.Parallel()

	q := newLocalityQueue()
	q.close()

	select {
	case <-q.wait():
	default:
		t.Fatal("wait channel should be closed")
	}
}
