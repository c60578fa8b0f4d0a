package devserver

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReloadNotifier_SubscribeCancel(t *testing.T) {
	n := newReloadNotifier()

	_, cancel1 := n.subscribe()
	_, cancel2 := n.subscribe()
	assert.Equal(t, 2, n.count())

	cancel1()
	assert.Equal(t, 1, n.count())
	cancel2()
	assert.Equal(t, 0, n.count())
}

func TestReloadNotifier_Broadcast(t *testing.T) {
	n := newReloadNotifier()
	ch1, cancel1 := n.subscribe()
	ch2, cancel2 := n.subscribe()
	defer cancel1()
	defer cancel2()

	n.broadcast()

	for _, ch := range []<-chan struct{}{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for reload signal")
		}
	}
}

func TestReloadNotifier_BroadcastDoesNotBlock(t *testing.T) {
	n := newReloadNotifier()
	ch, cancel := n.subscribe()
	defer cancel()

	// the second signal is dropped while the first is pending
	n.broadcast()
	n.broadcast()

	<-ch
	select {
	case <-ch:
		t.Fatal("unexpected second signal")
	default:
	}
}

func TestReloadNotifier_Concurrent(t *testing.T) {
	n := newReloadNotifier()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, cancel := n.subscribe()
			n.broadcast()
			cancel()
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, n.count())
}
