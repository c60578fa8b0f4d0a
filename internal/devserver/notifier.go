package devserver

import "sync"

// reloadNotifier fans a reload signal out to every connected browser.
type reloadNotifier struct {
	mu      sync.RWMutex
	clients map[chan struct{}]struct{}
}

func newReloadNotifier() *reloadNotifier {
	return &reloadNotifier{clients: make(map[chan struct{}]struct{})}
}

// subscribe registers a client. The returned cancel func must be called once
// the client disconnects.
func (n *reloadNotifier) subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.clients[ch] = struct{}{}
	n.mu.Unlock()

	return ch, func() {
		n.mu.Lock()
		delete(n.clients, ch)
		n.mu.Unlock()
	}
}

// broadcast signals every client. Clients with a pending signal are skipped.
func (n *reloadNotifier) broadcast() {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for ch := range n.clients {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (n *reloadNotifier) count() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.clients)
}
