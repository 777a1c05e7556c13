package assetfs

import (
	"sync"
	"sync/atomic"
)

// Subscription receives a signal every time the manager's state changed.
// Signals carry no data and coalesce: a slow subscriber finds at most one
// pending signal and should re-read the state it cares about.
type Subscription struct {
	ch   chan struct{}
	hub  *notifier
	once sync.Once
}

// C returns the channel signals are delivered on. It is closed by Close.
func (s *Subscription) C() <-chan struct{} {
	return s.ch
}

// Close unsubscribes and closes the channel.
func (s *Subscription) Close() error {
	s.once.Do(func() {
		s.hub.remove(s)
		close(s.ch)
	})
	return nil
}

// notifier is the broadcast point of one manager.
type notifier struct {
	mu     sync.RWMutex
	subs   []*Subscription
	closed bool
	sent   atomic.Uint64
}

func newNotifier() *notifier {
	return &notifier{}
}

func (n *notifier) subscribe() *Subscription {
	s := &Subscription{ch: make(chan struct{}, 1), hub: n}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		s.once.Do(func() { close(s.ch) })
		return s
	}
	n.subs = append(n.subs, s)
	return s
}

func (n *notifier) remove(s *Subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, x := range n.subs {
		if x == s {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}
}

// emit signals every subscriber without blocking.
func (n *notifier) emit() {
	n.sent.Add(1)
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, s := range n.subs {
		select {
		case s.ch <- struct{}{}:
		default:
			// a signal is already pending
		}
	}
}

func (n *notifier) closeAll() {
	n.mu.Lock()
	subs := n.subs
	n.subs = nil
	n.closed = true
	n.mu.Unlock()
	for _, s := range subs {
		s.once.Do(func() { close(s.ch) })
	}
}
