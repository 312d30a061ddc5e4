package negotiate

import "sync"

// latch is the one-shot completion event attached to every selection
// whose server principal was unknown at insertion time, and to every
// synchronous acquisition. Signal is idempotent; cancellation is owned
// by the session and is sticky, so a waiter observes either completion
// or cancellation, never a torn state.
type latch struct {
	once sync.Once
	done chan struct{}
}

func newLatch() *latch {
	return &latch{done: make(chan struct{})}
}

// newSignaledLatch returns a latch that is already completed, for
// selections whose server was resolved at insertion.
func newSignaledLatch() *latch {
	l := newLatch()
	l.signal()
	return l
}

func (l *latch) signal() {
	l.once.Do(func() { close(l.done) })
}

// wait blocks until the latch signals or cancel fires. It returns false
// on cancellation; cancellation supersedes a concurrent signal.
func (l *latch) wait(cancel <-chan struct{}) bool {
	select {
	case <-l.done:
	case <-cancel:
		return false
	}
	select {
	case <-cancel:
		return false
	default:
		return true
	}
}
