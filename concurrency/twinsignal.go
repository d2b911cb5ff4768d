// Package concurrency provides the small coordination primitives the
// session core is built on: a pair of boolean signals kept inverse of each
// other, and a multi-reader/single-writer guard. Neither is backed by a
// third-party library — the teacher repo hand-rolls the same class of
// primitive with sync.Mutex/sync.RWMutex rather than reaching for a
// dependency, and these are simple enough to follow suit.
package concurrency

import "sync"

// TwinSignal is a pair of boolean flags, A and B, that are always each
// other's logical negation: setting one clears the other. It models
// melobot's AsyncTwinEvent pair (get_twin_event), used to let a producer
// and consumer each wait on "my turn" without polling the other's state.
//
// The zero value is not usable; construct with NewTwinSignal.
type TwinSignal struct {
	mu      sync.Mutex
	aSet    bool
	aWaitCh chan struct{} // closed while aSet is true
	bWaitCh chan struct{} // closed while aSet is false
}

// NewTwinSignal returns a bound pair of signals where A starts unset and B
// starts set, matching get_twin_event's documented return order.
func NewTwinSignal() *TwinSignal {
	ts := &TwinSignal{
		aWaitCh: make(chan struct{}),
		bWaitCh: make(chan struct{}),
	}
	close(ts.bWaitCh) // B starts set
	return ts
}

// SetA sets A and clears B.
func (ts *TwinSignal) SetA() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.aSet {
		return
	}
	ts.aSet = true
	close(ts.aWaitCh)
	ts.bWaitCh = make(chan struct{})
}

// SetB sets B and clears A.
func (ts *TwinSignal) SetB() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if !ts.aSet {
		return
	}
	ts.aSet = false
	close(ts.bWaitCh)
	ts.aWaitCh = make(chan struct{})
}

// AChan returns a channel that is closed whenever A is currently set. The
// returned channel is a snapshot: if A is cleared and reset after the
// caller observes it closed, a fresh channel is allocated internally, but
// the one already handed out stays closed (consistent with "A was set at
// least once since you asked").
func (ts *TwinSignal) AChan() <-chan struct{} {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.aWaitCh
}

// BChan is the B-side counterpart of AChan.
func (ts *TwinSignal) BChan() <-chan struct{} {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.bWaitCh
}

// IsASet reports A's current value.
func (ts *TwinSignal) IsASet() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.aSet
}
