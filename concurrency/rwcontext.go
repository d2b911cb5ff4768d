package concurrency

import (
	"context"
	"errors"
)

// RWContext is an async-safe read/write guard: any number of readers may
// hold it concurrently, but a writer excludes all readers and other
// writers. It mirrors melobot's RWContext (asyncio.Semaphore-based), ported
// to Go's blocking channel-as-semaphore idiom so Read and Write can honor
// context cancellation.
type RWContext struct {
	writeSem chan struct{} // capacity 1
	readSem  chan struct{} // capacity readLimit, nil if unlimited
	readNum  chan int      // single-slot mailbox holding the current reader count
}

// NewRWContext builds an RWContext. readLimit caps concurrent readers; 0
// means unlimited.
func NewRWContext(readLimit int) *RWContext {
	rw := &RWContext{
		writeSem: make(chan struct{}, 1),
		readNum:  make(chan int, 1),
	}
	rw.readNum <- 0
	if readLimit > 0 {
		rw.readSem = make(chan struct{}, readLimit)
	}
	return rw
}

// ErrClosed describes a guard acquisition abandoned because ctx was
// cancelled. Read and Write do not return it: in that case they return
// ctx.Err() itself.
var ErrClosed = errors.New("concurrency: context cancelled while acquiring guard")

// Read acquires the guard for reading and returns a release function. The
// first reader to arrive blocks writers; the last reader to leave unblocks
// them.
func (rw *RWContext) Read(ctx context.Context) (func(), error) {
	if rw.readSem != nil {
		select {
		case rw.readSem <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var n int
	select {
	case n = <-rw.readNum:
	case <-ctx.Done():
		if rw.readSem != nil {
			<-rw.readSem
		}
		return nil, ctx.Err()
	}

	if n == 0 {
		select {
		case rw.writeSem <- struct{}{}:
		case <-ctx.Done():
			rw.readNum <- n
			if rw.readSem != nil {
				<-rw.readSem
			}
			return nil, ctx.Err()
		}
	}
	rw.readNum <- n + 1

	release := func() {
		n := <-rw.readNum
		n--
		if n == 0 {
			<-rw.writeSem
		}
		rw.readNum <- n
		if rw.readSem != nil {
			<-rw.readSem
		}
	}
	return release, nil
}

// Write acquires the guard exclusively and returns a release function.
func (rw *RWContext) Write(ctx context.Context) (func(), error) {
	select {
	case rw.writeSem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return func() { <-rw.writeSem }, nil
}
