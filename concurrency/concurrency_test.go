package concurrency

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwinSignal_StartsInverse(t *testing.T) {
	ts := NewTwinSignal()
	assert.False(t, ts.IsASet())

	select {
	case <-ts.BChan():
	default:
		t.Fatal("B should start set")
	}

	select {
	case <-ts.AChan():
		t.Fatal("A should start unset")
	default:
	}
}

func TestTwinSignal_SetAClearsB(t *testing.T) {
	ts := NewTwinSignal()
	ts.SetA()
	assert.True(t, ts.IsASet())

	select {
	case <-ts.AChan():
	default:
		t.Fatal("A should be set")
	}
	select {
	case <-ts.BChan():
		t.Fatal("B should be cleared")
	default:
	}
}

func TestTwinSignal_RoundTrip(t *testing.T) {
	ts := NewTwinSignal()
	for range 3 {
		ts.SetA()
		assert.True(t, ts.IsASet())
		ts.SetB()
		assert.False(t, ts.IsASet())
	}
}

func TestRWContext_MultipleReaders(t *testing.T) {
	rw := NewRWContext(0)
	ctx := context.Background()

	rel1, err := rw.Read(ctx)
	require.NoError(t, err)
	rel2, err := rw.Read(ctx)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		relW, err := rw.Write(ctx)
		require.NoError(t, err)
		close(acquired)
		relW()
	}()

	select {
	case <-acquired:
		t.Fatal("writer should not acquire while readers hold the guard")
	case <-time.After(50 * time.Millisecond):
	}

	rel1()
	rel2()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("writer should acquire once all readers release")
	}
}

func TestRWContext_WriterExcludesReaders(t *testing.T) {
	rw := NewRWContext(0)
	ctx := context.Background()

	relW, err := rw.Write(ctx)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		relR, err := rw.Read(ctx)
		require.NoError(t, err)
		close(acquired)
		relR()
	}()

	select {
	case <-acquired:
		t.Fatal("reader should not acquire while a writer holds the guard")
	case <-time.After(50 * time.Millisecond):
	}

	relW()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("reader should acquire once the writer releases")
	}
}

func TestRWContext_CancelledContext(t *testing.T) {
	rw := NewRWContext(0)
	ctx, cancel := context.WithCancel(context.Background())

	relW, err := rw.Write(context.Background())
	require.NoError(t, err)
	defer relW()

	cancel()
	_, err = rw.Read(ctx)
	assert.Error(t, err)
}

func TestRWContext_ConcurrentWriters(t *testing.T) {
	rw := NewRWContext(4)
	var counter int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rel, err := rw.Write(context.Background())
			require.NoError(t, err)
			defer rel()
			mu.Lock()
			counter++
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, counter)
}
