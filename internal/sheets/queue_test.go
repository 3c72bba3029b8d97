package sheets

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dnxsqw/physiq-bot/internal/profile"
)

type fakeSyncer struct {
	mu    sync.Mutex
	calls int
	errs  []error
	got   []profile.Profile
}

func (f *fakeSyncer) Sync(_ context.Context, p profile.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.got = append(f.got, p)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return err
	}
	return nil
}

func (f *fakeSyncer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestQueueDeliversProfiles(t *testing.T) {
	fs := &fakeSyncer{}
	q := NewQueue(fs, QueueOptions{Workers: 1})

	q.Enqueue(context.Background(), profile.Profile{UserID: "42"})
	q.Enqueue(context.Background(), profile.Profile{UserID: "43"})
	q.Close()

	if got := fs.callCount(); got != 2 {
		t.Fatalf("syncer called %d times, want 2", got)
	}
	if q.ErrorCount() != 0 {
		t.Fatalf("unexpected errors: %d", q.ErrorCount())
	}
}

func TestQueueSwallowsFailures(t *testing.T) {
	fs := &fakeSyncer{errs: []error{errors.New("boom")}}
	q := NewQueue(fs, QueueOptions{Workers: 1})

	// Enqueue never returns an error, even when every sync attempt fails.
	q.Enqueue(context.Background(), profile.Profile{UserID: "42"})
	q.Close()

	if q.ErrorCount() != 1 {
		t.Fatalf("error count = %d, want 1", q.ErrorCount())
	}
}

func TestQueueRetriesTransientFailures(t *testing.T) {
	fs := &fakeSyncer{errs: []error{context.DeadlineExceeded}}
	q := NewQueue(fs, QueueOptions{
		Workers:      1,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	})

	q.Enqueue(context.Background(), profile.Profile{UserID: "42"})
	q.Close()

	if got := fs.callCount(); got != 2 {
		t.Fatalf("syncer called %d times, want 2 (one retry)", got)
	}
	if q.ErrorCount() != 0 {
		t.Fatalf("retried job must not count as failed, got %d", q.ErrorCount())
	}
}

func TestQueueDoesNotRetryAuthFailures(t *testing.T) {
	fs := &fakeSyncer{errs: []error{errors.New("permanent")}}
	q := NewQueue(fs, QueueOptions{
		Workers:      1,
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
	})

	q.Enqueue(context.Background(), profile.Profile{UserID: "42"})
	q.Close()

	if got := fs.callCount(); got != 1 {
		t.Fatalf("non-retryable failure attempted %d times, want 1", got)
	}
	if q.ErrorCount() != 1 {
		t.Fatalf("error count = %d, want 1", q.ErrorCount())
	}
}

func TestQueueDropsWhenFullWithoutBlocking(t *testing.T) {
	block := make(chan struct{})
	fs := &blockingSyncer{release: block}
	q := NewQueue(fs, QueueOptions{QueueSize: 1, Workers: 1})

	// First job occupies the worker, second fills the queue, third drops.
	q.Enqueue(context.Background(), profile.Profile{UserID: "1"})
	waitFor(t, func() bool { return fs.started() })
	q.Enqueue(context.Background(), profile.Profile{UserID: "2"})

	done := make(chan struct{})
	go func() {
		q.Enqueue(context.Background(), profile.Profile{UserID: "3"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a full queue")
	}
	if q.DropCount() != 1 {
		t.Fatalf("drop count = %d, want 1", q.DropCount())
	}

	close(block)
	q.Close()
}

func TestQueueIgnoresCallerCancellation(t *testing.T) {
	fs := &fakeSyncer{}
	q := NewQueue(fs, QueueOptions{Workers: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q.Enqueue(ctx, profile.Profile{UserID: "42"})
	q.Close()

	if got := fs.callCount(); got != 1 {
		t.Fatalf("cancelled caller context must not stop the mirror, calls = %d", got)
	}
}

type blockingSyncer struct {
	mu      sync.Mutex
	began   bool
	release chan struct{}
}

func (b *blockingSyncer) Sync(context.Context, profile.Profile) error {
	b.mu.Lock()
	b.began = true
	b.mu.Unlock()
	<-b.release
	return nil
}

func (b *blockingSyncer) started() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.began
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
