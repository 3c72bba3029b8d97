package state

import (
	"sync"
	"testing"
	"time"

	"github.com/dnxsqw/physiq-bot/internal/profile"
)

func TestWizardOrder(t *testing.T) {
	steps := []State{First()}
	cur := First()
	for {
		next, ok := Next(cur)
		if !ok {
			break
		}
		steps = append(steps, next)
		cur = next
	}
	want := []State{StateRegFirstName, StateRegLastName, StateRegCity, StateRegSchool, StateRegGrade}
	if len(steps) != len(want) {
		t.Fatalf("wizard has %d steps, want %d", len(steps), len(want))
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Fatalf("step %d = %s, want %s", i, steps[i], want[i])
		}
	}
	if _, ok := Next(StateRegGrade); ok {
		t.Fatal("last step must not advance")
	}
	if _, ok := Next(StateIdle); ok {
		t.Fatal("idle must not advance")
	}
}

func TestBeginDraftStartsWizard(t *testing.T) {
	m := NewMemoryManager(time.Minute)
	d := m.BeginDraft(1)
	if d == nil {
		t.Fatal("nil draft")
	}
	if got := m.GetState(1); got != StateRegFirstName {
		t.Fatalf("state = %s, want %s", got, StateRegFirstName)
	}
	if !m.InProgress(1) {
		t.Fatal("wizard must be in progress")
	}
}

func TestUpdateDraftAdvances(t *testing.T) {
	m := NewMemoryManager(time.Minute)
	m.BeginDraft(1)
	ok := m.UpdateDraft(1, func(d *profile.Draft) { d.FirstName = "Иван" })
	if !ok {
		t.Fatal("update on live draft failed")
	}
	d, ok := m.Draft(1)
	if !ok || d.FirstName != "Иван" {
		t.Fatalf("draft = %+v ok=%v", d, ok)
	}
	if ok := m.UpdateDraft(2, func(*profile.Draft) {}); ok {
		t.Fatal("update without a draft must report false")
	}
}

func TestDraftExpiresLazily(t *testing.T) {
	m := NewMemoryManager(time.Minute).(*memoryManager)
	base := time.Now()
	m.now = func() time.Time { return base }
	m.BeginDraft(1)

	m.now = func() time.Time { return base.Add(2 * time.Minute) }
	if m.InProgress(1) {
		t.Fatal("expired draft must not be in progress")
	}
	if _, ok := m.Draft(1); ok {
		t.Fatal("expired draft must be gone")
	}
	if got := m.GetState(1); got != StateIdle {
		t.Fatalf("state after expiry = %s, want idle", got)
	}
}

func TestUpdateDraftRefreshesDeadline(t *testing.T) {
	m := NewMemoryManager(time.Minute).(*memoryManager)
	base := time.Now()
	m.now = func() time.Time { return base }
	m.BeginDraft(1)

	m.now = func() time.Time { return base.Add(50 * time.Second) }
	if !m.UpdateDraft(1, func(d *profile.Draft) { d.City = "Астана" }) {
		t.Fatal("update on live draft failed")
	}

	// Past the original deadline but inside the refreshed one.
	m.now = func() time.Time { return base.Add(100 * time.Second) }
	if !m.InProgress(1) {
		t.Fatal("refreshed draft expired too early")
	}
}

func TestSweepDropsOnlyExpired(t *testing.T) {
	m := NewMemoryManager(time.Minute).(*memoryManager)
	base := time.Now()
	m.now = func() time.Time { return base }
	m.BeginDraft(1)

	m.now = func() time.Time { return base.Add(30 * time.Second) }
	m.BeginDraft(2)

	m.now = func() time.Time { return base.Add(70 * time.Second) }
	if got := m.Sweep(); got != 1 {
		t.Fatalf("sweep removed %d, want 1", got)
	}
	if m.InProgress(1) {
		t.Fatal("user 1 draft must be gone")
	}
	if !m.InProgress(2) {
		t.Fatal("user 2 draft must survive")
	}
}

func TestZeroTTLNeverExpires(t *testing.T) {
	m := NewMemoryManager(0).(*memoryManager)
	base := time.Now()
	m.now = func() time.Time { return base }
	m.BeginDraft(1)
	m.now = func() time.Time { return base.Add(24 * time.Hour) }
	if !m.InProgress(1) {
		t.Fatal("draft without ttl must not expire")
	}
}

func TestPerUserLockSerializes(t *testing.T) {
	m := NewMemoryManager(time.Minute)
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Lock(7)
			counter++
			m.Unlock(7)
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("counter = %d, want 50", counter)
	}
}
