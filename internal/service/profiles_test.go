package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dnxsqw/physiq-bot/internal/profile"
	"github.com/dnxsqw/physiq-bot/internal/state"
	"github.com/dnxsqw/physiq-bot/internal/storage"
)

type recordingMirror struct {
	mu  sync.Mutex
	got []profile.Profile
}

func (m *recordingMirror) Enqueue(_ context.Context, p profile.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.got = append(m.got, p)
}

func (m *recordingMirror) profiles() []profile.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]profile.Profile(nil), m.got...)
}

func newTestService(t *testing.T) (*Profiles, *recordingMirror, storage.Store) {
	t.Helper()
	st := storage.NewFileStore(filepath.Join(t.TempDir(), "users.json"))
	if err := st.Load(context.Background()); err != nil {
		t.Fatalf("load store: %v", err)
	}
	mirror := &recordingMirror{}
	svc := NewProfiles(st, state.NewMemoryManager(time.Minute), mirror)
	return svc, mirror, st
}

func runWizard(t *testing.T, svc *Profiles, userID int64, username string, answers []string) StepOutcome {
	t.Helper()
	ctx := context.Background()
	svc.StartWizard(ctx, userID)
	var out StepOutcome
	var err error
	for i, a := range answers {
		out, err = svc.ApplyStep(ctx, userID, username, a)
		if err != nil {
			t.Fatalf("step %d (%q): %v", i, a, err)
		}
	}
	return out
}

func TestWizardCommitScenario(t *testing.T) {
	svc, mirror, _ := newTestService(t)

	out := runWizard(t, svc, 42, "ivan_p", []string{
		"Ivan", "Petrov", "Astana", "school-lyceum 8 Pavlodar", "9",
	})

	if !out.Committed {
		t.Fatal("final step must commit")
	}
	if out.Next != state.StateIdle {
		t.Fatalf("state after commit = %s, want idle", out.Next)
	}

	p := out.Profile
	if p.UserID != "42" || p.FirstName != "Ivan" || p.LastName != "Petrov" {
		t.Fatalf("unexpected identity fields: %+v", p)
	}
	if p.School != "school-lyceum 8 Pavlodar" {
		t.Fatalf("raw school must be preserved, got %q", p.School)
	}
	if p.NormalizedSchool != "ШЛ №8 Павлодар" {
		t.Fatalf("normalized school = %q", p.NormalizedSchool)
	}
	if p.Manuls != 0 || p.Streak != 0 || p.Solved != 0 {
		t.Fatalf("counters must start at zero: %+v", p)
	}
	if p.Achievements == nil || len(p.Achievements) != 0 {
		t.Fatalf("achievements must be empty, non-nil: %#v", p.Achievements)
	}

	stored, ok, err := svc.Get(context.Background(), 42)
	if err != nil || !ok {
		t.Fatalf("get after commit: ok=%v err=%v", ok, err)
	}
	if stored.NormalizedSchool != p.NormalizedSchool {
		t.Fatalf("stored record mismatch: %+v", stored)
	}

	mirrored := mirror.profiles()
	if len(mirrored) != 1 || mirrored[0].UserID != "42" {
		t.Fatalf("mirror received %+v", mirrored)
	}
}

func TestWizardEmptyInputKeepsStep(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	svc.StartWizard(ctx, 1)

	out, err := svc.ApplyStep(ctx, 1, "u", "   ")
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("err = %v, want ErrEmptyInput", err)
	}
	if out.Next != state.StateRegFirstName {
		t.Fatalf("state = %s, want first step", out.Next)
	}
}

func TestWizardInputsTrimmed(t *testing.T) {
	svc, _, _ := newTestService(t)
	out := runWizard(t, svc, 2, "u", []string{
		"  Иван  ", "Петров", " Астана", "РФМШ Астана ", "11",
	})
	if out.Profile.FirstName != "Иван" || out.Profile.City != "Астана" {
		t.Fatalf("inputs not trimmed: %+v", out.Profile)
	}
}

func TestApplyStepWithoutWizard(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.ApplyStep(context.Background(), 3, "u", "hello")
	if !errors.Is(err, ErrNoWizard) {
		t.Fatalf("err = %v, want ErrNoWizard", err)
	}
}

func TestCancelDiscardsDraft(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	svc.StartWizard(ctx, 4)
	if _, err := svc.ApplyStep(ctx, 4, "u", "Ivan"); err != nil {
		t.Fatalf("step: %v", err)
	}

	if !svc.CancelWizard(ctx, 4) {
		t.Fatal("cancel must report an active draft")
	}
	if svc.InWizard(4) {
		t.Fatal("wizard still active after cancel")
	}
	if svc.CancelWizard(ctx, 4) {
		t.Fatal("second cancel must be a no-op")
	}
	if _, ok, _ := svc.Get(ctx, 4); ok {
		t.Fatal("cancelled wizard must not create a record")
	}
}

func TestReRegistrationOverwrites(t *testing.T) {
	svc, mirror, _ := newTestService(t)

	runWizard(t, svc, 5, "u", []string{"Ivan", "Petrov", "Astana", "RFMSH Astana", "9"})
	out := runWizard(t, svc, 5, "u", []string{"Иван", "Петров", "Астана", "рфмш астана", "10"})

	stored, ok, err := svc.Get(context.Background(), 5)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if stored.Grade != "10" || stored.FirstName != "Иван" {
		t.Fatalf("re-registration did not overwrite: %+v", stored)
	}
	if stored.NormalizedSchool != "РФМШ Астана" || out.Profile.NormalizedSchool != "РФМШ Астана" {
		t.Fatalf("normalized school = %q", stored.NormalizedSchool)
	}
	if len(mirror.profiles()) != 2 {
		t.Fatalf("mirror received %d profiles, want 2", len(mirror.profiles()))
	}
}

type failingStore struct {
	storage.Store
	err error
}

func (f *failingStore) Upsert(context.Context, profile.Profile) error { return f.err }

func TestCommitFailureKeepsDraft(t *testing.T) {
	base := storage.NewFileStore(filepath.Join(t.TempDir(), "users.json"))
	if err := base.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	st := &failingStore{Store: base, err: errors.New("disk full")}
	svc := NewProfiles(st, state.NewMemoryManager(time.Minute), nil)

	ctx := context.Background()
	svc.StartWizard(ctx, 6)
	answers := []string{"Ivan", "Petrov", "Astana", "RFMSH Astana"}
	for _, a := range answers {
		if _, err := svc.ApplyStep(ctx, 6, "u", a); err != nil {
			t.Fatalf("step %q: %v", a, err)
		}
	}

	if _, err := svc.ApplyStep(ctx, 6, "u", "9"); err == nil {
		t.Fatal("expected commit error")
	}
	if !svc.InWizard(6) {
		t.Fatal("failed commit must keep the draft for retry")
	}

	st.err = nil
	out, err := svc.ApplyStep(ctx, 6, "u", "9")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !out.Committed {
		t.Fatal("retry must commit")
	}
}

func TestNilMirrorDoesNotBlockCommit(t *testing.T) {
	st := storage.NewFileStore(filepath.Join(t.TempDir(), "users.json"))
	if err := st.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	svc := NewProfiles(st, state.NewMemoryManager(time.Minute), nil)

	out := runWizard(t, svc, 7, "u", []string{"A", "B", "C", "D", "9"})
	if !out.Committed {
		t.Fatal("commit must succeed without a mirror")
	}
}

func TestLeaderboardTopByManuls(t *testing.T) {
	svc, _, st := newTestService(t)
	ctx := context.Background()

	seed := []profile.Profile{
		{UserID: "1", FirstName: "A", Manuls: 3},
		{UserID: "2", FirstName: "B", Manuls: 9},
		{UserID: "3", FirstName: "C", Manuls: 5},
		{UserID: "4", FirstName: "D", Manuls: 9},
		{UserID: "5", FirstName: "E", Manuls: 1},
		{UserID: "6", FirstName: "F", Manuls: 7},
	}
	for _, p := range seed {
		if err := st.Upsert(ctx, p); err != nil {
			t.Fatalf("seed %s: %v", p.UserID, err)
		}
	}

	top, err := svc.Leaderboard(ctx, 5)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(top) != 5 {
		t.Fatalf("got %d entries, want 5", len(top))
	}
	wantOrder := []string{"B", "D", "F", "C", "A"}
	for i, want := range wantOrder {
		if top[i].FirstName != want {
			t.Fatalf("position %d = %s, want %s", i, top[i].FirstName, want)
		}
	}
}
