package storage

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/dnxsqw/physiq-bot/internal/profile"
)

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.json")
	s := NewFileStore(path)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load empty: %v", err)
	}
	return s, path
}

func sampleProfile(id string) profile.Profile {
	return profile.Profile{
		UserID:           id,
		Username:         "ivan_p",
		FirstName:        "Иван",
		LastName:         "Петров",
		City:             "Астана",
		School:           "школа-лицей №8 павлодар",
		NormalizedSchool: "ШЛ №8 Павлодар",
		Grade:            "9",
		Achievements:     []string{},
	}
}

func TestUpsertThenGet(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	want := sampleProfile("42")
	if err := s.Upsert(ctx, want); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, ok, err := s.Get(ctx, "42")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("get mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestGetAbsent(t *testing.T) {
	s, _ := newTestStore(t)
	_, ok, err := s.Get(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("expected absent record")
	}
}

func TestDeleteDoesNotPoisonInserts(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	p := sampleProfile("7")
	if err := s.Upsert(ctx, p); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Delete(ctx, "7"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "7"); ok {
		t.Fatal("record still present after delete")
	}
	// Deleting an absent record is a no-op.
	if err := s.Delete(ctx, "7"); err != nil {
		t.Fatalf("delete absent: %v", err)
	}
	if err := s.Upsert(ctx, p); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	got, ok, err := s.Get(ctx, "7")
	if err != nil || !ok {
		t.Fatalf("get after re-upsert: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, p) {
		t.Fatalf("re-upsert mismatch: %+v", got)
	}
}

func TestReloadReproducesMapping(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	first := sampleProfile("42")
	second := profile.Profile{
		UserID:           "99",
		Username:         "aigerim",
		FirstName:        "Айгерим",
		LastName:         "Сулейменова",
		City:             "Алматы",
		School:           "гимназия №1",
		NormalizedSchool: "Гимназия 1",
		Grade:            "11",
		Manuls:           3,
		Streak:           7,
		Solved:           12,
		Achievements:     []string{"streak_7"},
	}
	for _, p := range []profile.Profile{first, second} {
		if err := s.Upsert(ctx, p); err != nil {
			t.Fatalf("upsert %s: %v", p.UserID, err)
		}
	}

	reloaded := NewFileStore(path)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	for _, want := range []profile.Profile{first, second} {
		got, ok, err := reloaded.Get(ctx, want.UserID)
		if err != nil || !ok {
			t.Fatalf("get %s after reload: ok=%v err=%v", want.UserID, ok, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("reload mismatch for %s:\n got %+v\nwant %+v", want.UserID, got, want)
		}
	}
	all, err := reloaded.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 records after reload, got %d", len(all))
	}
}

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load missing: %v", err)
	}
	all, err := s.All(context.Background())
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty store, got %d records", len(all))
	}
}

func TestPersistFailureSurfacesAndRollsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.json")
	// A directory at the snapshot path makes the atomic rename fail.
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	s := NewFileStore(path)
	ctx := context.Background()

	err := s.Upsert(ctx, sampleProfile("13"))
	if err == nil {
		t.Fatal("expected persist error")
	}
	if _, ok, _ := s.Get(ctx, "13"); ok {
		t.Fatal("failed upsert must not leave the record in memory")
	}
}

func TestSnapshotOmitsUserIDField(t *testing.T) {
	s, path := newTestStore(t)
	if err := s.Upsert(context.Background(), sampleProfile("42")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	body := string(data)
	if !strings.Contains(body, `"42"`) {
		t.Fatalf("user id missing as map key: %s", body)
	}
	if strings.Contains(body, `"UserID"`) || strings.Contains(body, `"user_id"`) {
		t.Fatalf("user id must not be duplicated inside the record: %s", body)
	}
}

func TestClosedStoreRejectsOperations(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Upsert(context.Background(), sampleProfile("1")); err == nil {
		t.Fatal("expected ErrClosed")
	}
}
