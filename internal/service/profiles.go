// Package service implements registration and profile policy on top of
// the store, the FSM manager and the sheet mirror.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dnxsqw/physiq-bot/internal/logger"
	"github.com/dnxsqw/physiq-bot/internal/profile"
	"github.com/dnxsqw/physiq-bot/internal/state"
	"github.com/dnxsqw/physiq-bot/internal/storage"
	"log/slog"
)

var (
	// ErrEmptyInput signals a blank or whitespace-only wizard answer.
	ErrEmptyInput = errors.New("service: empty input")
	// ErrNoWizard signals a step apply without an active draft.
	ErrNoWizard = errors.New("service: no active wizard")
)

// Mirror pushes committed profiles to external storage, best effort.
type Mirror interface {
	Enqueue(ctx context.Context, p profile.Profile)
}

// Profiles is the profile service: wizard steps, commits, lookups and
// the manuls leaderboard. A nil mirror disables external sync.
type Profiles struct {
	store  storage.Store
	fsm    state.Manager
	mirror Mirror
}

// NewProfiles wires the service dependencies.
func NewProfiles(store storage.Store, fsm state.Manager, mirror Mirror) *Profiles {
	return &Profiles{store: store, fsm: fsm, mirror: mirror}
}

// Key renders the storage key for a Telegram user ID.
func Key(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// Get returns the stored profile for the user.
func (s *Profiles) Get(ctx context.Context, userID int64) (profile.Profile, bool, error) {
	return s.store.Get(ctx, Key(userID))
}

// StartWizard discards any previous draft and opens a fresh one at the
// first step. Re-registration goes through the same path; the existing
// record stays untouched until commit.
func (s *Profiles) StartWizard(ctx context.Context, userID int64) state.State {
	s.fsm.Lock(userID)
	defer s.fsm.Unlock(userID)
	s.fsm.BeginDraft(userID)
	logger.Info(ctx, "wizard", "wizard.start",
		slog.Int64("user_id", userID),
	)
	return s.fsm.GetState(userID)
}

// CancelWizard drops the draft if one is active.
func (s *Profiles) CancelWizard(ctx context.Context, userID int64) bool {
	s.fsm.Lock(userID)
	defer s.fsm.Unlock(userID)
	if !s.fsm.InProgress(userID) {
		return false
	}
	s.fsm.Clear(userID)
	logger.Info(ctx, "wizard", "wizard.cancel",
		slog.Int64("user_id", userID),
	)
	return true
}

// InWizard reports whether the user currently has a live draft.
func (s *Profiles) InWizard(userID int64) bool {
	return s.fsm.InProgress(userID)
}

// StepOutcome describes the result of applying one wizard answer.
type StepOutcome struct {
	// Next is the state the user is in after the step.
	Next state.State
	// Committed is set when the final step persisted the profile.
	Committed bool
	// Profile carries the committed record when Committed is true.
	Profile profile.Profile
}

// ApplyStep consumes one text answer for the user's current wizard step.
// Inputs are trimmed; an empty answer keeps the step unchanged and
// returns ErrEmptyInput so the handler can re-prompt. The final step
// commits: the record is persisted first, then handed to the mirror.
// A persist failure keeps the draft alive so the answer can be retried.
func (s *Profiles) ApplyStep(ctx context.Context, userID int64, username, input string) (StepOutcome, error) {
	s.fsm.Lock(userID)
	defer s.fsm.Unlock(userID)

	current := s.fsm.GetState(userID)
	if !state.IsWizard(current) {
		return StepOutcome{Next: current}, ErrNoWizard
	}
	if _, ok := s.fsm.Draft(userID); !ok {
		return StepOutcome{Next: state.StateIdle}, ErrNoWizard
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return StepOutcome{Next: current}, ErrEmptyInput
	}

	s.fsm.UpdateDraft(userID, func(d *profile.Draft) {
		switch current {
		case state.StateRegFirstName:
			d.FirstName = input
		case state.StateRegLastName:
			d.LastName = input
		case state.StateRegCity:
			d.City = input
		case state.StateRegSchool:
			d.School = input
		case state.StateRegGrade:
			d.Grade = input
		}
	})

	next, ok := state.Next(current)
	if ok {
		s.fsm.SetState(userID, next)
		logger.Debug(ctx, "wizard", "wizard.step",
			slog.Int64("user_id", userID),
			slog.String("state", string(next)),
		)
		return StepOutcome{Next: next}, nil
	}

	return s.commit(ctx, userID, username)
}

// commit converts the draft into a durable record. Callers hold the
// per-user lock.
func (s *Profiles) commit(ctx context.Context, userID int64, username string) (StepOutcome, error) {
	draft, ok := s.fsm.Draft(userID)
	if !ok {
		return StepOutcome{Next: state.StateIdle}, ErrNoWizard
	}

	p := draft.Commit(Key(userID), username)
	if err := s.store.Upsert(ctx, p); err != nil {
		logger.Error(ctx, "wizard", "wizard.commit",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return StepOutcome{Next: s.fsm.GetState(userID)}, fmt.Errorf("commit profile: %w", err)
	}

	s.fsm.Clear(userID)
	logger.Info(ctx, "wizard", "wizard.commit",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("school", p.NormalizedSchool),
	)

	if s.mirror != nil {
		s.mirror.Enqueue(ctx, p)
	}

	return StepOutcome{Next: state.StateIdle, Committed: true, Profile: p}, nil
}

// Leaderboard returns the top n profiles ordered by manuls, ties broken
// by name for a stable listing.
func (s *Profiles) Leaderboard(ctx context.Context, n int) ([]profile.Profile, error) {
	all, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Manuls != all[j].Manuls {
			return all[i].Manuls > all[j].Manuls
		}
		return all[i].DisplayName() < all[j].DisplayName()
	})
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all, nil
}
