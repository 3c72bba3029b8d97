package state

import (
	"sync"
	"time"

	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/dnxsqw/physiq-bot/internal/logger"
	"github.com/dnxsqw/physiq-bot/internal/profile"
	tghelpers "github.com/dnxsqw/physiq-bot/internal/telegram/helpers"
)

type memoryManager struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	sessions map[int64]*Session

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

// NewMemoryManager constructs an in-memory Manager. Drafts created through
// it expire after ttl of inactivity; ttl <= 0 disables expiry.
func NewMemoryManager(ttl time.Duration) Manager {
	return &memoryManager{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[int64]*Session),
		locks:    make(map[int64]*sync.Mutex),
	}
}

// Get returns a copy of the session, or an idle one if none exists.
func (m *memoryManager) Get(userID int64) Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sess, ok := m.sessions[userID]; ok {
		return *sess
	}
	return Session{State: StateIdle}
}

// SetState sets the FSM state for the given user.
func (m *memoryManager) SetState(userID int64, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	if !ok {
		sess = &Session{}
		m.sessions[userID] = sess
	}
	sess.State = st
}

// GetState returns the current FSM state of a user, or StateIdle if none exists.
func (m *memoryManager) GetState(userID int64) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sess, ok := m.sessions[userID]; ok {
		return sess.State
	}
	return StateIdle
}

// Clear removes the entire session for a user, draft included.
func (m *memoryManager) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// BeginDraft replaces the session with a fresh draft at the first step.
func (m *memoryManager) BeginDraft(userID int64) *profile.Draft {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := &profile.Draft{}
	if m.ttl > 0 {
		d.ExpiresAt = m.now().Add(m.ttl)
	}
	m.sessions[userID] = &Session{State: First(), Draft: d}
	return d
}

// Draft returns the live draft for a user. An expired draft is dropped
// together with its wizard state.
func (m *memoryManager) Draft(userID int64) (*profile.Draft, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	if !ok || sess.Draft == nil {
		return nil, false
	}
	if sess.Draft.Expired(m.now()) {
		delete(m.sessions, userID)
		return nil, false
	}
	return sess.Draft, true
}

// UpdateDraft applies fn to the live draft and pushes its deadline out.
func (m *memoryManager) UpdateDraft(userID int64, fn func(*profile.Draft)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	if !ok || sess.Draft == nil || sess.Draft.Expired(m.now()) {
		return false
	}
	fn(sess.Draft)
	if m.ttl > 0 {
		sess.Draft.ExpiresAt = m.now().Add(m.ttl)
	}
	return true
}

// InProgress reports whether the user is mid-wizard with a live draft.
func (m *memoryManager) InProgress(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	if !ok || !IsWizard(sess.State) {
		return false
	}
	if sess.Draft == nil || sess.Draft.Expired(m.now()) {
		delete(m.sessions, userID)
		return false
	}
	return true
}

// Lock acquires the per-user mutex.
func (m *memoryManager) Lock(userID int64) {
	m.userLock(userID).Lock()
}

// Unlock releases the per-user mutex.
func (m *memoryManager) Unlock(userID int64) {
	m.userLock(userID).Unlock()
}

func (m *memoryManager) userLock(userID int64) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	return l
}

// Sweep removes every expired draft session.
func (m *memoryManager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for id, sess := range m.sessions {
		if sess.Draft != nil && sess.Draft.Expired(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 && logger.Wizard != nil {
		logger.Wizard.Info("expired drafts dropped",
			slog.String("event", "fsm.sweep"),
			slog.Int("count", removed),
		)
	}
	return removed
}

// ManagerHandler executes the handler registered for the user's current state.
func (m *memoryManager) ManagerHandler(c tele.Context) error {
	userID := c.Sender().ID
	current := m.GetState(userID)
	ctx := tghelpers.BuildContext(c)
	logger.Debug(ctx, "wizard", "fsm.manager",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("state", string(current)),
	)

	if handler, ok := fsmHandlers[current]; ok {
		return handler(c)
	}
	return nil
}
