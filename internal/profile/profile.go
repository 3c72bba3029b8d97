// Package profile defines the durable user record, the ephemeral
// registration draft and the school name normalizer.
package profile

import "fmt"

// Profile is the durable per-user record. JSON field names are the
// persisted contract of the snapshot file; the user ID is the map key
// there, so it carries no JSON tag.
type Profile struct {
	UserID           string   `json:"-" db:"user_id"`
	Username         string   `json:"username" db:"username"`
	FirstName        string   `json:"first_name" db:"first_name"`
	LastName         string   `json:"last_name" db:"last_name"`
	City             string   `json:"city" db:"city"`
	School           string   `json:"school" db:"school"`
	NormalizedSchool string   `json:"normalized_school" db:"normalized_school"`
	Grade            string   `json:"class" db:"grade"`
	Manuls           int      `json:"manuls" db:"manuls"`
	Streak           int      `json:"streak" db:"streak"`
	Solved           int      `json:"solved" db:"solved"`
	Achievements     []string `json:"achievements" db:"-"`
}

// DisplayName returns the full name for greetings and profile cards.
func (p Profile) DisplayName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return fmt.Sprintf("%s %s", p.FirstName, p.LastName)
}

// HasAchievement reports whether the achievement is already granted.
func (p Profile) HasAchievement(id string) bool {
	for _, a := range p.Achievements {
		if a == id {
			return true
		}
	}
	return false
}

// WithAchievement returns a copy with the achievement appended once.
// Achievements are append-only from the registry's perspective.
func (p Profile) WithAchievement(id string) Profile {
	if id == "" || p.HasAchievement(id) {
		return p
	}
	out := p
	out.Achievements = append(append([]string(nil), p.Achievements...), id)
	return out
}

// Clamp resets negative counters and a nil achievement list so that a
// record loaded from an external snapshot satisfies the invariants.
func (p Profile) Clamp() Profile {
	out := p
	if out.Manuls < 0 {
		out.Manuls = 0
	}
	if out.Streak < 0 {
		out.Streak = 0
	}
	if out.Solved < 0 {
		out.Solved = 0
	}
	if out.Achievements == nil {
		out.Achievements = []string{}
	}
	return out
}
