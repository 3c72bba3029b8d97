package profile

import "time"

// Draft holds the partially filled registration answers for one user.
// It lives only for the duration of the wizard and is converted into a
// Profile at commit time.
type Draft struct {
	FirstName string
	LastName  string
	City      string
	School    string
	Grade     string

	// ExpiresAt bounds the lifetime of an abandoned draft.
	ExpiresAt time.Time
}

// Expired reports whether the draft outlived its deadline.
func (d *Draft) Expired(now time.Time) bool {
	if d == nil || d.ExpiresAt.IsZero() {
		return false
	}
	return now.After(d.ExpiresAt)
}

// Commit builds the durable record from the collected answers. Counters
// start at zero and the achievement set starts empty; the school name is
// normalized as a pure function of the raw value.
func (d *Draft) Commit(userID, username string) Profile {
	return Profile{
		UserID:           userID,
		Username:         username,
		FirstName:        d.FirstName,
		LastName:         d.LastName,
		City:             d.City,
		School:           d.School,
		NormalizedSchool: NormalizeSchool(d.School),
		Grade:            d.Grade,
		Manuls:           0,
		Streak:           0,
		Solved:           0,
		Achievements:     []string{},
	}
}
