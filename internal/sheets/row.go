package sheets

import (
	"strings"

	"github.com/dnxsqw/physiq-bot/internal/profile"
)

// keyColumn is where the user ID lives; lookup-or-append keys on it.
const keyColumn = "A"

// headerRow is the fixed column layout of the mirror sheet.
var headerRow = []interface{}{
	"id",
	"username",
	"first_name",
	"last_name",
	"city",
	"school",
	"normalized_school",
	"class",
	"manuls",
	"streak",
	"solved",
	"achievements",
}

// profileRow renders one record in the header's column order. Achievements
// collapse into a single comma separated cell.
func profileRow(p profile.Profile) []interface{} {
	return []interface{}{
		p.UserID,
		p.Username,
		p.FirstName,
		p.LastName,
		p.City,
		p.School,
		p.NormalizedSchool,
		p.Grade,
		p.Manuls,
		p.Streak,
		p.Solved,
		strings.Join(p.Achievements, ", "),
	}
}
