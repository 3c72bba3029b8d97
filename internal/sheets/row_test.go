package sheets

import (
	"testing"

	"github.com/dnxsqw/physiq-bot/internal/profile"
)

func TestProfileRowMatchesHeader(t *testing.T) {
	p := profile.Profile{
		UserID:           "42",
		Username:         "ivan_p",
		FirstName:        "Иван",
		LastName:         "Петров",
		City:             "Астана",
		School:           "школа-лицей №8 павлодар",
		NormalizedSchool: "ШЛ №8 Павлодар",
		Grade:            "9",
		Manuls:           5,
		Streak:           2,
		Solved:           11,
		Achievements:     []string{"first_blood", "streak_2"},
	}

	row := profileRow(p)
	if len(row) != len(headerRow) {
		t.Fatalf("row has %d cells, header has %d", len(row), len(headerRow))
	}

	want := []interface{}{
		"42", "ivan_p", "Иван", "Петров", "Астана",
		"школа-лицей №8 павлодар", "ШЛ №8 Павлодар", "9",
		5, 2, 11, "first_blood, streak_2",
	}
	for i := range want {
		if row[i] != want[i] {
			t.Fatalf("cell %d (%v) = %v, want %v", i, headerRow[i], row[i], want[i])
		}
	}
}

func TestProfileRowEmptyAchievements(t *testing.T) {
	row := profileRow(profile.Profile{UserID: "1"})
	last := row[len(row)-1]
	if last != "" {
		t.Fatalf("achievements cell = %q, want empty", last)
	}
}
