package bot

import (
	"strings"
	"testing"

	"github.com/dnxsqw/physiq-bot/internal/profile"
)

func TestProfileCard(t *testing.T) {
	p := profile.Profile{
		FirstName:        "Иван",
		LastName:         "Петров",
		City:             "Астана",
		NormalizedSchool: "РФМШ Астана",
		Grade:            "9",
		Manuls:           4,
		Streak:           2,
		Solved:           7,
		Achievements:     []string{"first_blood"},
	}
	card := profileCard(p)
	for _, want := range []string{
		"Иван Петров", "Астана", "РФМШ Астана",
		"Класс: 9", "Решено задач: 7", "Манулы: 4", "Стрик: 2 дней", "first_blood",
	} {
		if !strings.Contains(card, want) {
			t.Fatalf("card missing %q:\n%s", want, card)
		}
	}
}

func TestProfileCardFoldsCapitalAlias(t *testing.T) {
	card := profileCard(profile.Profile{FirstName: "Аня", City: "нур-султан"})
	if !strings.Contains(card, "🏙 Астана") {
		t.Fatalf("old capital name must render as Астана:\n%s", card)
	}
}

func TestProfileCardNoAchievements(t *testing.T) {
	card := profileCard(profile.Profile{FirstName: "Аня"})
	if !strings.Contains(card, "Ачивки: —") {
		t.Fatalf("empty achievements must render as dash:\n%s", card)
	}
}

func TestRatingText(t *testing.T) {
	top := []profile.Profile{
		{FirstName: "Иван", LastName: "Петров", Manuls: 9},
		{FirstName: "Аня", Manuls: 5},
	}
	text := ratingText(top)
	if !strings.HasPrefix(text, textRatingHeader) {
		t.Fatalf("missing header:\n%s", text)
	}
	if !strings.Contains(text, "1. Иван Петров — 9 🐾") {
		t.Fatalf("missing first entry:\n%s", text)
	}
	if !strings.Contains(text, "2. Аня — 5 🐾") {
		t.Fatalf("missing second entry:\n%s", text)
	}
}

func TestRatingTextEmpty(t *testing.T) {
	if got := ratingText(nil); got != textRatingEmpty {
		t.Fatalf("empty rating = %q", got)
	}
}

func TestStepPromptsCoverAllStates(t *testing.T) {
	if len(stepPrompts) != 5 {
		t.Fatalf("expected prompts for 5 wizard steps, got %d", len(stepPrompts))
	}
}
