package bot

import (
	"fmt"
	"strings"

	"github.com/dnxsqw/physiq-bot/internal/profile"
)

const (
	textGreeting       = "👋 Привет! Я — PhysIQ, твой помощник по олимпиадной физике."
	textAlreadyHere    = "👤 Добро пожаловать обратно, %s!\n\n🧪 Вы уже зарегистрированы."
	textAskFirstName   = "👤 Введите ваше *имя*:"
	textAskLastName    = "👤 Теперь введите вашу *фамилию*:"
	textAskCity        = "🏙 Введите ваш *город*:"
	textAskSchool      = "🏫 Введите полное название вашей *школы*:"
	textAskGrade       = "🎓 Введите ваш *класс* (например, 9):"
	textRegistered     = "✅ Вы успешно зарегистрированы!"
	textCancelled      = "❌ Регистрация отменена."
	textNothingCancel  = "Сейчас нечего отменять."
	textNotRegistered  = "Ты ещё не зарегистрирован. Нажми /start."
	textCommitFailed   = "⚠️ Не удалось сохранить профиль, попробуйте ещё раз."
	textEmptyAnswer    = "Пожалуйста, отправьте текстовое сообщение."
	textDailyProblem   = "📌 Задача дня:\n\nЧто будет, если на манула подействует сила в 10 Н в течение 3 секунд?"
	textFallback       = "👀 Я тебя не понял. Нажми /start."
	textStreak         = "🔥 Твой текущий стрик: %d дней"
	textRatingHeader   = "🏆 Топ 5 по манулам:"
	textRatingEmpty    = "Пока никто не зарегистрирован. Будь первым!"
	textSlowDown       = "⏳ Не так быстро!"
	textNoAchievements = "—"
)

// profileCard renders the profile view message.
func profileCard(p profile.Profile) string {
	achievements := textNoAchievements
	if len(p.Achievements) > 0 {
		achievements = strings.Join(p.Achievements, ", ")
	}
	return fmt.Sprintf(
		"🧑‍🔬 Профиль физика\n"+
			"👤 %s\n"+
			"🏙 %s\n"+
			"🏫 %s\n"+
			"📚 Класс: %s\n"+
			"🔥 Решено задач: %d\n"+
			"🕊 Манулы: %d\n"+
			"📈 Стрик: %d дней\n"+
			"🏆 Ачивки: %s",
		p.DisplayName(), profile.NormalizeCity(p.City), p.NormalizedSchool, p.Grade,
		p.Solved, p.Manuls, p.Streak, achievements,
	)
}

// ratingText renders the leaderboard message.
func ratingText(top []profile.Profile) string {
	if len(top) == 0 {
		return textRatingEmpty
	}
	var b strings.Builder
	b.WriteString(textRatingHeader)
	for i, p := range top {
		fmt.Fprintf(&b, "\n%d. %s — %d 🐾", i+1, p.DisplayName(), p.Manuls)
	}
	return b.String()
}
