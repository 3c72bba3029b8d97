package bot

import (
	tele "gopkg.in/telebot.v4"

	"github.com/dnxsqw/physiq-bot/internal/telegram/keyboard"
)

const (
	btnSolve   = "🎯 Решать!"
	btnProfile = "📄 Мой профиль"
	btnEdit    = "⚙️ Изменить профиль"
	btnRating  = "📊 Рейтинг"
	btnStreak  = "📅 Стрик"
	btnCancel  = "❌ Отмена"
)

// mainMenu is the persistent reply keyboard shown after registration.
func mainMenu() *tele.ReplyMarkup {
	return keyboard.ReplyButtons(
		[]string{btnSolve},
		[]string{btnProfile, btnEdit},
		[]string{btnRating, btnStreak},
	)
}

// wizardMenu shows only the cancel button while a draft is active.
func wizardMenu() *tele.ReplyMarkup {
	return keyboard.ReplyButtons([]string{btnCancel})
}
