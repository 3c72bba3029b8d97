package bot

import (
	"errors"

	tele "gopkg.in/telebot.v4"

	"github.com/dnxsqw/physiq-bot/internal/service"
	"github.com/dnxsqw/physiq-bot/internal/state"
	tghelpers "github.com/dnxsqw/physiq-bot/internal/telegram/helpers"
)

// stepPrompts maps the state reached after a step to the next question.
var stepPrompts = map[state.State]string{
	state.StateRegFirstName: textAskFirstName,
	state.StateRegLastName:  textAskLastName,
	state.StateRegCity:      textAskCity,
	state.StateRegSchool:    textAskSchool,
	state.StateRegGrade:     textAskGrade,
}

// registerWizardHandlers binds every registration state to the shared
// step handler. The FSM manager dispatches to it while a draft is live.
func (b *Bot) registerWizardHandlers() {
	for _, st := range []state.State{
		state.StateRegFirstName,
		state.StateRegLastName,
		state.StateRegCity,
		state.StateRegSchool,
		state.StateRegGrade,
	} {
		state.RegisterHandler(st, b.handleWizardStep)
	}
}

// handleWizardStep consumes one answer. Cancel requests win over the
// current step; everything else is applied through the service.
func (b *Bot) handleWizardStep(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID
	text := c.Text()

	if text == "/cancel" || text == btnCancel {
		return b.handleCancel(c)
	}

	out, err := b.svc.ApplyStep(ctx, userID, senderUsername(c), text)
	switch {
	case errors.Is(err, service.ErrEmptyInput):
		return tghelpers.SendText(c, textEmptyAnswer)
	case errors.Is(err, service.ErrNoWizard):
		return tghelpers.SendText(c, textFallback)
	case err != nil:
		return tghelpers.SendText(c, textCommitFailed)
	}

	if out.Committed {
		return tghelpers.SendText(c, textRegistered, mainMenu())
	}
	if prompt, ok := stepPrompts[out.Next]; ok {
		return tghelpers.SendMD(c, prompt, wizardMenu())
	}
	return nil
}

// startWizard opens a fresh draft and asks the first question.
func (b *Bot) startWizard(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	b.svc.StartWizard(ctx, c.Sender().ID)
	return tghelpers.SendMD(c, textAskFirstName, wizardMenu())
}

func senderUsername(c tele.Context) string {
	if u := c.Sender(); u != nil {
		return u.Username
	}
	return ""
}
