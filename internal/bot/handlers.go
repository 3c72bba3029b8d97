// Package bot holds the PhysIQ handlers: registration wizard entry
// points, the profile card, the manuls rating and the main menu flow.
package bot

import (
	"fmt"

	tele "gopkg.in/telebot.v4"

	"github.com/dnxsqw/physiq-bot/internal/service"
	"github.com/dnxsqw/physiq-bot/internal/state"
	tg "github.com/dnxsqw/physiq-bot/internal/telegram"
	"github.com/dnxsqw/physiq-bot/internal/telegram/commands"
	tghelpers "github.com/dnxsqw/physiq-bot/internal/telegram/helpers"
	"github.com/dnxsqw/physiq-bot/internal/telegram/router"
)

const leaderboardSize = 5

// Bot wires handlers to the profile service and the FSM manager.
type Bot struct {
	svc *service.Profiles
	fsm state.Manager
}

// New constructs the handler set.
func New(svc *service.Profiles, fsm state.Manager) *Bot {
	b := &Bot{svc: svc, fsm: fsm}
	b.registerWizardHandlers()
	return b
}

// wizardFirst routes the update into the active wizard before letting
// the command run. /cancel stays outside so it can always break out.
func (b *Bot) wizardFirst(h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if b.fsm.InProgress(c.Sender().ID) {
			return b.fsm.ManagerHandler(c)
		}
		return h(c)
	}
}

// Registry returns the command registry with every command and menu
// button alias bound.
func (b *Bot) Registry() *tg.Registry {
	reg := tg.NewRegistry()

	reg.RegisterCommand("/start", commands.Command{
		Handler:     b.wizardFirst(b.handleStart),
		Description: "начать работу и регистрацию",
	})
	reg.RegisterCommand("/profile", commands.Command{
		Handler:     b.wizardFirst(b.handleProfile),
		Description: "показать профиль",
		Aliases:     []string{btnProfile},
	})
	reg.RegisterCommand("/edit", commands.Command{
		Handler:     b.wizardFirst(b.handleEdit),
		Description: "изменить профиль",
		Aliases:     []string{btnEdit},
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     b.handleCancel,
		Description: "отменить регистрацию",
	})
	reg.RegisterCommand("/rating", commands.Command{
		Handler:     b.wizardFirst(b.handleRating),
		Description: "топ 5 по манулам",
		Aliases:     []string{btnRating},
	})
	reg.RegisterCommand("/streak", commands.Command{
		Handler:     b.wizardFirst(b.handleStreak),
		Description: "текущий стрик",
		Aliases:     []string{btnStreak},
	})
	reg.RegisterCommand("/solve", commands.Command{
		Handler:     b.wizardFirst(b.handleSolve),
		Description: "задача дня",
		Aliases:     []string{btnSolve},
	})

	reg.SetTextFallback(b.handleFallback)
	return reg
}

// Routes assembles the full route set: wrapped commands plus the text
// router with wizard precedence.
func (b *Bot) Routes(reg *tg.Registry) []tg.Route {
	routes := router.CommandRoutes(reg)
	routes = append(routes, router.TextRoutes(b.fsm, reg, router.TextOptions{
		UnknownText: b.handleFallback,
	})...)
	return routes
}

// OnRateLimited replies when a user sends updates too fast.
func (b *Bot) OnRateLimited(c tele.Context) error {
	return tghelpers.SendText(c, textSlowDown)
}

// handleStart greets registered users and opens the wizard for new ones.
func (b *Bot) handleStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	p, ok, err := b.svc.Get(ctx, c.Sender().ID)
	if err != nil {
		return fmt.Errorf("start lookup: %w", err)
	}
	if ok {
		return tghelpers.SendText(c, fmt.Sprintf(textAlreadyHere, p.FirstName), mainMenu())
	}
	if err := tghelpers.SendText(c, textGreeting); err != nil {
		return err
	}
	return b.startWizard(c)
}

// handleProfile shows the profile card or points at /start.
func (b *Bot) handleProfile(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	p, ok, err := b.svc.Get(ctx, c.Sender().ID)
	if err != nil {
		return fmt.Errorf("profile lookup: %w", err)
	}
	if !ok {
		return tghelpers.SendText(c, textNotRegistered)
	}
	return tghelpers.SendText(c, profileCard(p), mainMenu())
}

// handleEdit restarts the wizard; the stored record survives until the
// new draft commits.
func (b *Bot) handleEdit(c tele.Context) error {
	return b.startWizard(c)
}

// handleCancel discards a mid-wizard draft.
func (b *Bot) handleCancel(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	if !b.svc.CancelWizard(ctx, c.Sender().ID) {
		return tghelpers.SendText(c, textNothingCancel)
	}
	return tghelpers.SendText(c, textCancelled, mainMenu())
}

// handleRating shows the top profiles by manuls.
func (b *Bot) handleRating(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	top, err := b.svc.Leaderboard(ctx, leaderboardSize)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}
	return tghelpers.SendText(c, ratingText(top))
}

// handleStreak shows the user's current streak counter.
func (b *Bot) handleStreak(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	p, ok, err := b.svc.Get(ctx, c.Sender().ID)
	if err != nil {
		return fmt.Errorf("streak lookup: %w", err)
	}
	if !ok {
		return tghelpers.SendText(c, textNotRegistered)
	}
	return tghelpers.SendText(c, fmt.Sprintf(textStreak, p.Streak))
}

// handleSolve sends the daily problem.
// TODO: replace the static problem with a rotating task source.
func (b *Bot) handleSolve(c tele.Context) error {
	return tghelpers.SendText(c, textDailyProblem)
}

// handleFallback answers anything the router could not place.
func (b *Bot) handleFallback(c tele.Context) error {
	return tghelpers.SendText(c, textFallback)
}
