package main

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/dmitrymomot/tgscenario/pkg/logger"
	"github.com/dmitrymomot/tgscenario/pkg/scenario"
	"github.com/dmitrymomot/tgscenario/pkg/tgbot"
)

//go:embed wizard.yaml
var defaultTransitions []byte

var (
	sigStart   = scenario.StringSignal("start")
	sigCreate  = scenario.StringSignal("create")
	sigName    = scenario.StringSignal("name")
	sigSubmit  = scenario.StringSignal("submit")
	sigCancel  = scenario.StringSignal("cancel")
	sigRestart = scenario.StringSignal("restart")
	sigBack    = scenario.StringSignal("back")

	namePattern = regexp.MustCompile(`^[\p{L}\p{N}_ ]{3,32}$`)

	errNoChat = errors.New("update has no chat to reply to")
)

// wizard is a small "create a scenario" dialog: menu, ask_name, confirm, done.
type wizard struct {
	log   *slog.Logger
	names sync.Map // actor key -> submitted name

	menu    scenario.State
	askName scenario.State
	confirm scenario.State
	done    scenario.State
}

func newWizard(log *slog.Logger) *wizard {
	w := &wizard{log: log}
	w.menu = scenario.NewState("menu", scenario.OnEnter(w.enterMenu, "bot", "update"))
	w.askName = scenario.NewState("ask_name", scenario.OnEnter(w.enterAskName, "bot", "update"))
	w.confirm = scenario.NewState("confirm", scenario.OnEnter(w.enterConfirm, "bot", "update"))
	w.done = scenario.NewState("done",
		scenario.OnEnter(w.enterDone, "bot", "update"),
		scenario.OnExit(w.exitDone, "update"),
	)
	return w
}

// table loads the transitions from path, or the embedded definition when
// path is empty.
func (w *wizard) table(path string) (*scenario.Table, error) {
	var r io.Reader = bytes.NewReader(defaultTransitions)
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening transitions file: %w", err)
		}
		defer f.Close()
		r = f
	}
	return scenario.LoadTransitions(r, w.menu, w.askName, w.confirm, w.done)
}

func (w *wizard) register(r *tgbot.Router, fsm *scenario.FSM) error {
	cancel := tgbot.MatchAnyOf(tgbot.MatchCommand("cancel"), tgbot.MatchCallbackData("cancel"))

	routes := []struct {
		signal  scenario.Signal
		match   tgbot.MatchFunc
		handler tgbot.HandlerFunc
		states  []scenario.State
	}{
		{sigStart, tgbot.MatchCommand("start"), w.onStart(fsm), []scenario.State{w.menu, w.askName, w.confirm, w.done}},
		{sigCancel, cancel, w.advance, []scenario.State{w.askName, w.confirm, w.done}},
		{sigCreate, tgbot.MatchCallbackData("create"), w.advance, []scenario.State{w.menu}},
		{sigName, tgbot.MatchAnyText(), w.onName, []scenario.State{w.askName}},
		{sigSubmit, tgbot.MatchCallbackData("submit"), w.advance, []scenario.State{w.confirm}},
		{sigBack, tgbot.MatchCallbackData("back"), w.retreat, []scenario.State{w.confirm}},
		{sigRestart, tgbot.MatchCallbackData("restart"), w.advance, []scenario.State{w.done}},
	}
	for _, rt := range routes {
		if err := r.Handle(rt.signal, rt.match, rt.handler, rt.states...); err != nil {
			return err
		}
	}
	return nil
}

// onStart resets the actor's history to the menu from any state.
func (w *wizard) onStart(fsm *scenario.FSM) tgbot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update, p *scenario.Pointer) error {
		if err := fsm.SetChronology(ctx, p.Actor()); err != nil {
			return err
		}
		w.names.Delete(p.Actor().Key())
		return w.enterMenu(ctx, update, scenario.Data{"bot": b, "update": update})
	}
}

func (w *wizard) advance(ctx context.Context, b *bot.Bot, update *models.Update, p *scenario.Pointer) error {
	answerCallback(ctx, b, update)
	return p.Advance(ctx)
}

func (w *wizard) retreat(ctx context.Context, b *bot.Bot, update *models.Update, p *scenario.Pointer) error {
	answerCallback(ctx, b, update)
	return p.Retreat(ctx)
}

func (w *wizard) onName(ctx context.Context, b *bot.Bot, update *models.Update, p *scenario.Pointer) error {
	name := strings.TrimSpace(update.Message.Text)
	if !namePattern.MatchString(name) {
		return reply(ctx, scenario.Data{"bot": b, "update": update},
			"The name must be 3-32 letters, digits, spaces or underscores. Try again.", nil)
	}
	w.names.Store(p.Actor().Key(), name)
	return p.Advance(ctx)
}

func (w *wizard) fallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	answerCallback(ctx, b, update)
	if update.Message == nil {
		return
	}
	err := reply(ctx, scenario.Data{"bot": b, "update": update}, "I did not get that. Send /start to begin again.", nil)
	if err != nil {
		w.log.ErrorContext(ctx, "failed to send fallback reply", logger.Error(err))
	}
}

// throttled acknowledges dropped button taps so clients stop spinning.
func (w *wizard) throttled(ctx context.Context, b *bot.Bot, update *models.Update) {
	answerCallback(ctx, b, update)
}

func (w *wizard) enterMenu(ctx context.Context, event any, data scenario.Data) error {
	return reply(ctx, data, "What would you like to do?", keyboard(
		button("Create scenario", "create"),
	))
}

func (w *wizard) enterAskName(ctx context.Context, _ any, data scenario.Data) error {
	return reply(ctx, data, "Send a name for the new scenario. /cancel returns to the menu.", nil)
}

func (w *wizard) enterConfirm(ctx context.Context, _ any, data scenario.Data) error {
	name := w.nameFor(data)
	return reply(ctx, data, fmt.Sprintf("Create scenario %q?", name), keyboard(
		button("Submit", "submit"),
		button("Back", "back"),
		button("Cancel", "cancel"),
	))
}

func (w *wizard) enterDone(ctx context.Context, _ any, data scenario.Data) error {
	name := w.nameFor(data)
	w.log.InfoContext(ctx, "scenario created", slog.String("name", name))
	return reply(ctx, data, fmt.Sprintf("Scenario %q saved.", name), keyboard(
		button("Create another", "restart"),
		button("Menu", "cancel"),
	))
}

// exitDone forgets the submitted name once the actor leaves the final state.
func (w *wizard) exitDone(_ context.Context, _ any, data scenario.Data) error {
	update, _ := data["update"].(*models.Update)
	if actor, ok := tgbot.ActorFromUpdate(update); ok {
		w.names.Delete(actor.Key())
	}
	return nil
}

func (w *wizard) nameFor(data scenario.Data) string {
	update, _ := data["update"].(*models.Update)
	actor, _ := tgbot.ActorFromUpdate(update)
	if v, ok := w.names.Load(actor.Key()); ok {
		return v.(string)
	}
	return "unnamed"
}

func reply(ctx context.Context, data scenario.Data, text string, markup models.ReplyMarkup) error {
	b, _ := data["bot"].(*bot.Bot)
	update, _ := data["update"].(*models.Update)
	actor, ok := tgbot.ActorFromUpdate(update)
	if b == nil || !ok || actor.ChatID == 0 {
		return errNoChat
	}

	params := &bot.SendMessageParams{ChatID: actor.ChatID, Text: text}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	_, err := b.SendMessage(ctx, params)
	return err
}

func answerCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if b == nil || update.CallbackQuery == nil {
		return
	}
	_, _ = b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: update.CallbackQuery.ID})
}

func button(text, data string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, CallbackData: data}
}

// keyboard lays buttons out one per row.
func keyboard(buttons ...models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []models.InlineKeyboardButton{b})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
