package tgbot

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/dmitrymomot/tgscenario/pkg/scenario"
)

// ActorFromUpdate extracts the sender and chat of an update. Missing parts
// are left as zero. The second result is false when the update carries
// neither.
func ActorFromUpdate(update *models.Update) (scenario.Actor, bool) {
	if update == nil {
		return scenario.Actor{}, false
	}

	var actor scenario.Actor
	switch {
	case update.Message != nil:
		actor = fromMessage(update.Message)
	case update.EditedMessage != nil:
		actor = fromMessage(update.EditedMessage)
	case update.ChannelPost != nil:
		actor = fromMessage(update.ChannelPost)
	case update.EditedChannelPost != nil:
		actor = fromMessage(update.EditedChannelPost)
	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		actor.UserID = cq.From.ID
		switch {
		case cq.Message.Message != nil:
			actor.ChatID = cq.Message.Message.Chat.ID
		case cq.Message.InaccessibleMessage != nil:
			actor.ChatID = cq.Message.InaccessibleMessage.Chat.ID
		}
	}

	return actor, actor.UserID != 0 || actor.ChatID != 0
}

func fromMessage(m *models.Message) scenario.Actor {
	actor := scenario.Actor{ChatID: m.Chat.ID}
	if m.From != nil {
		actor.UserID = m.From.ID
	}
	return actor
}

// ActorMiddleware stores the update actor in the handler context so that
// loggers configured with scenario.LogActor tag every record with it.
func ActorMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if actor, ok := ActorFromUpdate(update); ok {
			ctx = scenario.WithActor(ctx, actor)
		}
		next(ctx, b, update)
	}
}
