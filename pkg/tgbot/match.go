package tgbot

import (
	"slices"
	"strings"

	"github.com/go-telegram/bot/models"
)

// MatchFunc reports whether a handler should receive the update.
type MatchFunc func(update *models.Update) bool

func messageText(update *models.Update) (string, bool) {
	if update.Message == nil {
		return "", false
	}
	return update.Message.Text, true
}

// MatchAny accepts every update.
func MatchAny() MatchFunc {
	return func(*models.Update) bool { return true }
}

// MatchAnyText accepts any message with non-empty text.
func MatchAnyText() MatchFunc {
	return func(update *models.Update) bool {
		text, ok := messageText(update)
		return ok && text != ""
	}
}

// MatchText accepts messages whose text equals one of texts.
func MatchText(texts ...string) MatchFunc {
	return func(update *models.Update) bool {
		text, ok := messageText(update)
		return ok && slices.Contains(texts, text)
	}
}

// MatchCommand accepts "/name", "/name args" and "/name@botname".
func MatchCommand(name string) MatchFunc {
	cmd := "/" + strings.TrimPrefix(name, "/")
	return func(update *models.Update) bool {
		text, ok := messageText(update)
		if !ok || !strings.HasPrefix(text, cmd) {
			return false
		}
		rest := text[len(cmd):]
		return rest == "" || rest[0] == ' ' || rest[0] == '@'
	}
}

// MatchCallbackData accepts callback queries whose data equals one of values.
func MatchCallbackData(values ...string) MatchFunc {
	return func(update *models.Update) bool {
		return update.CallbackQuery != nil && slices.Contains(values, update.CallbackQuery.Data)
	}
}

// MatchAnyOf accepts updates accepted by at least one of matchers.
func MatchAnyOf(matchers ...MatchFunc) MatchFunc {
	return func(update *models.Update) bool {
		for _, m := range matchers {
			if m(update) {
				return true
			}
		}
		return false
	}
}
