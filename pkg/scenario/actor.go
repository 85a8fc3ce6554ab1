package scenario

import (
	"fmt"
	"strconv"
)

// Actor identifies whose FSM instance is being transitioned. Both ids are
// optional; zero means absent.
type Actor struct {
	UserID int64
	ChatID int64
}

// NewActor returns the actor for the given user and chat.
func NewActor(userID, chatID int64) Actor {
	return Actor{UserID: userID, ChatID: chatID}
}

// Key returns the composite key used by stores and lock registries.
func (a Actor) Key() string {
	return "user:" + idString(a.UserID) + ":chat:" + idString(a.ChatID)
}

func (a Actor) String() string {
	return fmt.Sprintf("user_id=%s, chat_id=%s", idString(a.UserID), idString(a.ChatID))
}

func idString(id int64) string {
	if id == 0 {
		return "none"
	}
	return strconv.FormatInt(id, 10)
}
