// Package tgbot binds scenario FSMs to github.com/go-telegram/bot.
//
// A Router is a bot.HandlerFunc. For each update it derives the actor from
// the sender and chat, looks up the actor's current state and dispatches to
// the handler registered for that state. The handler receives a
// scenario.Pointer bound to the update, so it can move the actor forward
// with Advance or back with Retreat:
//
//	router := tgbot.NewRouter(fsm, tgbot.WithLogger(log))
//	router.MustHandle(create, tgbot.MatchCallbackData("create"), onCreate, menu)
//	router.MustHandle(next, tgbot.MatchAnyText(), onName, askName)
//
//	b, err := bot.New(token, bot.WithDefaultHandler(router.HandleUpdate))
//
// The hook data passed through the pointer carries the "bot" and "update"
// keys; states opt into them with scenario.OnEnter / scenario.OnExit keys.
package tgbot
