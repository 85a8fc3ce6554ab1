// Package scenario implements a per-actor finite-state-machine engine for
// conversational bots with durable, replayable history.
//
// Each actor (a user/chat pair) owns an independent FSM instance whose state
// lives in a Store. The engine is made of:
//
//  1. Table – the transition graph, (source state, signal) -> destination.
//  2. Locker – at most one in-flight transition per actor; a second attempt
//     fails fast with *LockingError instead of queueing.
//  3. Magazine – the append-only log of visited state names per actor. Going
//     back appends the previous state again, so the log only grows.
//  4. FSM – runs exit hook, enter hook, state persistence and magazine commit
//     under the actor lock.
//  5. Pointer – binds one inbound event to the FSM with Advance and Retreat.
//
// # Usage
//
//	menu := scenario.NewState("menu")
//	askName := scenario.NewState("ask_name",
//	    scenario.OnEnter(func(ctx context.Context, event any, data scenario.Data) error {
//	        return send(ctx, data["bot"], "What is your name?")
//	    }, "bot"),
//	)
//
//	table := scenario.MustNewTable(menu,
//	    scenario.WithTransition(menu, scenario.StringSignal("create"), askName),
//	)
//	fsm := scenario.MustNew(table, scenario.NewMemoryStore())
//
//	p := scenario.NewPointer(fsm, scenario.StringSignal("create"), update, data, scenario.NewActor(userID, chatID))
//	if err := p.Advance(ctx); err != nil {
//	    // handle
//	}
//
// # Hook parameters
//
// Hooks share one context mapping (Data). A state may declare, through
// ParamDeclarer, which keys each hook accepts; the manifest is captured when
// the state is registered in a table and the engine passes only those keys.
// States without a manifest receive the whole mapping.
//
// # Failure model
//
// The lock prevents concurrent corruption only. If a hook or the store fails
// midway, earlier steps are not compensated: hooks may have run while the
// state was not recorded. Callers decide whether to retry or report.
//
// The source state is read before the lock is taken. Once the lock is held
// the magazine is compared with the stored log, and a transition that lost a
// race to another one fails with ErrStaleMagazine before any hook runs. The
// first update of an actor seeds the log through Store.InitLog, so two first
// updates never overwrite each other's history.
//
// # Error Handling
//
//	if scenario.IsLockingError(err)            { /* duplicate trigger */ }
//	if errors.Is(err, scenario.ErrNotEnoughHistory) { /* nothing to go back to */ }
//	if scenario.IsStateNotFound(err)           { /* signal not allowed here */ }
package scenario
