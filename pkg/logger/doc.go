// Package logger builds the *slog.Logger shared by the bot, the FSM engine and
// the storage backends.
//
// New assembles a text or JSON handler from Option values and wraps it in a
// ContextHandler, which copies attributes out of the record's context. The
// bot registers scenario.LogActor as an extractor, so every record written
// while an update is handled carries the actor group without the call site
// passing it:
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, cfg.ServiceName),
//	    logger.WithContextExtractors(scenario.LogActor),
//	)
//	logger.SetAsDefault(log)
//
//	ctx = scenario.WithActor(ctx, scenario.NewActor(userID, chatID))
//	log.InfoContext(ctx, "transition completed",
//	    logger.Transition("ask_name", "confirm"),
//	    logger.Signal("name"),
//	)
//	// {"level":"INFO","msg":"transition completed","transition":{"from":"ask_name","to":"confirm"},
//	//  "signal":"name","actor":{"user_id":42,"chat_id":42}}
//
// An attribute set explicitly on the record takes precedence over the one an
// extractor would add under the same key.
//
// Attribute helpers in attr.go keep key names stable across packages:
// UserID and ChatID drop zero ids, State, Signal and Transition describe the
// FSM, Component tags the emitting package. Error and Errors return an empty
// attribute for nil errors, so
//
//	log.WarnContext(ctx, "reply failed", logger.Error(err))
//
// needs no nil check.
//
// WithEnvironment picks JSON at info level for production and staging, and
// text at debug level otherwise. Nop discards everything and is what tests
// pass to the FSM and routers.
package logger
