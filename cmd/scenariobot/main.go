package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/tgscenario/pkg/config"
	"github.com/dmitrymomot/tgscenario/pkg/diag"
	"github.com/dmitrymomot/tgscenario/pkg/logger"
	"github.com/dmitrymomot/tgscenario/pkg/scenario"
	"github.com/dmitrymomot/tgscenario/pkg/tgbot"
)

type appConfig struct {
	BotToken        string `env:"BOT_TOKEN,required"`
	Env             string `env:"APP_ENV" envDefault:"development"`
	ServiceName     string `env:"SERVICE_NAME" envDefault:"scenariobot"`
	StoreDriver     string `env:"STORE_DRIVER" envDefault:"memory"`
	TransitionsFile string `env:"TRANSITIONS_FILE"`
}

// exportConfig is the part of the environment -export needs. It is loaded on
// its own so that exporting works without bot credentials.
type exportConfig struct {
	TransitionsFile string `env:"TRANSITIONS_FILE"`
}

func main() {
	exportPath := flag.String("export", "", "write the transitions table as CSV to this path and exit")
	exportEncoding := flag.String("encoding", "utf-8", "encoding of the exported CSV")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	if *exportPath != "" {
		err = export(*exportPath, *exportEncoding)
	} else {
		err = run(ctx)
	}
	if err != nil {
		slog.Error("scenariobot failed", logger.Error(err))
		os.Exit(1)
	}
}

func export(path, encoding string) error {
	var cfg exportConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	table, err := newWizard(logger.Nop()).table(cfg.TransitionsFile)
	if err != nil {
		return err
	}
	return table.ExportFile(path, scenario.WithEncoding(encoding))
}

func run(ctx context.Context) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env, cfg.ServiceName),
		logger.WithContextExtractors(scenario.LogActor),
	)
	logger.SetAsDefault(log)

	be, err := openBackend(ctx, cfg.StoreDriver, log)
	if err != nil {
		return err
	}
	defer be.close()

	w := newWizard(log)
	table, err := w.table(cfg.TransitionsFile)
	if err != nil {
		return err
	}

	fsm, err := scenario.New(table, be.store,
		scenario.WithLocker(be.locker),
		scenario.WithLogger(log),
	)
	if err != nil {
		return err
	}

	router := tgbot.NewRouter(fsm, tgbot.WithLogger(log), tgbot.WithFallback(w.fallback))
	if err := w.register(router, fsm); err != nil {
		return err
	}

	var throttleCfg tgbot.ThrottleConfig
	if err := config.Load(&throttleCfg); err != nil {
		return err
	}
	throttle, err := tgbot.NewThrottle(throttleCfg,
		tgbot.WithThrottleLogger(log),
		tgbot.WithOnThrottled(w.throttled),
	)
	if err != nil {
		return err
	}

	b, err := bot.New(cfg.BotToken,
		bot.WithDefaultHandler(router.HandleUpdate),
		bot.WithMiddlewares(tgbot.ActorMiddleware, throttle.Middleware),
	)
	if err != nil {
		return fmt.Errorf("creating bot: %w", err)
	}

	var diagCfg diag.Config
	if err := config.Load(&diagCfg); err != nil {
		return err
	}
	srv := diag.NewFromConfig(diagCfg, diag.WithLogger(log))
	handler := diag.NewRouter(fsm,
		diag.WithHealthChecks(be.checks...),
		diag.WithRouterLogger(log),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx, handler)
	})
	g.Go(func() error {
		log.InfoContext(ctx, "bot started", slog.String("store", cfg.StoreDriver))
		b.Start(ctx)
		return nil
	})
	return g.Wait()
}
