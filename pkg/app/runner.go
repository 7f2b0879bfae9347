package app

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/botdash/pkg/actions"
	"github.com/small-frappuccino/botdash/pkg/botapi"
	"github.com/small-frappuccino/botdash/pkg/control"
	"github.com/small-frappuccino/botdash/pkg/discord/session"
	"github.com/small-frappuccino/botdash/pkg/errutil"
	"github.com/small-frappuccino/botdash/pkg/files"
	"github.com/small-frappuccino/botdash/pkg/log"
	"github.com/small-frappuccino/botdash/pkg/service"
	"github.com/small-frappuccino/botdash/pkg/storage"
	"github.com/small-frappuccino/botdash/pkg/store"
	"github.com/small-frappuccino/botdash/pkg/task"
	"github.com/small-frappuccino/botdash/pkg/util"
)

// newGatewaySession is replaced in tests.
var newGatewaySession = session.NewGatewaySession

// Run wires the store, the Discord sessions, the dashboard API and the push
// sweeper, then blocks until ctx ends or the process is interrupted.
func Run(ctx context.Context, s Settings) error {
	started := time.Now()
	util.SetAppName(AppName)

	if err := log.SetupLogger(log.Options{Level: s.LogLevel}); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}
	defer log.GlobalLogger.Sync()

	if err := errutil.InitializeGlobalErrorHandler(log.GlobalLogger); err != nil {
		return fmt.Errorf("initialize global error handler: %w", err)
	}

	log.ApplicationLogger().Info("Starting botdash", "version", Version, "store", s.Store.Driver)

	st, err := OpenStore(s.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.DatabaseLogger().Warn("Failed to close store", "err", err)
		}
	}()

	rest, err := session.NewRESTSession(s.Discord.Token)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}

	bot := botapi.NewClient(s.Bot.BaseURL, s.Bot.Token)
	if !bot.Enabled() {
		log.ApplicationLogger().Warn("bot.base_url not set; saved responses will not be pushed")
	}

	sweeper := task.NewSweeper(st, bot, task.SweepConfig{Schedule: s.Push.Schedule, Workers: s.Push.Workers})
	server := control.NewServer(control.Config{
		Addr:        s.ListenAddr,
		Token:       s.APIToken,
		CORSOrigins: s.CORSOrigins,
		SessionTTL:  s.Session.TTL,
	}, control.Deps{
		Store:     st,
		Pusher:    bot,
		Publisher: control.WebhookPublisher{Session: rest},
	})

	services := service.NewServiceManager()
	if err := registerServices(services, s, st, rest, sweeper, server); err != nil {
		return err
	}
	if err := services.StartAll(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	log.ApplicationLogger().Info("botdash running", "startup", time.Since(started).Round(time.Millisecond).String())

	util.WaitForInterruptWithCallback(ctx, func() {
		log.ApplicationLogger().Info("Stopping botdash")
	})

	shutdownCtx, cancel := context.WithTimeoutCause(context.Background(), 30*time.Second, fmt.Errorf("application shutdown"))
	defer cancel()
	if err := services.StopAll(shutdownCtx); err != nil {
		log.ErrorLoggerRaw().Error("Some services failed to stop cleanly", "err", err)
	}
	return nil
}

func registerServices(sm *service.ServiceManager, s Settings, st store.ResponseStore, rest *discordgo.Session, sweeper *task.Sweeper, server *control.Server) error {
	var deps []string
	if s.Discord.Token != "" {
		var gateway *discordgo.Session
		dispatcher := actions.NewDispatcher(st, actions.NewExecutor(rest))
		gw := service.NewServiceWrapper("gateway", service.PriorityHigh, nil,
			func(context.Context) error {
				var err error
				gateway, err = newGatewaySession(s.Discord.Token, dispatcher.HandleInteraction)
				return err
			},
			func(context.Context) error {
				if gateway == nil {
					return nil
				}
				return gateway.Close()
			},
		)
		if err := sm.Register(gw); err != nil {
			return err
		}
		deps = append(deps, "gateway")
	} else {
		log.DiscordLogger().Info("discord.token not set; component actions will not be executed")
	}

	if server != nil {
		if err := sm.Register(service.NewServiceWrapper("control", service.PriorityNormal, deps,
			func(context.Context) error { return server.Start() },
			server.Stop,
		)); err != nil {
			return err
		}
	} else {
		log.ApplicationLogger().Warn("listen_addr is empty; dashboard API disabled")
	}

	return sm.Register(service.NewServiceWrapper("push-sweeper", service.PriorityLow, nil,
		func(context.Context) error { return sweeper.Start() },
		func(ctx context.Context) error {
			sweeper.Stop(ctx)
			return nil
		},
	))
}

// OpenStore opens and initializes the configured response store.
func OpenStore(cfg StoreSettings) (store.ResponseStore, error) {
	if cfg.Driver == DriverMemory {
		log.DatabaseLogger().Warn("Using the in-memory store; responses are lost on exit")
		return store.NewMemory(), nil
	}
	if err := util.EnsureStoreDirs(); err != nil && cfg.Path == "" {
		return nil, fmt.Errorf("create data directories: %w", err)
	}
	switch cfg.Driver {
	case DriverFile:
		rf := files.NewDefaultResponseFile()
		if cfg.Path != "" {
			rf = files.NewResponseFile(cfg.Path)
		}
		if err := errutil.HandleStoreError("initialize response file", rf.Init); err != nil {
			return nil, err
		}
		return rf, nil
	case DriverSQLite, "":
		path := cfg.Path
		if path == "" {
			path = util.GetResponsesDBPath()
		}
		db := storage.NewStore(path)
		if err := errutil.HandleStoreError("initialize sqlite", db.Init); err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
