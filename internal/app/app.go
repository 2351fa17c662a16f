// Package app wires configuration, collaborators and the Telegram transport
// into a runnable tutor bot.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/m3rciful/tutorbot/core/bootstrap"
	corecmd "github.com/m3rciful/tutorbot/core/cmd"
	coreconfig "github.com/m3rciful/tutorbot/core/config"
	"github.com/m3rciful/tutorbot/core/logger"
	coretelegram "github.com/m3rciful/tutorbot/core/telegram"
	"github.com/m3rciful/tutorbot/core/telegram/commands"
	"github.com/m3rciful/tutorbot/core/telegram/router"
	"github.com/m3rciful/tutorbot/core/telegram/sender"
	"github.com/m3rciful/tutorbot/internal/content"
	"github.com/m3rciful/tutorbot/internal/feedback"
	"github.com/m3rciful/tutorbot/internal/journal"
	"github.com/m3rciful/tutorbot/internal/llm"
	"github.com/m3rciful/tutorbot/internal/session"
	"github.com/m3rciful/tutorbot/internal/tutor"
	"github.com/m3rciful/tutorbot/internal/voice"
)

const shutdownTimeout = 10 * time.Second

// Config carries the loaded configuration through core/cmd.
type Config struct {
	*coreconfig.Config
}

// CoreConfig implements corecmd.ConfigCarrier.
func (c Config) CoreConfig() *coreconfig.Config { return c.Config }

// LoadConfig reads and validates the bot configuration.
func LoadConfig(path string) (corecmd.ConfigCarrier, error) {
	cfg, err := coreconfig.Load(path)
	if err != nil {
		return nil, err
	}
	return Config{Config: cfg}, nil
}

// Bootstrap adapts New to corecmd.Options.
func Bootstrap(ctx context.Context, c corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	return New(ctx, c.CoreConfig())
}

// App is a fully wired tutor bot.
type App struct {
	cfg     *coreconfig.Config
	infra   *bootstrap.Result
	journal *journal.Async
	tutor   *tutor.Dispatcher
	events  *events
	outbox  atomic.Pointer[sender.Dispatcher]
}

// New initialises logging and the optional journal database, then builds
// the collaborators and the dispatcher.
func New(ctx context.Context, cfg *coreconfig.Config) (*App, error) {
	infra, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:     cfg,
		Migrations: bootstrap.Migrations{FS: journal.Migrations, Dir: journal.MigrationsDir},
	})
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, infra: infra}
	if err := a.build(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.cfg
	log := logger.Component("app")

	catalog, err := loadCatalog(cfg.Tutor.ContentFile)
	if err != nil {
		return err
	}

	provider, err := llm.NewProvider(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}

	speech, err := buildVoice(cfg.Voice)
	if err != nil {
		return err
	}

	var recorder journal.Recorder = journal.Nop{}
	if a.infra.DB != nil {
		a.journal = journal.NewAsync(journal.NewPostgres(a.infra.DB), 0)
		recorder = a.journal
	}

	store := session.NewStore(session.Options{
		TTL:         time.Duration(cfg.Tutor.SessionTTLMinutes) * time.Minute,
		MaxSessions: cfg.Tutor.MaxSessions,
		HistorySize: cfg.Tutor.MaxDialogHistory,
		OnEvict: func(userID int64) {
			logger.LogEvent(logger.WithUser(context.Background(), userID), logger.Tutor, slog.LevelDebug, "session.evicted")
		},
	})

	avoidRepeat := cfg.Tutor.AvoidRepeat == nil || *cfg.Tutor.AvoidRepeat
	a.tutor = tutor.New(tutor.Deps{
		Store:   store,
		Catalog: catalog,
		LLM:     provider,
		Checker: feedback.NewChecker(provider, cfg.Tutor.MaxTokensJudge),
		Voice:   speech,
		Journal: recorder,
	}, tutor.Options{
		MaxTokensDialog:   cfg.Tutor.MaxTokensDialog,
		MaxTokensQuestion: cfg.Tutor.MaxTokensQuestion,
		Temperature:       cfg.Tutor.Temperature,
		AvoidRepeat:       avoidRepeat,
	})
	a.events = newEvents(a.tutor)

	log.Info("app wired",
		slog.String("event", "wire"),
		slog.String("llm", cfg.LLM.Provider),
		slog.Bool("voice", speech.Enabled()),
		slog.Bool("journal", a.journal != nil),
		slog.Int("topics", catalog.Len()),
		slog.Int("exercises", len(catalog.Exercises)),
	)
	return nil
}

func loadCatalog(path string) (*content.Catalog, error) {
	if path == "" {
		c, err := content.Default()
		if err != nil {
			return nil, fmt.Errorf("app: default content: %w", err)
		}
		return c, nil
	}
	c, err := content.Load(path)
	if err != nil {
		return nil, fmt.Errorf("app: content %s: %w", path, err)
	}
	return c, nil
}

func buildVoice(cfg coreconfig.VoiceConfig) (*voice.Bridge, error) {
	if !cfg.Enabled {
		return voice.Disabled(), nil
	}
	client, err := voice.NewOpenAI(cfg.APIKey, cfg.BaseURL, cfg.TTSModel, cfg.STTModel)
	if err != nil {
		return nil, fmt.Errorf("app: voice: %w", err)
	}
	return voice.NewBridge(client, client, voice.Options{
		DefaultVoice: cfg.DefaultVoice,
		Language:     cfg.Language,
		Timeout:      time.Duration(cfg.TimeoutSeconds) * time.Second,
	}), nil
}

// TelegramRunOptions implements corecmd.TelegramApp.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	if err := a.events.register(reg); err != nil {
		return coretelegram.RunOptions{}, err
	}
	err := reg.RegisterCommand("/sessions", commands.Command{
		Handler:     sessionsHandler(a.tutor.Store(), a.outbox.Load),
		Description: "Live sessions",
		AdminOnly:   true,
	})
	if err != nil {
		return coretelegram.RunOptions{}, err
	}

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID:       a.cfg.Telegram.AdminID,
		OnAdminReject: rejectAdmin,
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(reg, router.TextOptions{
		UnknownCommand: a.events.onCommand,
		Voice:          a.events.onVoice,
		Unsupported:    a.events.onUnsupported,
	})...)

	return coretelegram.RunOptions{
		Config:      a.cfg,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg, onRateLimited),
		Routes:      routes,
		OnStart: func(_ context.Context, rt coretelegram.Runtime) error {
			a.events.bind(rt.Bot)
			a.outbox.Store(rt.Dispatcher)
			return nil
		},
		OnStop: func(ctx context.Context, _ coretelegram.Runtime) error {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err := a.tutor.Close(ctx); err != nil {
				return fmt.Errorf("app: tutor shutdown: %w", err)
			}
			return nil
		},
	}, nil
}

// Close drains the journal and releases the database.
func (a *App) Close() error {
	if a.journal != nil {
		a.journal.Close()
	}
	return a.infra.Close()
}
