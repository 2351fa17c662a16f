package cmd

import (
	"context"
	"errors"
	"testing"

	coreconfig "github.com/m3rciful/tutorbot/core/config"
	coretelegram "github.com/m3rciful/tutorbot/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type fakeApp struct {
	closed  bool
	onStart bool
}

func (a *fakeApp) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{
		OnStart: func(context.Context, coretelegram.Runtime) error {
			a.onStart = true
			return nil
		},
	}, nil
}

func (a *fakeApp) Close() error {
	a.closed = true
	return nil
}

func TestRunWiresLifecycle(t *testing.T) {
	t.Setenv("TUTORBOT_TEST_CONFIG", "custom.yaml")
	app := &fakeApp{}
	var loaded string

	err := Run(Options{
		ConfigEnvVar: "TUTORBOT_TEST_CONFIG",
		LoadConfig: func(path string) (ConfigCarrier, error) {
			loaded = path
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) {
			return app, nil
		},
		ShutdownLogger: func() error { return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			if err := opts.OnStart(ctx, coretelegram.Runtime{}); err != nil {
				return err
			}
			return opts.OnStop(ctx, coretelegram.Runtime{})
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded != "custom.yaml" {
		t.Fatalf("config path from env not used: %q", loaded)
	}
	if !app.onStart || !app.closed {
		t.Fatalf("lifecycle hooks not run: %+v", app)
	}
}

func TestRunRequiresConfigPath(t *testing.T) {
	t.Setenv("TUTORBOT_TEST_CONFIG", "")
	err := Run(Options{
		ConfigEnvVar: "TUTORBOT_TEST_CONFIG",
		LoadConfig:   func(string) (ConfigCarrier, error) { return nil, errors.New("unreachable") },
		Bootstrap:    func(context.Context, ConfigCarrier) (TelegramApp, error) { return nil, nil },
	})
	if err == nil {
		t.Fatalf("expected error without a config path")
	}
}

func TestRunReportsBootstrapFailure(t *testing.T) {
	boom := errors.New("db down")
	err := Run(Options{
		DefaultConfigPath: "config.yaml",
		ConfigEnvVar:      "TUTORBOT_TEST_CONFIG_UNSET",
		LoadConfig: func(string) (ConfigCarrier, error) {
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) { return nil, boom },
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected bootstrap error, got %v", err)
	}
}

func TestResolveConfigPathPrecedence(t *testing.T) {
	t.Setenv("TUTORBOT_TEST_CONFIG", "from-env.yaml")
	opts := Options{ConfigEnvVar: "TUTORBOT_TEST_CONFIG", DefaultConfigPath: "config.yaml"}

	if p, _ := opts.ResolveConfigPath(); p != "from-env.yaml" {
		t.Fatalf("env must win over the default, got %q", p)
	}
	opts.ConfigPath = "flag.yaml"
	if p, _ := opts.ResolveConfigPath(); p != "flag.yaml" {
		t.Fatalf("explicit path must win, got %q", p)
	}
}
