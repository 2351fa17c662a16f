package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/m3rciful/tutorbot/core/bootstrap"
	coreconfig "github.com/m3rciful/tutorbot/core/config"
	"github.com/m3rciful/tutorbot/internal/journal"
)

// Check loads the lesson catalog the configuration points at and writes a
// summary of what the bot would serve. Nothing is contacted.
func Check(cfg *coreconfig.Config, w io.Writer) error {
	catalog, err := loadCatalog(cfg.Tutor.ContentFile)
	if err != nil {
		return err
	}
	phrases := 0
	for _, t := range catalog.Topics {
		phrases += len(t.Phrases)
	}

	source := cfg.Tutor.ContentFile
	if source == "" {
		source = "built-in"
	}
	fmt.Fprintf(w, "content:   %s\n", source)
	fmt.Fprintf(w, "topics:    %d (%d phrases)\n", catalog.Len(), phrases)
	fmt.Fprintf(w, "exercises: %d\n", len(catalog.Exercises))
	fmt.Fprintf(w, "llm:       %s %s\n", cfg.LLM.Provider, cfg.LLM.Model)
	fmt.Fprintf(w, "voice:     %t\n", cfg.Voice.Enabled)
	fmt.Fprintf(w, "journal:   %t\n", cfg.Database.Enabled)
	return nil
}

// ErrJournalDisabled is returned by Migrate when database.enabled is off.
var ErrJournalDisabled = errors.New("app: answer journal database is disabled")

// Migrate applies the journal migrations and exits.
func Migrate(ctx context.Context, cfg *coreconfig.Config) error {
	if !cfg.Database.Enabled {
		return ErrJournalDisabled
	}
	infra, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:     cfg,
		Migrations: bootstrap.Migrations{FS: journal.Migrations, Dir: journal.MigrationsDir},
	})
	if err != nil {
		return err
	}
	return infra.Close()
}
