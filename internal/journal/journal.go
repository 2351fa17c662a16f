// Package journal records graded translation answers for lifetime stats.
// Sessions are never restored from it.
package journal

import (
	"context"
	"embed"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Migrations holds the journal schema for golang-migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of Migrations holding the SQL files.
const MigrationsDir = "migrations"

// Entry is one graded answer. ID makes writes idempotent; Stamp fills it.
type Entry struct {
	ID          uuid.UUID `db:"id"`
	UserID      int64     `db:"user_id"`
	Prompt      string    `db:"prompt"`
	Expected    string    `db:"expected"`
	Answer      string    `db:"answer"`
	Correct     bool      `db:"correct"`
	Explanation string    `db:"explanation"`
	Source      string    `db:"source"`
	CreatedAt   time.Time `db:"created_at"`
}

// Stamp assigns a fresh ID and the current time where they are unset.
func (e *Entry) Stamp() {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
}

// Totals are lifetime counters of one learner.
type Totals struct {
	Answers int `db:"answers"`
	Correct int `db:"correct"`
}

// ErrDisabled is returned by Stats when no journal is configured.
var ErrDisabled = errors.New("journal disabled")

// Recorder stores entries and aggregates them per learner.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
	Stats(ctx context.Context, userID int64) (Totals, error)
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

func (Nop) Stats(context.Context, int64) (Totals, error) { return Totals{}, ErrDisabled }
