package journal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/tutorbot/core/logger"
)

// insertAnswer ignores a replayed entry.
const insertAnswer = `INSERT INTO answers
	(id, user_id, prompt, expected, answer, correct, explanation, source, created_at)
	VALUES (:id, :user_id, :prompt, :expected, :answer, :correct, :explanation, :source, :created_at)
	ON CONFLICT (id) DO NOTHING`

const selectTotals = `SELECT COUNT(*) AS answers, COUNT(*) FILTER (WHERE correct) AS correct
	FROM answers WHERE user_id = $1`

// Postgres stores entries in the answers table.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps an open pool; the caller keeps ownership of db.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Record(ctx context.Context, e Entry) error {
	e.Stamp()
	start := time.Now()
	if _, err := p.db.NamedExecContext(ctx, insertAnswer, e); err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}
	logger.Journal.Debug("answer recorded",
		slog.String("event", "journal.record"),
		slog.Int64("user_id", e.UserID),
		slog.String("entry_id", e.ID.String()),
		slog.Bool("correct", e.Correct),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}

func (p *Postgres) Stats(ctx context.Context, userID int64) (Totals, error) {
	var t Totals
	if err := p.db.GetContext(ctx, &t, selectTotals, userID); err != nil {
		return Totals{}, fmt.Errorf("select totals: %w", err)
	}
	return t, nil
}
