// Package candidate implements the relational candidate store client over
// sqlx. Lookups are subset-tolerant: ids present in the vector index but
// absent here are simply not returned — the orchestrator decides what to do
// about the gap.
package candidate

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/hireloop/candex/internal/domain"
	domcand "github.com/hireloop/candex/internal/domain/candidate"
)

// Schema creates the candidate table. Idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS candidates (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	title          TEXT NOT NULL DEFAULT '',
	email          TEXT NOT NULL DEFAULT '',
	phone          TEXT NOT NULL DEFAULT '',
	skills         TEXT NOT NULL DEFAULT '[]',
	experiences    TEXT NOT NULL DEFAULT '[]',
	educations     TEXT NOT NULL DEFAULT '[]',
	certifications TEXT NOT NULL DEFAULT '[]',
	resume         TEXT NOT NULL DEFAULT '',
	source_url     TEXT NOT NULL DEFAULT ''
);`

// Repo implements usecase/search.CandidateStore.
type Repo struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// New creates a candidate store repository.
func New(db *sqlx.DB, logger *zap.Logger) *Repo {
	return &Repo{db: db, logger: logger}
}

// EnsureSchema creates the candidate table if it does not exist.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure candidate schema: %w", err)
	}
	return nil
}

// Ping checks store connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping candidate store: %w", err)
	}
	return nil
}

// FindByIDs returns the records matching ids. The result may be a strict
// subset of the input; an unreachable store is a hard failure because
// scoring cannot proceed on vector-only data.
func (r *Repo) FindByIDs(ctx context.Context, ids []string) ([]domcand.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	q, args, err := sqlx.In(`
		SELECT id, name, title, email, phone,
		       skills, experiences, educations, certifications,
		       resume, source_url
		FROM candidates WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build candidate query: %w", err)
	}

	var rows []row
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("%w: select candidates: %w", domain.ErrStoreUnavailable, err)
	}

	records := make([]domcand.Record, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].toRecord(r.logger))
	}
	return records, nil
}
