// Package postgres implements the exchange session store on PostgreSQL.
//
// The schema is managed with embedded goose migrations applied at store
// construction, so a fresh database bootstraps itself.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/google/uuid"

	"github.com/sergey-gru/go-cml/pkg/exchange"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Config holds PostgreSQL connection settings.
type Config struct {
	// DSN is a libpq-style connection string or URL.
	DSN string
}

// Store implements exchange.Store using PostgreSQL via the pgx stdlib
// driver.
type Store struct {
	db *sql.DB
}

// NewStore opens the database, verifies connectivity and applies pending
// migrations.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening PostgreSQL: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging PostgreSQL: %w", err)
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("setting migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return nil, fmt.Errorf("applying migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var _ exchange.Store = (*Store)(nil)

const recordColumns = `id, username, state, started_at, action_at, operation, file_name, report,
	c_up, c_up_xml, c_up_img, c_imp_classifier, c_imp_catalogue, c_imp_offers_pack, c_imp_doc, c_exp_doc`

func scanRecord(row *sql.Row) (*exchange.Record, error) {
	var rec exchange.Record
	var state string
	err := row.Scan(
		&rec.ID, &rec.User, &state, &rec.StartedAt, &rec.ActionAt,
		&rec.Operation, &rec.FileName, &rec.Report,
		&rec.Counters.Uploaded, &rec.Counters.UploadedXML, &rec.Counters.UploadedImages,
		&rec.Counters.ImportedClassifiers, &rec.Counters.ImportedCatalogues,
		&rec.Counters.ImportedOfferPacks, &rec.Counters.ImportedDocuments,
		&rec.Counters.ExportedDocuments,
	)
	if err != nil {
		return nil, err
	}
	rec.State = exchange.State(state)
	return &rec, nil
}

// OpenNew implements exchange.Store. Abort and insert run in one
// transaction, so two concurrent inits cannot both leave an open record.
func (s *Store) OpenNew(ctx context.Context, user string) (*exchange.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		`UPDATE exchange_sessions SET state = $1, report = $2, action_at = $3
		 WHERE state = $4 AND username = $5`,
		exchange.StateAbort, exchange.ReportAbortedSameUser, now,
		exchange.StateInit, user)
	if err != nil {
		return nil, fmt.Errorf("aborting own sessions: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE exchange_sessions SET state = $1, report = $2, action_at = $3
		 WHERE state = $4 AND username <> $5`,
		exchange.StateAbort, exchange.ReportAbortedOtherUser+": "+user, now,
		exchange.StateInit, user)
	if err != nil {
		return nil, fmt.Errorf("aborting foreign sessions: %w", err)
	}

	rec := &exchange.Record{
		ID:        uuid.NewString(),
		User:      user,
		State:     exchange.StateInit,
		StartedAt: now,
		ActionAt:  now,
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO exchange_sessions (id, username, state, started_at, action_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.User, rec.State, rec.StartedAt, rec.ActionAt)
	if err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return rec, nil
}

// FindOpen implements exchange.Store.
func (s *Store) FindOpen(ctx context.Context, user string) (*exchange.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM exchange_sessions
		 WHERE state = $1 AND username = $2`,
		exchange.StateInit, user)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, exchange.ErrNotStarted
	}
	if err != nil {
		return nil, fmt.Errorf("finding open session: %w", err)
	}
	return rec, nil
}

// SetOperation implements exchange.Store.
func (s *Store) SetOperation(ctx context.Context, id, operation, fileName string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE exchange_sessions SET operation = $1, file_name = $2, action_at = $3
		 WHERE id = $4`,
		operation, fileName, time.Now(), id)
	if err != nil {
		return fmt.Errorf("updating session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return exchange.ErrNotStarted
	}
	return nil
}

// Finish implements exchange.Store.
func (s *Store) Finish(ctx context.Context, rec *exchange.Record) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE exchange_sessions SET
			state = $1, action_at = $2, operation = $3, file_name = $4, report = $5,
			c_up = $6, c_up_xml = $7, c_up_img = $8,
			c_imp_classifier = $9, c_imp_catalogue = $10, c_imp_offers_pack = $11,
			c_imp_doc = $12, c_exp_doc = $13
		 WHERE id = $14`,
		rec.State, rec.ActionAt, rec.Operation, rec.FileName, rec.Report,
		rec.Counters.Uploaded, rec.Counters.UploadedXML, rec.Counters.UploadedImages,
		rec.Counters.ImportedClassifiers, rec.Counters.ImportedCatalogues,
		rec.Counters.ImportedOfferPacks, rec.Counters.ImportedDocuments,
		rec.Counters.ExportedDocuments,
		rec.ID)
	if err != nil {
		return fmt.Errorf("flushing session %s: %w", rec.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return exchange.ErrNotStarted
	}
	return nil
}
