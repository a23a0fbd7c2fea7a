// Package journal records assembly passes in a SQLite database so that
// recent build history survives restarts.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/pagewrap/internal/assemble"
	ferrors "git.home.luguber.info/inful/pagewrap/internal/foundation/errors"
)

// Pass is one journal row.
type Pass struct {
	ID              string
	Scope           string
	Reason          string
	Status          string
	Started         time.Time
	Finished        time.Time
	Files           int
	Removed         int
	MissingIncludes int
	Failures        int
	Error           string
}

// Output is one file written by a pass.
type Output struct {
	PassID      string
	Source      string
	Dest        string
	Fingerprint string
}

// Journal is a SQLite-backed pass log.
type Journal struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the journal at path. ":memory:" is accepted.
func Open(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryStorage, "create journal directory").
				WithContext("path", path).Build()
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryStorage, "open journal").
			WithContext("path", path).Build()
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	j := &Journal{db: db}
	if err := j.initialize(); err != nil {
		_ = db.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryStorage, "initialize journal schema").
			WithContext("path", path).Build()
	}
	return j, nil
}

func (j *Journal) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS passes (
		id TEXT PRIMARY KEY,
		scope TEXT NOT NULL,
		reason TEXT NOT NULL,
		status TEXT NOT NULL,
		started INTEGER NOT NULL,
		finished INTEGER NOT NULL,
		files INTEGER NOT NULL,
		removed INTEGER NOT NULL,
		missing_includes INTEGER NOT NULL,
		failures INTEGER NOT NULL,
		error TEXT
	);
	CREATE TABLE IF NOT EXISTS outputs (
		pass_id TEXT NOT NULL REFERENCES passes(id) ON DELETE CASCADE,
		source TEXT NOT NULL,
		dest TEXT NOT NULL,
		fingerprint TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_passes_started ON passes(started);
	CREATE INDEX IF NOT EXISTS idx_outputs_pass ON outputs(pass_id);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Record stores a finished pass and its outputs in one transaction.
func (j *Journal) Record(ctx context.Context, r *assemble.Report) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin journal transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var errText sql.NullString
	if r.Err != nil {
		errText = sql.NullString{String: r.Err.Error(), Valid: true}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO passes (id, scope, reason, status, started, finished, files, removed, missing_includes, failures, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.PassID, r.Scope.String(), string(r.Scope.Reason), r.Status(),
		r.Started.UnixMilli(), r.Finished.UnixMilli(),
		len(r.Outputs), len(r.Removed), r.MissingIncludes, len(r.Failures), errText,
	)
	if err != nil {
		return fmt.Errorf("insert pass: %w", err)
	}

	for _, o := range r.Outputs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO outputs (pass_id, source, dest, fingerprint) VALUES (?, ?, ?, ?)",
			r.PassID, o.Source, o.Dest, o.Fingerprint,
		); err != nil {
			return fmt.Errorf("insert output: %w", err)
		}
	}
	return tx.Commit()
}

// Recent returns up to limit passes, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Pass, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, scope, reason, status, started, finished, files, removed, missing_includes, failures, error
		 FROM passes ORDER BY started DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var passes []Pass
	for rows.Next() {
		var p Pass
		var started, finished int64
		var errText sql.NullString
		if err := rows.Scan(&p.ID, &p.Scope, &p.Reason, &p.Status, &started, &finished,
			&p.Files, &p.Removed, &p.MissingIncludes, &p.Failures, &errText); err != nil {
			return nil, fmt.Errorf("scan pass: %w", err)
		}
		p.Started = time.UnixMilli(started)
		p.Finished = time.UnixMilli(finished)
		p.Error = errText.String
		passes = append(passes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passes: %w", err)
	}
	return passes, nil
}

// Outputs returns the files written by a pass.
func (j *Journal) Outputs(ctx context.Context, passID string) ([]Output, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	rows, err := j.db.QueryContext(ctx,
		"SELECT pass_id, source, dest, fingerprint FROM outputs WHERE pass_id = ? ORDER BY rowid", passID)
	if err != nil {
		return nil, fmt.Errorf("query outputs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var outs []Output
	for rows.Next() {
		var o Output
		if err := rows.Scan(&o.PassID, &o.Source, &o.Dest, &o.Fingerprint); err != nil {
			return nil, fmt.Errorf("scan output: %w", err)
		}
		outs = append(outs, o)
	}
	return outs, rows.Err()
}

// Prune deletes all but the newest keep passes.
func (j *Journal) Prune(ctx context.Context, keep int) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	res, err := j.db.ExecContext(ctx,
		`DELETE FROM passes WHERE id NOT IN (SELECT id FROM passes ORDER BY started DESC, rowid DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune passes: %w", err)
	}
	if _, err := j.db.ExecContext(ctx,
		"DELETE FROM outputs WHERE pass_id NOT IN (SELECT id FROM passes)"); err != nil {
		return 0, fmt.Errorf("prune outputs: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
