// Package sqldb implements journal.Driver over database/sql. The sqlite and
// postgres packages open the database and pick the dialect.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/reckon/pkg/journal"
)

// Dialect holds what differs between SQL backends.
type Dialect struct {
	// Name is used in error messages.
	Name string

	// IDColumn is the column definition of the auto-incrementing key.
	IDColumn string

	// Numbered placeholders ($1, $2) instead of question marks.
	Numbered bool
}

var (
	SQLite   = Dialect{Name: "sqlite", IDColumn: "INTEGER PRIMARY KEY AUTOINCREMENT"}
	Postgres = Dialect{Name: "postgres", IDColumn: "BIGSERIAL PRIMARY KEY", Numbered: true}
)

// Driver implements journal.Driver on a *sql.DB.
type Driver struct {
	DB      *sql.DB
	Dialect Dialect
}

// Migrate creates the journal table and its indexes if they are missing.
func (d *Driver) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS journal_entries (
			id ` + d.Dialect.IDColumn + `,
			kind TEXT NOT NULL,
			subject TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			priority DOUBLE PRECISION NOT NULL DEFAULT 0,
			mem_time BIGINT NOT NULL,
			cycle BIGINT NOT NULL,
			recorded TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS journal_entries_kind ON journal_entries (kind)`,
		`CREATE INDEX IF NOT EXISTS journal_entries_subject ON journal_entries (subject)`,
	}
	for _, stmt := range stmts {
		if _, err := d.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create %s schema: %w", d.Dialect.Name, err)
		}
	}
	return nil
}

// Record inserts entries in one transaction.
func (d *Driver) Record(ctx context.Context, entries ...*journal.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := d.bind(`INSERT INTO journal_entries
		(kind, subject, reason, priority, mem_time, cycle, recorded)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)

	for _, e := range entries {
		if e == nil {
			return errors.New("cannot record nil entry")
		}
		if e.Recorded.IsZero() {
			e.Recorded = time.Now().UTC()
		}
		row := tx.QueryRowContext(ctx, query,
			e.Kind, e.Subject, e.Reason, e.Priority, e.Time, e.Cycle, e.Recorded)
		if err := row.Scan(&e.ID); err != nil {
			return fmt.Errorf("failed to insert entry: %w", err)
		}
	}
	return tx.Commit()
}

// Get returns one entry.
func (d *Driver) Get(ctx context.Context, id int64) (*journal.Entry, error) {
	row := d.DB.QueryRowContext(ctx, d.bind(selectColumns+` WHERE id = ?`), id)
	e, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, journal.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return e, nil
}

// List returns matching entries in ID order.
func (d *Driver) List(ctx context.Context, f journal.Filter) ([]*journal.Entry, error) {
	where, args := filter(f)
	query := selectColumns + where + ` ORDER BY id`
	if f.Limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(f.Limit)
	}

	rows, err := d.DB.QueryContext(ctx, d.bind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var out []*journal.Entry
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count returns the number of matching entries.
func (d *Driver) Count(ctx context.Context, f journal.Filter) (int, error) {
	where, args := filter(f)
	var n int
	if err := d.DB.QueryRowContext(ctx, d.bind(`SELECT COUNT(*) FROM journal_entries`+where), args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (d *Driver) Close() error {
	return d.DB.Close()
}

const selectColumns = `SELECT id, kind, subject, reason, priority, mem_time, cycle, recorded FROM journal_entries`

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*journal.Entry, error) {
	var e journal.Entry
	if err := s.Scan(&e.ID, &e.Kind, &e.Subject, &e.Reason, &e.Priority, &e.Time, &e.Cycle, &e.Recorded); err != nil {
		return nil, err
	}
	return &e, nil
}

func filter(f journal.Filter) (string, []any) {
	var clauses []string
	var args []any
	add := func(clause string, arg any) {
		clauses = append(clauses, clause)
		args = append(args, arg)
	}

	if f.Kind != "" {
		add("kind = ?", f.Kind)
	}
	if f.Subject != "" {
		add("subject = ?", f.Subject)
	}
	if f.Reason != "" {
		add("reason = ?", f.Reason)
	}
	if f.AfterID > 0 {
		add("id > ?", f.AfterID)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// bind rewrites question-mark placeholders for dialects that number them.
func (d *Driver) bind(query string) string {
	if !d.Dialect.Numbered {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
