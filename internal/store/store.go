// Package store persists tasks, reminders and notes in SQLite or Postgres.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"dayplan/internal/model"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned when no entry matches a (type, id) pair.
var ErrNotFound = errors.New("entry not found")

const entryColumns = `id, owner_id, type, title, description, date, completed, priority, tags, time, repeat_type, repeat_days, repeat_until, created_at, updated_at`

const (
	listEntriesSQL  = `SELECT ` + entryColumns + ` FROM entries WHERE owner_id = ? AND type = ? ORDER BY date, created_at, id`
	getEntrySQL     = `SELECT ` + entryColumns + ` FROM entries WHERE type = ? AND id = ?`
	insertEntrySQL  = `INSERT INTO entries (` + entryColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	updateEntrySQL  = `UPDATE entries SET owner_id = ?, title = ?, description = ?, date = ?, completed = ?, priority = ?, tags = ?, time = ?, repeat_type = ?, repeat_days = ?, repeat_until = ?, updated_at = ? WHERE type = ? AND id = ?`
	deleteEntrySQL  = `DELETE FROM entries WHERE type = ? AND id = ?`
	listOwnersSQL   = `SELECT DISTINCT owner_id FROM entries ORDER BY owner_id`
	setCompletedSQL = `UPDATE entries SET completed = ?, updated_at = ? WHERE type = 'task' AND id = ?`
)

// Store handles database operations.
type Store struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// Open connects to the database and applies the schema. For sqlite3 the
// parent directory of dsn is created.
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case "sqlite3":
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
	case "postgres":
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == "sqlite3" {
		// A single connection keeps :memory: databases shared and avoids
		// SQLITE_BUSY between writers.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, driver: driver, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// List returns owner's entries of type t ordered by date.
func (s *Store) List(ctx context.Context, owner string, t model.Type) ([]model.Entry, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(listEntriesSQL), owner, string(t))
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries := make([]model.Entry, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, rec.Entry())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// Get returns the entry of type t with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, t model.Type, id string) (model.Entry, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, s.rebind(getEntrySQL), string(t), id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Entry{}, ErrNotFound
	}
	if err != nil {
		return model.Entry{}, fmt.Errorf("get entry: %w", err)
	}
	return rec.Entry(), nil
}

// Create validates and inserts e. An empty ID is filled with a new UUID;
// timestamps are set on e.
func (s *Store) Create(ctx context.Context, e *model.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	now := s.now().Truncate(time.Second)
	e.CreatedAt, e.UpdatedAt = now, now

	rec := FromEntry(*e)
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.rebind(insertEntrySQL),
		rec.ID, rec.OwnerID, rec.Type, rec.Title, rec.Description, rec.Date,
		completedArg(rec.Completed), rec.Priority, string(tags), rec.Time,
		rec.RepeatType, encodeDays(rec.RepeatDays), rec.RepeatUntil,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// Update overwrites every mutable field of the stored entry identified by
// e's (type, id). The type itself never changes.
func (s *Store) Update(ctx context.Context, e *model.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.ID == "" {
		return fmt.Errorf("update entry: %w", ErrNotFound)
	}
	e.UpdatedAt = s.now().Truncate(time.Second)

	rec := FromEntry(*e)
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	res, err := s.db.ExecContext(ctx, s.rebind(updateEntrySQL),
		rec.OwnerID, rec.Title, rec.Description, rec.Date,
		completedArg(rec.Completed), rec.Priority, string(tags), rec.Time,
		rec.RepeatType, encodeDays(rec.RepeatDays), rec.RepeatUntil,
		rec.UpdatedAt, rec.Type, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return expectRow(res)
}

// Upsert updates e if it exists and creates it otherwise. Imports use it so
// that re-importing a feed is idempotent.
func (s *Store) Upsert(ctx context.Context, e *model.Entry) (created bool, err error) {
	if e.ID != "" {
		existing, err := s.Get(ctx, e.Type, e.ID)
		switch {
		case err == nil:
			e.CreatedAt = existing.CreatedAt
			return false, s.Update(ctx, e)
		case !errors.Is(err, ErrNotFound):
			return false, err
		}
	}
	return true, s.Create(ctx, e)
}

// SetCompleted flips a task's completion flag.
func (s *Store) SetCompleted(ctx context.Context, id string, done bool) error {
	res, err := s.db.ExecContext(ctx, s.rebind(setCompletedSQL), done, s.now().Format(DateLayout), id)
	if err != nil {
		return fmt.Errorf("set completed: %w", err)
	}
	return expectRow(res)
}

// Delete removes the entry of type t with the given id.
func (s *Store) Delete(ctx context.Context, t model.Type, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(deleteEntrySQL), string(t), id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return expectRow(res)
}

// Owners lists every owner that has at least one entry.
func (s *Store) Owners(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, listOwnersSQL)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec        Record
		completed  sql.NullBool
		tags, days string
	)
	err := row.Scan(
		&rec.ID, &rec.OwnerID, &rec.Type, &rec.Title, &rec.Description, &rec.Date,
		&completed, &rec.Priority, &tags, &rec.Time,
		&rec.RepeatType, &days, &rec.RepeatUntil,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return Record{}, err
	}
	if completed.Valid {
		done := completed.Bool
		rec.Completed = &done
	}
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
			// Tags are display data; a bad value should not hide the entry.
			rec.Tags = nil
		}
	}
	rec.RepeatDays = decodeDays(days)
	return rec, nil
}

func completedArg(c *bool) any {
	if c == nil {
		return nil
	}
	return *c
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// rebind rewrites ? placeholders as $1, $2, ... for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
