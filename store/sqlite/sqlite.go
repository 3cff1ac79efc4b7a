/*
Package sqlite provides a database/sql implementation of screentime.TxStore.

PURPOSE:
  Persists adjustment types, adjustments and time entries. SQLite is the
  default backend; the same code runs against PostgreSQL when the DSN is a
  postgres:// URL, with only placeholder and primary-key differences.

INTERFACES IMPLEMENTED:
  screentime.Store:   CRUD with ordered, filtered listing
  screentime.TxStore: ReadTx for consistent balance reads

KEY TABLES:
  adjustment_type:   Reusable minute rules
  adjustment:        Applications of a type (minutes joined on read)
  time_entry:        Minutes consumed
  schema_migrations: Applied migration versions

TIMESTAMPS:
  created_at is stored as fixed-width UTC text (nanosecond precision), so
  string comparison equals chronological comparison on both backends and
  `since` filters and ORDER BY stay in SQL.

CONNECTIONS:
  database/sql owns the pool. Every query releases its connection on all
  paths (rows.Close, tx.Rollback). SQLite is limited to one open connection;
  ":memory:" databases are per-connection and a single writer is all SQLite
  allows anyway. PostgreSQL read transactions run at REPEATABLE READ.

USAGE:
  store, err := sqlite.New("./screentime.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := screentime.NewBalanceEngine(store)

SEE ALSO:
  - screentime/store.go:  Interface definitions
  - migrations.go:        Versioned schema
  - screentime/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/warp/screentime/screentime"
)

// timeLayout is fixed width so lexical order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var _ screentime.TxStore = (*Store)(nil)

// Store implements screentime.TxStore using database/sql.
type Store struct {
	db      *sql.DB
	dialect dialect
	clock   screentime.Clock
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for created_at.
func WithClock(clock screentime.Clock) Option {
	return func(s *Store) { s.clock = clock }
}

// New opens the database named by dsn and migrates it.
// Use ":memory:" for an in-memory SQLite database, a file path for SQLite
// on disk, or a postgres:// URL for PostgreSQL.
func New(dsn string, opts ...Option) (*Store, error) {
	d := dialectFor(dsn)

	db, err := sql.Open(d.driver, d.dataSource(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if d.driver == driverSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}

	store := &Store{db: db, dialect: d, clock: screentime.SystemClock}
	for _, opt := range opts {
		opt(store)
	}

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return screentime.NewStorageError("ping", s.db.PingContext(ctx))
}

// Driver returns the database/sql driver name in use.
func (s *Store) Driver() string {
	return s.dialect.driver
}

// =============================================================================
// DIALECT
// =============================================================================

const (
	driverSQLite   = "sqlite3"
	driverPostgres = "postgres"
)

type dialect struct {
	driver string
}

func dialectFor(dsn string) dialect {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return dialect{driver: driverPostgres}
	}
	return dialect{driver: driverSQLite}
}

func (d dialect) dataSource(dsn string) string {
	if d.driver != driverSQLite {
		return dsn
	}
	dsn = strings.TrimPrefix(dsn, "sqlite://")
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
}

func (d dialect) serialPK() string {
	if d.driver == driverPostgres {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (d dialect) rebind(query string) string {
	if d.driver != driverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// =============================================================================
// CONNECTION SCOPE - *sql.DB or *sql.Tx
// =============================================================================

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn runs the store's queries against one queryer.
type conn struct {
	q        queryer
	d        dialect
	clock    screentime.Clock
	readOnly bool
}

func (s *Store) conn() *conn {
	return &conn{q: s.db, d: s.dialect, clock: s.clock}
}

// withTx runs fn inside a read-write transaction.
func (s *Store) withTx(ctx context.Context, op string, fn func(c *conn) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return screentime.NewStorageError(op, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(&conn{q: tx, d: s.dialect, clock: s.clock}); err != nil {
		return err
	}
	return screentime.NewStorageError(op, tx.Commit())
}

// readTxOptions returns the options for a read transaction. PostgreSQL
// defaults to READ COMMITTED, where each statement takes a fresh snapshot.
func (d dialect) readTxOptions() *sql.TxOptions {
	if d.driver == driverPostgres {
		return &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead}
	}
	return &sql.TxOptions{ReadOnly: true}
}

// ReadTx executes fn within a read-only database transaction so every query
// observes the same snapshot.
func (s *Store) ReadTx(ctx context.Context, fn func(screentime.Store) error) error {
	tx, err := s.db.BeginTx(ctx, s.dialect.readTxOptions())
	if err != nil {
		return screentime.NewStorageError("begin read transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // read-only, nothing to commit

	return fn(&txStore{c: &conn{q: tx, d: s.dialect, clock: s.clock, readOnly: true}})
}

var errReadOnly = errors.New("write attempted in read-only transaction")

// =============================================================================
// ADJUSTMENT TYPES
// =============================================================================

// CreateAdjustmentType inserts a new adjustment type.
func (s *Store) CreateAdjustmentType(ctx context.Context, description string, adjustment screentime.Minutes) (screentime.AdjustmentType, error) {
	return s.conn().createAdjustmentType(ctx, description, adjustment)
}

// GetAdjustmentType returns the adjustment type with the given ID.
func (s *Store) GetAdjustmentType(ctx context.Context, id int64) (screentime.AdjustmentType, error) {
	return s.conn().getAdjustmentType(ctx, id)
}

// ListAdjustmentTypes returns all adjustment types ordered by ID.
func (s *Store) ListAdjustmentTypes(ctx context.Context) ([]screentime.AdjustmentType, error) {
	return s.conn().listAdjustmentTypes(ctx)
}

// DeleteAdjustmentType removes an unreferenced adjustment type.
// If adjustments still reference it the delete is refused with a
// *screentime.ConflictError.
func (s *Store) DeleteAdjustmentType(ctx context.Context, id int64) error {
	return s.withTx(ctx, "delete adjustment type", func(c *conn) error {
		return c.deleteAdjustmentType(ctx, id)
	})
}

func (c *conn) createAdjustmentType(ctx context.Context, description string, adjustment screentime.Minutes) (screentime.AdjustmentType, error) {
	if c.readOnly {
		return screentime.AdjustmentType{}, screentime.NewStorageError("create adjustment type", errReadOnly)
	}
	if err := screentime.ValidateAdjustmentType(description); err != nil {
		return screentime.AdjustmentType{}, err
	}

	t := screentime.AdjustmentType{Description: description, Adjustment: adjustment}
	err := c.q.QueryRowContext(ctx,
		c.d.rebind("INSERT INTO adjustment_type (description, adjustment) VALUES (?, ?) RETURNING id"),
		description, int64(adjustment),
	).Scan(&t.ID)
	if err != nil {
		return screentime.AdjustmentType{}, screentime.NewStorageError("create adjustment type", err)
	}
	return t, nil
}

func (c *conn) getAdjustmentType(ctx context.Context, id int64) (screentime.AdjustmentType, error) {
	var (
		t   screentime.AdjustmentType
		adj int64
	)
	err := c.q.QueryRowContext(ctx,
		c.d.rebind("SELECT id, description, adjustment FROM adjustment_type WHERE id = ?"),
		id,
	).Scan(&t.ID, &t.Description, &adj)
	if errors.Is(err, sql.ErrNoRows) {
		return t, &screentime.NotFoundError{Kind: screentime.KindAdjustmentType, ID: id}
	}
	if err != nil {
		return t, screentime.NewStorageError("get adjustment type", err)
	}
	t.Adjustment = screentime.Minutes(adj)
	return t, nil
}

func (c *conn) listAdjustmentTypes(ctx context.Context) ([]screentime.AdjustmentType, error) {
	rows, err := c.q.QueryContext(ctx, "SELECT id, description, adjustment FROM adjustment_type ORDER BY id ASC")
	if err != nil {
		return nil, screentime.NewStorageError("list adjustment types", err)
	}
	defer rows.Close()

	types := []screentime.AdjustmentType{}
	for rows.Next() {
		var (
			t   screentime.AdjustmentType
			adj int64
		)
		if err := rows.Scan(&t.ID, &t.Description, &adj); err != nil {
			return nil, screentime.NewStorageError("scan adjustment type", err)
		}
		t.Adjustment = screentime.Minutes(adj)
		types = append(types, t)
	}
	return types, screentime.NewStorageError("list adjustment types", rows.Err())
}

func (c *conn) deleteAdjustmentType(ctx context.Context, id int64) error {
	if _, err := c.getAdjustmentType(ctx, id); err != nil {
		return err
	}

	var refs int
	if err := c.q.QueryRowContext(ctx,
		c.d.rebind("SELECT COUNT(*) FROM adjustment WHERE adjustment_type_id = ?"),
		id,
	).Scan(&refs); err != nil {
		return screentime.NewStorageError("count adjustment type references", err)
	}
	if refs > 0 {
		return &screentime.ConflictError{Kind: screentime.KindAdjustmentType, ID: id, References: refs}
	}

	_, err := c.q.ExecContext(ctx, c.d.rebind("DELETE FROM adjustment_type WHERE id = ?"), id)
	return screentime.NewStorageError("delete adjustment type", err)
}

// =============================================================================
// ADJUSTMENTS
// =============================================================================

const selectAdjustments = `
	SELECT a.id, a.adjustment_type_id, a.description, a.created_at, t.adjustment
	FROM adjustment a
	JOIN adjustment_type t ON t.id = a.adjustment_type_id`

// CreateAdjustment applies an existing adjustment type.
func (s *Store) CreateAdjustment(ctx context.Context, typeID int64, description *string) (screentime.Adjustment, error) {
	var a screentime.Adjustment
	err := s.withTx(ctx, "create adjustment", func(c *conn) error {
		var err error
		a, err = c.createAdjustment(ctx, typeID, description)
		return err
	})
	return a, err
}

// GetAdjustment returns the adjustment with the given ID.
func (s *Store) GetAdjustment(ctx context.Context, id int64) (screentime.Adjustment, error) {
	return s.conn().getAdjustment(ctx, id)
}

// ListAdjustments returns adjustments matching filter, newest first.
func (s *Store) ListAdjustments(ctx context.Context, filter screentime.AdjustmentFilter) ([]screentime.Adjustment, error) {
	return s.conn().listAdjustments(ctx, filter)
}

// DeleteAdjustment removes an adjustment.
func (s *Store) DeleteAdjustment(ctx context.Context, id int64) error {
	return s.conn().deleteByID(ctx, "adjustment", screentime.KindAdjustment, id)
}

func (c *conn) createAdjustment(ctx context.Context, typeID int64, description *string) (screentime.Adjustment, error) {
	if c.readOnly {
		return screentime.Adjustment{}, screentime.NewStorageError("create adjustment", errReadOnly)
	}
	t, err := c.getAdjustmentType(ctx, typeID)
	if err != nil {
		return screentime.Adjustment{}, err
	}

	a := screentime.Adjustment{
		TypeID:      typeID,
		Description: description,
		CreatedAt:   c.now(),
		Minutes:     t.Adjustment,
	}
	err = c.q.QueryRowContext(ctx,
		c.d.rebind("INSERT INTO adjustment (adjustment_type_id, description, created_at) VALUES (?, ?, ?) RETURNING id"),
		typeID, nullString(description), formatTime(a.CreatedAt),
	).Scan(&a.ID)
	if err != nil {
		return screentime.Adjustment{}, screentime.NewStorageError("create adjustment", err)
	}
	return a, nil
}

func (c *conn) getAdjustment(ctx context.Context, id int64) (screentime.Adjustment, error) {
	rows, err := c.q.QueryContext(ctx, c.d.rebind(selectAdjustments+" WHERE a.id = ?"), id)
	if err != nil {
		return screentime.Adjustment{}, screentime.NewStorageError("get adjustment", err)
	}
	adjs, err := scanAdjustments(rows)
	if err != nil {
		return screentime.Adjustment{}, err
	}
	if len(adjs) == 0 {
		return screentime.Adjustment{}, &screentime.NotFoundError{Kind: screentime.KindAdjustment, ID: id}
	}
	return adjs[0], nil
}

func (c *conn) listAdjustments(ctx context.Context, filter screentime.AdjustmentFilter) ([]screentime.Adjustment, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if filter.Type != nil {
		where = append(where, "a.adjustment_type_id = ?")
		args = append(args, *filter.Type)
	}
	if filter.Since != nil {
		where = append(where, "a.created_at >= ?")
		args = append(args, formatTime(*filter.Since))
	}

	query := selectAdjustments
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY a.created_at DESC, a.id DESC"
	if filter.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *filter.Limit)
	}

	rows, err := c.q.QueryContext(ctx, c.d.rebind(query), args...)
	if err != nil {
		return nil, screentime.NewStorageError("list adjustments", err)
	}
	return scanAdjustments(rows)
}

func scanAdjustments(rows *sql.Rows) ([]screentime.Adjustment, error) {
	defer rows.Close()

	adjs := []screentime.Adjustment{}
	for rows.Next() {
		var (
			a           screentime.Adjustment
			description sql.NullString
			createdAt   string
			minutes     int64
		)
		if err := rows.Scan(&a.ID, &a.TypeID, &description, &createdAt, &minutes); err != nil {
			return nil, screentime.NewStorageError("scan adjustment", err)
		}
		t, err := parseTime(createdAt)
		if err != nil {
			return nil, screentime.NewStorageError("scan adjustment", err)
		}
		a.CreatedAt = t
		a.Minutes = screentime.Minutes(minutes)
		if description.Valid {
			d := description.String
			a.Description = &d
		}
		adjs = append(adjs, a)
	}
	return adjs, screentime.NewStorageError("list adjustments", rows.Err())
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

// CreateTimeEntry records minutes of screen time used.
func (s *Store) CreateTimeEntry(ctx context.Context, minutes screentime.Minutes) (screentime.TimeEntry, error) {
	return s.conn().createTimeEntry(ctx, minutes)
}

// GetTimeEntry returns the time entry with the given ID.
func (s *Store) GetTimeEntry(ctx context.Context, id int64) (screentime.TimeEntry, error) {
	return s.conn().getTimeEntry(ctx, id)
}

// ListTimeEntries returns time entries matching filter, newest first.
func (s *Store) ListTimeEntries(ctx context.Context, filter screentime.TimeEntryFilter) ([]screentime.TimeEntry, error) {
	return s.conn().listTimeEntries(ctx, filter)
}

// DeleteTimeEntry removes a time entry.
func (s *Store) DeleteTimeEntry(ctx context.Context, id int64) error {
	return s.conn().deleteByID(ctx, "time_entry", screentime.KindTimeEntry, id)
}

func (c *conn) createTimeEntry(ctx context.Context, minutes screentime.Minutes) (screentime.TimeEntry, error) {
	if c.readOnly {
		return screentime.TimeEntry{}, screentime.NewStorageError("create time entry", errReadOnly)
	}
	if err := screentime.ValidateTimeEntry(minutes); err != nil {
		return screentime.TimeEntry{}, err
	}

	te := screentime.TimeEntry{Time: minutes, CreatedAt: c.now()}
	err := c.q.QueryRowContext(ctx,
		c.d.rebind("INSERT INTO time_entry (time, created_at) VALUES (?, ?) RETURNING id"),
		int64(minutes), formatTime(te.CreatedAt),
	).Scan(&te.ID)
	if err != nil {
		return screentime.TimeEntry{}, screentime.NewStorageError("create time entry", err)
	}
	return te, nil
}

func (c *conn) getTimeEntry(ctx context.Context, id int64) (screentime.TimeEntry, error) {
	rows, err := c.q.QueryContext(ctx,
		c.d.rebind("SELECT id, time, created_at FROM time_entry WHERE id = ?"), id)
	if err != nil {
		return screentime.TimeEntry{}, screentime.NewStorageError("get time entry", err)
	}
	entries, err := scanTimeEntries(rows)
	if err != nil {
		return screentime.TimeEntry{}, err
	}
	if len(entries) == 0 {
		return screentime.TimeEntry{}, &screentime.NotFoundError{Kind: screentime.KindTimeEntry, ID: id}
	}
	return entries[0], nil
}

func (c *conn) listTimeEntries(ctx context.Context, filter screentime.TimeEntryFilter) ([]screentime.TimeEntry, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	query := "SELECT id, time, created_at FROM time_entry"
	var args []any
	if filter.Since != nil {
		query += " WHERE created_at >= ?"
		args = append(args, formatTime(*filter.Since))
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *filter.Limit)
	}

	rows, err := c.q.QueryContext(ctx, c.d.rebind(query), args...)
	if err != nil {
		return nil, screentime.NewStorageError("list time entries", err)
	}
	return scanTimeEntries(rows)
}

func scanTimeEntries(rows *sql.Rows) ([]screentime.TimeEntry, error) {
	defer rows.Close()

	entries := []screentime.TimeEntry{}
	for rows.Next() {
		var (
			te        screentime.TimeEntry
			minutes   int64
			createdAt string
		)
		if err := rows.Scan(&te.ID, &minutes, &createdAt); err != nil {
			return nil, screentime.NewStorageError("scan time entry", err)
		}
		t, err := parseTime(createdAt)
		if err != nil {
			return nil, screentime.NewStorageError("scan time entry", err)
		}
		te.Time = screentime.Minutes(minutes)
		te.CreatedAt = t
		entries = append(entries, te)
	}
	return entries, screentime.NewStorageError("list time entries", rows.Err())
}

// =============================================================================
// SHARED
// =============================================================================

// deleteByID removes one row from table, reporting a missing row as
// *screentime.NotFoundError.
func (c *conn) deleteByID(ctx context.Context, table, kind string, id int64) error {
	op := "delete " + kind
	if c.readOnly {
		return screentime.NewStorageError(op, errReadOnly)
	}

	res, err := c.q.ExecContext(ctx, c.d.rebind("DELETE FROM "+table+" WHERE id = ?"), id)
	if err != nil {
		return screentime.NewStorageError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return screentime.NewStorageError(op, err)
	}
	if n == 0 {
		return &screentime.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

func (c *conn) now() time.Time {
	return c.clock().UTC()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
