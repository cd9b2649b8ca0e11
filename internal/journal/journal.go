// Package journal provides a durable SQLite log of engine operations:
// which instance was mutated, by what operation, and how many records it
// held afterward. The journal is additive observability: the engine
// works without one, and journal failures never fail the operation that
// triggered them.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on operations.instance
const currentSchemaVersion = 1

// Journal is a durable operation log backed by SQLite with WAL mode.
type Journal struct {
	db *sql.DB
}

// Op is one journaled engine operation.
type Op struct {
	ID        string
	Op        string
	Instance  string
	Records   int
	Detail    string
	CreatedAt time.Time
}

// NewOp builds an operation row with a fresh UUIDv7 ID. UUIDv7 embeds a
// timestamp in the most significant bits, so IDs sort by creation time.
func NewOp(op, instance string, records int, detail string) Op {
	return Op{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Op:        op,
		Instance:  instance,
		Records:   records,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
}

// Open creates or opens the journal database at the given path.
// Applies required pragmas and migrations automatically; idempotent.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY errors.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record inserts one operation row. Uses ON CONFLICT(id) DO NOTHING so a
// replayed row is silently ignored.
func (j *Journal) Record(ctx context.Context, op Op) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO operations (id, op, instance, records, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		op.ID,
		op.Op,
		op.Instance,
		op.Records,
		op.Detail,
		op.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record operation: %w", err)
	}
	return nil
}

// List returns journaled operations in ID (creation) order, optionally
// filtered by instance name.
func (j *Journal) List(ctx context.Context, instance string) ([]Op, error) {
	query := `SELECT id, op, instance, records, detail, created_at FROM operations`
	args := []any{}
	if instance != "" {
		query += ` WHERE instance = ?`
		args = append(args, instance)
	}
	query += ` ORDER BY id`

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()

	var ops []Op
	for rows.Next() {
		var op Op
		var detail sql.NullString
		var createdAt string
		if err := rows.Scan(&op.ID, &op.Op, &op.Instance, &op.Records, &detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		op.Detail = detail.String
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			op.CreatedAt = t
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	return ops, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return runMigrations(db)
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
		version = 1
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV1 adds the instance index for databases created before v1.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_operations_instance
		ON operations(instance)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}
