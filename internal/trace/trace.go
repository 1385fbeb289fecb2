// Package trace persists settled completions to SQLite as an audit log.
//
// The log attaches to a Runtime as an observer. Only settled completions
// are written; partial matches and frames never touch disk, so dropping
// the database loses history, not correctness.
package trace

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/weftlabs/weft/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// Log is an append-only completion store.
// Safe for the runtime's single-goroutine write path plus concurrent
// readers (WAL mode).
type Log struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates or opens the audit database at path, applying pragmas and
// schema. Idempotent; use ":memory:" for tests.
func Open(path string, logger *slog.Logger) (*Log, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("trace: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("trace: connect: %w", err)
	}

	// SQLite supports one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("trace: %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("trace: apply schema: %w", err)
	}

	return &Log{db: db, logger: logger}, nil
}

// Close closes the backing database.
func (l *Log) Close() error {
	return l.db.Close()
}

// Observe writes one completion. Implements engine.Observer.
//
// Writes are idempotent on the record ID (ON CONFLICT DO NOTHING), so
// replaying a scope cannot duplicate rows. A write failure is logged and
// swallowed: the audit log must never fail the dispatch that feeds it.
func (l *Log) Observe(rec ir.ActionRecord, scopeToken string) {
	if err := l.write(rec, scopeToken); err != nil {
		l.logger.Error("trace write failed",
			"record", rec.Ref(),
			"scope", scopeToken,
			"error", err,
		)
	}
}

func (l *Log) write(rec ir.ActionRecord, scopeToken string) error {
	inputJSON, err := ir.MarshalCanonical(orEmpty(rec.Input))
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}
	outputJSON, err := ir.MarshalCanonical(orEmpty(rec.Output))
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}

	_, err = l.db.Exec(`
		INSERT INTO completions
		(id, scope_token, concept, op, input, output, seq, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		scopeToken,
		rec.Concept,
		rec.Op,
		string(inputJSON),
		string(outputJSON),
		rec.Seq,
		rec.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert completion: %w", err)
	}
	return nil
}

// Entry is one persisted completion.
type Entry struct {
	ID      string
	Scope   string
	Concept string
	Op      string
	Input   ir.Object
	Output  ir.Object
	Seq     int64
	At      time.Time
}

// ReadScope returns the completions of one scope in deterministic order
// (seq, then id with binary collation). Empty, not nil, when the scope is
// unknown.
func (l *Log) ReadScope(ctx context.Context, scopeToken string) ([]Entry, error) {
	return l.read(ctx, `
		SELECT id, scope_token, concept, op, input, output, seq, at
		FROM completions
		WHERE scope_token = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, scopeToken)
}

// ReadAll returns every persisted completion in deterministic order.
func (l *Log) ReadAll(ctx context.Context) ([]Entry, error) {
	return l.read(ctx, `
		SELECT id, scope_token, concept, op, input, output, seq, at
		FROM completions
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
}

// Scopes returns the distinct scope tokens, ordered by first appearance.
func (l *Log) Scopes(ctx context.Context) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT scope_token FROM completions
		GROUP BY scope_token
		ORDER BY MIN(seq) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("trace: query scopes: %w", err)
	}
	defer rows.Close()

	var scopes []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("trace: scan scope: %w", err)
		}
		scopes = append(scopes, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trace: iterate scopes: %w", err)
	}
	if scopes == nil {
		scopes = []string{}
	}
	return scopes, nil
}

func (l *Log) read(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("trace: query completions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			inputJSON  string
			outputJSON string
			at         string
		)
		if err := rows.Scan(&e.ID, &e.Scope, &e.Concept, &e.Op, &inputJSON, &outputJSON, &e.Seq, &at); err != nil {
			return nil, fmt.Errorf("trace: scan completion: %w", err)
		}
		if err := json.Unmarshal([]byte(inputJSON), &e.Input); err != nil {
			return nil, fmt.Errorf("trace: unmarshal input of %s: %w", e.ID, err)
		}
		if err := json.Unmarshal([]byte(outputJSON), &e.Output); err != nil {
			return nil, fmt.Errorf("trace: unmarshal output of %s: %w", e.ID, err)
		}
		e.At, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("trace: parse timestamp of %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trace: iterate completions: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

func orEmpty(obj ir.Object) ir.Object {
	if obj == nil {
		return ir.Object{}
	}
	return obj
}
