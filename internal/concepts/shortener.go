package concepts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/weftlabs/weft/internal/ir"
)

// UrlShortening maps short URLs to target URLs, backed by SQLite so
// registrations survive restarts.
//
// Operations:
//
//	register (shortUrlSuffix, shortUrlBase, targetUrl) -> (shortUrl, targetUrl)
//	delete   (shortUrl)                                -> (shortUrl)
//	_lookup  (shortUrl)                                -> rows of (shortUrl, targetUrl)
//
// A register against a taken short URL and a delete of an unknown one
// settle with a business error; infrastructure failures (a broken
// database) surface as Go errors and emit no completion.
type UrlShortening struct {
	db *sql.DB
}

// OpenUrlShortening opens or creates the shortener database at path.
// Use ":memory:" for tests.
func OpenUrlShortening(path string) (*UrlShortening, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("shortener: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("shortener: connect: %w", err)
	}

	// Single writer avoids SQLITE_BUSY under concurrent use.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("shortener: %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS short_urls (
			short_url  TEXT PRIMARY KEY,
			target_url TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("shortener: apply schema: %w", err)
	}

	return &UrlShortening{db: db}, nil
}

// Close closes the backing database.
func (u *UrlShortening) Close() error {
	return u.db.Close()
}

func (u *UrlShortening) Perform(ctx context.Context, op string, input ir.Object) (ir.Object, error) {
	switch op {
	case "register":
		return u.register(ctx, input)
	case "delete":
		return u.delete(ctx, input)
	default:
		return nil, fmt.Errorf("shortener: unknown operation %q", op)
	}
}

func (u *UrlShortening) register(ctx context.Context, input ir.Object) (ir.Object, error) {
	suffix, ok := stringField(input, "shortUrlSuffix")
	if !ok {
		return ir.Object{"error": ir.String("missing shortUrlSuffix")}, nil
	}
	base, ok := stringField(input, "shortUrlBase")
	if !ok {
		return ir.Object{"error": ir.String("missing shortUrlBase")}, nil
	}
	target, ok := stringField(input, "targetUrl")
	if !ok {
		return ir.Object{"error": ir.String("missing targetUrl")}, nil
	}

	shortURL := base + "/" + suffix
	_, err := u.db.ExecContext(ctx, `
		INSERT INTO short_urls (short_url, target_url) VALUES (?, ?)
	`, shortURL, target)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ir.Object{"error": ir.String("short url already registered")}, nil
		}
		return nil, fmt.Errorf("shortener: register: %w", err)
	}

	return ir.Object{
		"shortUrl":  ir.String(shortURL),
		"targetUrl": ir.String(target),
	}, nil
}

func (u *UrlShortening) delete(ctx context.Context, input ir.Object) (ir.Object, error) {
	shortURL, ok := stringField(input, "shortUrl")
	if !ok {
		return ir.Object{"error": ir.String("missing shortUrl")}, nil
	}

	res, err := u.db.ExecContext(ctx, `DELETE FROM short_urls WHERE short_url = ?`, shortURL)
	if err != nil {
		return nil, fmt.Errorf("shortener: delete: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("shortener: delete: %w", err)
	}
	if affected == 0 {
		return ir.Object{"error": ir.String("short url not registered")}, nil
	}

	return ir.Object{"shortUrl": ir.String(shortURL)}, nil
}

func (u *UrlShortening) Query(ctx context.Context, op string, input ir.Object) ([]ir.Object, error) {
	if op != "_lookup" {
		return nil, fmt.Errorf("shortener: unknown query %q", op)
	}
	shortURL, ok := stringField(input, "shortUrl")
	if !ok {
		return nil, nil
	}

	var target string
	err := u.db.QueryRowContext(ctx, `
		SELECT target_url FROM short_urls WHERE short_url = ?
	`, shortURL).Scan(&target)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("shortener: lookup: %w", err)
	}

	return []ir.Object{{
		"shortUrl":  ir.String(shortURL),
		"targetUrl": ir.String(target),
	}}, nil
}

func stringField(input ir.Object, field string) (string, bool) {
	v, ok := input[field]
	if !ok {
		return "", false
	}
	s, ok := v.(ir.String)
	return string(s), ok
}
