package vault

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"arx/pkg/platform/sentinel"
	"arx/pkg/platform/tx"
)

// querier is the common surface of *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresArchive is the server-side archive backend: the entry index and
// payloads live in PostgreSQL. Payloads arrive already sealed by the vault, so
// the database only ever sees ciphertext.
type PostgresArchive struct {
	db     *sql.DB
	prefix string // table prefix, one archive per storage name
}

// NewPostgresArchive constructs a PostgreSQL-backed archive over the given
// table prefix.
func NewPostgresArchive(db *sql.DB, prefix string) *PostgresArchive {
	return &PostgresArchive{db: db, prefix: prefix}
}

// querier prefers a transaction carried by the context over the pool.
func (a *PostgresArchive) querier(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return a.db
}

// EnsureSchema creates the archive tables when missing.
func (a *PostgresArchive) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s_meta (
				owner UUID NOT NULL,
				tag TEXT NOT NULL,
				created TIMESTAMPTZ NOT NULL
			)`, a.prefix),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s_dirs (
				path TEXT PRIMARY KEY
			)`, a.prefix),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s_entries (
				path TEXT PRIMARY KEY,
				id UUID NOT NULL,
				owner UUID NOT NULL,
				created TIMESTAMPTZ NOT NULL,
				modified TIMESTAMPTZ NOT NULL,
				kind TEXT NOT NULL,
				target TEXT NOT NULL DEFAULT '',
				deleted BOOLEAN NOT NULL DEFAULT FALSE,
				payload BYTEA
			)`, a.prefix),
	}
	for _, stmt := range stmts {
		if _, err := a.querier(ctx).ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure archive schema: %w", err)
		}
	}
	return nil
}

func (a *PostgresArchive) Init(ctx context.Context, meta ArchiveMeta) error {
	var count int
	row := a.querier(ctx).QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s_meta`, a.prefix))
	if err := row.Scan(&count); err != nil {
		return fmt.Errorf("init archive: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("init archive: %w", sentinel.ErrConflict)
	}
	_, err := a.querier(ctx).ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s_meta (owner, tag, created) VALUES ($1, $2, $3)`, a.prefix),
		meta.Owner, meta.Tag, meta.Created)
	if err != nil {
		return fmt.Errorf("init archive: %w", err)
	}
	return nil
}

func (a *PostgresArchive) Meta(ctx context.Context) (ArchiveMeta, error) {
	var meta ArchiveMeta
	row := a.querier(ctx).QueryRowContext(ctx,
		fmt.Sprintf(`SELECT owner, tag, created FROM %s_meta`, a.prefix))
	if err := row.Scan(&meta.Owner, &meta.Tag, &meta.Created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ArchiveMeta{}, fmt.Errorf("archive meta: %w", sentinel.ErrNotFound)
		}
		return ArchiveMeta{}, fmt.Errorf("archive meta: %w", err)
	}
	return meta, nil
}

func (a *PostgresArchive) Mkdir(ctx context.Context, path string) error {
	_, err := a.querier(ctx).ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s_dirs (path) VALUES ($1) ON CONFLICT (path) DO NOTHING`, a.prefix),
		normalize(path))
	if err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

func (a *PostgresArchive) hasDir(ctx context.Context, path string) (bool, error) {
	var exists bool
	row := a.querier(ctx).QueryRowContext(ctx,
		fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s_dirs WHERE path = $1)`, a.prefix), path)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (a *PostgresArchive) Put(ctx context.Context, e Entry, payload []byte) error {
	e.Path = normalize(e.Path)
	ok, err := a.hasDir(ctx, parentDir(e.Path))
	if err != nil {
		return fmt.Errorf("put %s: %w", e.Path, err)
	}
	if !ok {
		return fmt.Errorf("put %s: %w", e.Path, sentinel.ErrPathNotFound)
	}
	_, err = a.querier(ctx).ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s_entries (path, id, owner, created, modified, kind, target, deleted, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8)`, a.prefix),
		e.Path, e.ID, e.Owner, e.Created, e.Modified, string(e.Kind), e.Target, payload)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("put %s: %w", e.Path, sentinel.ErrConflict)
		}
		return fmt.Errorf("put %s: %w", e.Path, err)
	}
	return nil
}

func (a *PostgresArchive) Refresh(ctx context.Context, path string, payload []byte, modified time.Time) error {
	res, err := a.querier(ctx).ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s_entries SET payload = $1, modified = $2
		WHERE path = $3 AND NOT deleted`, a.prefix),
		payload, modified, normalize(path))
	if err != nil {
		return fmt.Errorf("refresh %s: %w", path, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("refresh %s: %w", path, err)
	}
	if affected == 0 {
		return fmt.Errorf("refresh %s: %w", path, sentinel.ErrNotFound)
	}
	return nil
}

func (a *PostgresArchive) Get(ctx context.Context, path string) (Entry, []byte, error) {
	var (
		e       Entry
		kind    string
		payload []byte
	)
	row := a.querier(ctx).QueryRowContext(ctx, fmt.Sprintf(`
		SELECT path, id, owner, created, modified, kind, target, deleted, payload
		FROM %s_entries WHERE path = $1`, a.prefix), normalize(path))
	err := row.Scan(&e.Path, &e.ID, &e.Owner, &e.Created, &e.Modified, &kind, &e.Target, &e.Deleted, &payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, nil, fmt.Errorf("get %s: %w", path, sentinel.ErrNotFound)
		}
		return Entry{}, nil, fmt.Errorf("get %s: %w", path, err)
	}
	e.Kind = EntryKind(kind)
	return e, payload, nil
}

func (a *PostgresArchive) Remove(ctx context.Context, path string) error {
	res, err := a.querier(ctx).ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s_entries SET deleted = TRUE WHERE path = $1`, a.prefix),
		normalize(path))
	if err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	if affected == 0 {
		return fmt.Errorf("remove %s: %w", path, sentinel.ErrNotFound)
	}
	return nil
}

// Link checks the target and inserts the alias in one transaction, so the
// alias can never outlive a target removed concurrently.
func (a *PostgresArchive) Link(ctx context.Context, path, target string) error {
	txn, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("link %s: %w", path, err)
	}
	defer func() { _ = txn.Rollback() }()
	ctx = tx.WithTx(ctx, txn)

	path, target = normalize(path), normalize(target)
	ok, err := a.hasDir(ctx, parentDir(path))
	if err != nil {
		return fmt.Errorf("link %s: %w", path, err)
	}
	if !ok {
		return fmt.Errorf("link %s: %w", path, sentinel.ErrPathNotFound)
	}

	targetEntry, _, err := a.Get(ctx, target)
	if err != nil {
		return fmt.Errorf("link %s -> %s: %w", path, target, sentinel.ErrNotFound)
	}

	// A tombstoned occupant is reusable like in Put; a live one is a conflict.
	now := time.Now().UTC()
	res, err := a.querier(ctx).ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s_entries (path, id, owner, created, modified, kind, target, deleted, payload)
		VALUES ($1, $2, $3, $4, $4, $5, $6, FALSE, NULL)
		ON CONFLICT (path) DO UPDATE
		SET id = EXCLUDED.id, owner = EXCLUDED.owner, created = EXCLUDED.created,
			modified = EXCLUDED.modified, kind = EXCLUDED.kind, target = EXCLUDED.target,
			deleted = FALSE, payload = NULL
		WHERE %s_entries.deleted`, a.prefix, a.prefix),
		path, uuid.New(), targetEntry.Owner, now, string(EntryLink), target)
	if err != nil {
		return fmt.Errorf("link %s: %w", path, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("link %s: %w", path, err)
	}
	if affected == 0 {
		return fmt.Errorf("link %s: %w", path, sentinel.ErrConflict)
	}
	return txn.Commit()
}

func (a *PostgresArchive) List(ctx context.Context, pattern string) ([]Entry, error) {
	// Pattern segments translate to a SQL prefix filter; the exact glob match
	// happens in memory since "*" is segment-scoped.
	prefix := staticPrefix(pattern)
	rows, err := a.querier(ctx).QueryContext(ctx, fmt.Sprintf(`
		SELECT path, id, owner, created, modified, kind, target, deleted
		FROM %s_entries WHERE path LIKE $1 ORDER BY path`, a.prefix), prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", pattern, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e    Entry
			kind string
		)
		if err := rows.Scan(&e.Path, &e.ID, &e.Owner, &e.Created, &e.Modified, &kind, &e.Target, &e.Deleted); err != nil {
			return nil, fmt.Errorf("list %s: %w", pattern, err)
		}
		e.Kind = EntryKind(kind)
		if matchPath(pattern, e.Path) {
			out = append(out, e)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", pattern, err)
	}
	return out, nil
}

// staticPrefix returns the pattern part before the first wildcard.
func staticPrefix(pattern string) string {
	idx := strings.IndexByte(pattern, '*')
	if idx < 0 {
		return pattern
	}
	return pattern[:idx]
}
