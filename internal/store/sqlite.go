package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB

	// watchInterval controls the Watch poll cadence.
	watchInterval time.Duration
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, watchInterval: time.Second}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS documents (
	key        TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	version    INTEGER NOT NULL DEFAULT 1,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_documents_updated_at ON documents(updated_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*Document, error) {
	var doc Document
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT key, data, version, updated_at FROM documents WHERE key = ?`, key,
	).Scan(&doc.Key, &data, &doc.Version, &doc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get %s", key)
	}
	doc.Data = []byte(data)
	return &doc, nil
}

func (s *SQLiteStore) Create(ctx context.Context, key string, doc any) error {
	data, err := marshal(doc)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (key, data, version, updated_at) VALUES (?, ?, 1, ?)
		 ON CONFLICT (key) DO NOTHING`,
		key, string(data), time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: create %s", key)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrExists
	}
	return nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, doc any) error {
	data, err := marshal(doc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (key, data, version, updated_at) VALUES (?, ?, 1, ?)
		 ON CONFLICT (key) DO UPDATE SET
			data = excluded.data,
			version = documents.version + 1,
			updated_at = excluded.updated_at`,
		key, string(data), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: put %s", key)
}

func (s *SQLiteStore) Update(ctx context.Context, key string, patch map[string]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin update")
	}
	defer tx.Rollback()

	var data string
	var version int64
	err = tx.QueryRowContext(ctx,
		`SELECT data, version FROM documents WHERE key = ?`, key,
	).Scan(&data, &version)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: read %s for update", key)
	}

	merged, err := mergePatch([]byte(data), patch)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET data = ?, version = ?, updated_at = ? WHERE key = ?`,
		string(merged), version+1, time.Now().UTC(), key,
	); err != nil {
		return eris.Wrapf(err, "sqlite: update %s", key)
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit update")
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE key = ?`, key)
	return eris.Wrapf(err, "sqlite: delete %s", key)
}

func (s *SQLiteStore) Scan(ctx context.Context, prefix string, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats negative LIMIT as unbounded
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, data, version, updated_at FROM documents
		 WHERE key GLOB ? ORDER BY key LIMIT ?`,
		globEscape(prefix)+"*", limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: scan %s", prefix)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var doc Document
		var data string
		if err := rows.Scan(&doc.Key, &data, &doc.Version, &doc.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan row")
		}
		doc.Data = []byte(data)
		out = append(out, doc)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: scan rows")
}

func (s *SQLiteStore) Increment(ctx context.Context, key, field string, delta int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin increment")
	}
	defer tx.Rollback()

	var data string
	var version int64
	err = tx.QueryRowContext(ctx,
		`SELECT data, version FROM documents WHERE key = ?`, key,
	).Scan(&data, &version)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: read %s for increment", key)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return 0, eris.Wrapf(err, "sqlite: decode %s for increment", key)
	}
	n, err := incrementPath(obj, field, delta)
	if err != nil {
		return 0, err
	}
	merged, err := json.Marshal(obj)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: encode incremented document")
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET data = ?, version = ?, updated_at = ? WHERE key = ?`,
		string(merged), version+1, time.Now().UTC(), key,
	); err != nil {
		return 0, eris.Wrapf(err, "sqlite: increment %s", key)
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit increment")
	}
	return n, nil
}

// Watch polls the document's version and emits on change.
func (s *SQLiteStore) Watch(ctx context.Context, key string) (<-chan Document, func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan Document, 16)

	go func() {
		defer close(ch)
		ticker := time.NewTicker(s.watchInterval)
		defer ticker.Stop()

		var last int64
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			doc, err := s.Get(ctx, key)
			if err != nil {
				continue
			}
			if doc.Version == last {
				continue
			}
			last = doc.Version
			select {
			case ch <- *doc:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, cancel, nil
}

// globEscape neutralizes GLOB metacharacters in a key prefix.
func globEscape(s string) string {
	var out []byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[':
			out = append(out, '[', s[i], ']')
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}
