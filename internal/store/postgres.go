package store

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies
// it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// scanLimitDefault bounds unlimited scans. The feed aggregator never
// needs more documents than this in one pass.
const scanLimitDefault = 10000

// PostgresStore implements Store using pgx with JSONB documents.
type PostgresStore struct {
	pool Pool

	watchInterval time.Duration
}

// NewPostgres connects a pgx pool to databaseURL.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return NewPostgresWithPool(pool), nil
}

// NewPostgresWithPool wraps an existing pool (or a pgxmock double).
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool, watchInterval: time.Second}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS documents (
	key        TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	version    BIGINT NOT NULL DEFAULT 1,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_documents_updated_at ON documents(updated_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (*Document, error) {
	var doc Document
	err := s.pool.QueryRow(ctx,
		`SELECT key, data, version, updated_at FROM documents WHERE key = $1`, key,
	).Scan(&doc.Key, &doc.Data, &doc.Version, &doc.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get %s", key)
	}
	return &doc, nil
}

func (s *PostgresStore) Create(ctx context.Context, key string, doc any) error {
	data, err := marshal(doc)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO documents (key, data) VALUES ($1, $2)
		 ON CONFLICT (key) DO NOTHING`,
		key, data,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: create %s", key)
	}
	if tag.RowsAffected() == 0 {
		return ErrExists
	}
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, key string, doc any) error {
	data, err := marshal(doc)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO documents (key, data) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET
			data = excluded.data,
			version = documents.version + 1,
			updated_at = now()`,
		key, data,
	)
	return eris.Wrapf(err, "postgres: put %s", key)
}

func (s *PostgresStore) Update(ctx context.Context, key string, patch map[string]any) error {
	data, err := marshal(patch)
	if err != nil {
		return err
	}
	var version int64
	err = s.pool.QueryRow(ctx,
		`UPDATE documents SET
			data = data || $2::jsonb,
			version = version + 1,
			updated_at = now()
		 WHERE key = $1
		 RETURNING version`,
		key, data,
	).Scan(&version)
	if err == pgx.ErrNoRows {
		return ErrNotFound
	}
	return eris.Wrapf(err, "postgres: update %s", key)
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE key = $1`, key)
	return eris.Wrapf(err, "postgres: delete %s", key)
}

func (s *PostgresStore) Scan(ctx context.Context, prefix string, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = scanLimitDefault
	}
	rows, err := s.pool.Query(ctx,
		`SELECT key, data, version, updated_at FROM documents
		 WHERE key LIKE $1 ORDER BY key LIMIT $2`,
		likeEscape(prefix)+"%", limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: scan %s", prefix)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.Key, &doc.Data, &doc.Version, &doc.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan row")
		}
		out = append(out, doc)
	}
	return out, eris.Wrap(rows.Err(), "postgres: scan rows")
}

func (s *PostgresStore) Increment(ctx context.Context, key, field string, delta int64) (int64, error) {
	path := strings.Split(field, ".")
	var n int64
	err := s.pool.QueryRow(ctx,
		`UPDATE documents SET
			data = jsonb_set(data, $2::text[], to_jsonb(COALESCE((data#>>$2::text[])::bigint, 0) + $3), true),
			version = version + 1,
			updated_at = now()
		 WHERE key = $1
		 RETURNING (data#>>$2::text[])::bigint`,
		key, path, delta,
	).Scan(&n)
	if err == pgx.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: increment %s.%s", key, field)
	}
	return n, nil
}

// Watch polls the document's version and emits on change.
func (s *PostgresStore) Watch(ctx context.Context, key string) (<-chan Document, func(), error) {
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

// likeEscape neutralizes LIKE metacharacters in a key prefix.
func likeEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
