package docstore

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore backs the cache with a shared database, for gateway fleets
// that want one cache namespace across hosts.
type PostgresStore struct {
	db     *sql.DB
	log    *slog.Logger
	maxAge time.Duration
}

func NewPostgresStore(dsn string, log *slog.Logger, maxAge time.Duration) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	s := &PostgresStore{db: db, log: log, maxAge: maxAge}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS am_documents (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS am_cache_meta (
			key TEXT PRIMARY KEY,
			value TIMESTAMPTZ NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Store(ctx context.Context, docs []ReferenceDocument) error {
	if err := s.put(ctx, docs); err != nil {
		s.log.Warn("cache write rejected; truncating and retrying once", "err", err, "docs", len(docs))
		docs = TruncateNewest(docs, MaxDocuments)
		if err := s.put(ctx, docs); err != nil {
			s.log.Warn("cache write failed after truncation; dropping update", "err", err)
		}
	}
	return nil
}

func (s *PostgresStore) put(ctx context.Context, docs []ReferenceDocument) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM am_documents`); err != nil {
		return err
	}
	for _, doc := range docs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO am_documents (id, title, content, updated_at) VALUES ($1, $2, $3, $4)`,
			doc.ID, doc.Title, doc.Content, doc.UpdatedAt)
		if err != nil {
			return err
		}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO am_cache_meta (key, value) VALUES ('last_sync', $1)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		time.Now())
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) Retrieve(ctx context.Context) ([]ReferenceDocument, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, content, updated_at FROM am_documents ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []ReferenceDocument
	for rows.Next() {
		var doc ReferenceDocument
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Content, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *PostgresStore) LastSync(ctx context.Context) (*time.Time, error) {
	var t time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM am_cache_meta WHERE key = 'last_sync'`).Scan(&t)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM am_documents`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM am_cache_meta WHERE key = 'last_sync'`); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) Status(ctx context.Context) (CacheStatus, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM am_documents`).Scan(&count); err != nil {
		return CacheStatus{}, err
	}
	ts, err := s.LastSync(ctx)
	if err != nil {
		return CacheStatus{}, err
	}
	return buildStatus(count, ts, s.maxAge, time.Now()), nil
}
