package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/quillbase/ingesta/internal/config"
	"github.com/quillbase/ingesta/internal/core"
	"github.com/quillbase/ingesta/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an ingestion service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Sources

func (c *DatabaseClient) CreateSource(ctx context.Context, src *models.Source) error {
	if src == nil {
		return errors.New("nil source")
	}
	const q = `
		INSERT INTO sources (id, org_id, name, origin_type, base_url, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()), COALESCE($8, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		src.ID, src.OrgID, src.Name, src.OriginType, src.BaseURL, src.Status, src.CreatedAt, src.UpdatedAt)
	return err
}

func (c *DatabaseClient) GetSourceByID(ctx context.Context, id string) (*models.Source, error) {
	const q = `
		SELECT id, org_id, name, origin_type, base_url, status, created_at, updated_at
		FROM sources WHERE id = $1
	`
	var s models.Source
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.OrgID, &s.Name, &s.OriginType, &s.BaseURL, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, core.ErrSourceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *DatabaseClient) ListSourcesByOrg(ctx context.Context, orgID string) ([]models.Source, error) {
	const q = `
		SELECT id, org_id, name, origin_type, base_url, status, created_at, updated_at
		FROM sources
		WHERE org_id = $1
		ORDER BY created_at DESC
	`
	return c.scanSources(ctx, q, orgID)
}

func (c *DatabaseClient) ListWebsiteSources(ctx context.Context) ([]models.Source, error) {
	const q = `
		SELECT id, org_id, name, origin_type, base_url, status, created_at, updated_at
		FROM sources
		WHERE origin_type = 'website'
		ORDER BY created_at ASC
	`
	return c.scanSources(ctx, q)
}

func (c *DatabaseClient) scanSources(ctx context.Context, q string, args ...any) ([]models.Source, error) {
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Source
	for rows.Next() {
		var s models.Source
		if err := rows.Scan(
			&s.ID, &s.OrgID, &s.Name, &s.OriginType, &s.BaseURL, &s.Status, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateSourceStatus(ctx context.Context, id string, status string) error {
	const q = `
		UPDATE sources
		SET status = $2, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, status)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", core.ErrSourceNotFound, id)
	}
	return nil
}

func (c *DatabaseClient) DeleteSource(ctx context.Context, id string) error {
	// Content records, chunks and leases cascade via FK.
	_, err := c.db.ExecContext(ctx, `DELETE FROM sources WHERE id = $1`, id)
	return err
}

// Content records

func (c *DatabaseClient) InsertContentRecord(ctx context.Context, rec *models.ContentRecord) error {
	if rec == nil {
		return errors.New("nil content record")
	}
	const q = `
		INSERT INTO content_records (id, source_id, canonical_url, title, content, created_at, chunked_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()), $7)
	`
	_, err := c.db.ExecContext(ctx, q,
		rec.ID, rec.SourceID, rec.CanonicalURL, rec.Title, rec.Content, rec.CreatedAt, rec.ChunkedAt)
	return err
}

func (c *DatabaseClient) ListContentRecordsBySource(ctx context.Context, sourceID string) ([]models.ContentRecord, error) {
	const q = `
		SELECT id, source_id, canonical_url, title, content, created_at, chunked_at
		FROM content_records
		WHERE source_id = $1
		ORDER BY created_at ASC
	`
	rows, err := c.db.QueryContext(ctx, q, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ContentRecord
	for rows.Next() {
		var r models.ContentRecord
		if err := rows.Scan(
			&r.ID, &r.SourceID, &r.CanonicalURL, &r.Title, &r.Content, &r.CreatedAt, &r.ChunkedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) DeleteContentRecordsBefore(ctx context.Context, sourceID string, cutoff time.Time) error {
	const q = `
		DELETE FROM content_records
		WHERE source_id = $1 AND created_at < $2
	`
	_, err := c.db.ExecContext(ctx, q, sourceID, cutoff)
	return err
}

func (c *DatabaseClient) StampChunkedAt(ctx context.Context, contentID string) error {
	const q = `
		UPDATE content_records
		SET chunked_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, contentID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("content record not found: %s", contentID)
	}
	return nil
}

// Chunks

// InsertChunks inserts chunks in a single transaction.
func (c *DatabaseClient) InsertChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO chunks
			(id, content_id, position, total_chunks, text, word_count, embedding, embedded_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()), COALESCE($9, now()))
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		vec := pgvector.NewVector(ch.Embedding)

		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.ContentID, ch.Position, ch.TotalChunks, ch.Text, ch.WordCount, vec, ch.EmbeddedAt, ch.CreatedAt,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (c *DatabaseClient) CountChunksBySource(ctx context.Context, sourceID string) (int, error) {
	const q = `
		SELECT count(*)
		FROM chunks ch
		JOIN content_records cr ON cr.id = ch.content_id
		WHERE cr.source_id = $1
	`
	var n int
	if err := c.db.QueryRowContext(ctx, q, sourceID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// SearchChunks finds top-k similar chunks within a source for a query
// embedding. This is the read path the downstream ranker consumes.
func (c *DatabaseClient) SearchChunks(ctx context.Context, sourceID string, queryVec []float32, limit int) ([]models.Chunk, error) {
	const q = `
		SELECT ch.id, ch.content_id, ch.position, ch.total_chunks, ch.text, ch.word_count, ch.embedding
		FROM chunks ch
		JOIN content_records cr ON cr.id = ch.content_id
		WHERE cr.source_id = $1
		ORDER BY ch.embedding <-> $2
		LIMIT $3
	`
	vec := pgvector.NewVector(queryVec)
	rows, err := c.db.QueryContext(ctx, q, sourceID, vec, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Chunk
	for rows.Next() {
		var (
			ch  models.Chunk
			emb pgvector.Vector
		)
		if err := rows.Scan(&ch.ID, &ch.ContentID, &ch.Position, &ch.TotalChunks, &ch.Text, &ch.WordCount, &emb); err != nil {
			return nil, err
		}
		ch.Embedding = emb.Slice()
		out = append(out, ch)
	}
	return out, rows.Err()
}

// Leases

// AcquireIngestLease claims the per-source lease, taking over expired leases.
// Zero rows affected means someone else holds a live lease.
func (c *DatabaseClient) AcquireIngestLease(ctx context.Context, sourceID, holder string, ttl time.Duration) error {
	const q = `
		INSERT INTO ingest_leases (source_id, holder, acquired_at, expires_at)
		VALUES ($1, $2, now(), now() + make_interval(secs => $3))
		ON CONFLICT (source_id) DO UPDATE
		SET holder = EXCLUDED.holder, acquired_at = now(), expires_at = EXCLUDED.expires_at
		WHERE ingest_leases.expires_at < now()
	`
	res, err := c.db.ExecContext(ctx, q, sourceID, holder, ttl.Seconds())
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return core.ErrIngestInProgress
	}
	return nil
}

func (c *DatabaseClient) ReleaseIngestLease(ctx context.Context, sourceID, holder string) error {
	const q = `
		DELETE FROM ingest_leases
		WHERE source_id = $1 AND holder = $2
	`
	_, err := c.db.ExecContext(ctx, q, sourceID, holder)
	return err
}
