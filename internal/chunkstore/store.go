// Package chunkstore mirrors synced document chunks into a local SQLite
// database so retrieval tooling can work offline.
package chunkstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// schemaVersion is recorded in the meta table; bumps accompany column
// additions. Migration is strictly additive: columns are added with NULL
// values for existing rows, never dropped or retyped.
const schemaVersion = "2"

// baseDDL is the original table layout. Columns added since then arrive
// through the migrations list so old databases keep working.
const baseDDL = `
CREATE TABLE IF NOT EXISTS chunks (
	doc_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	content TEXT NOT NULL,
	synced_at TEXT NOT NULL,
	PRIMARY KEY (doc_id, seq)
);

CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// migrations lists columns added after the base layout, in the order they
// shipped.
var migrations = []struct {
	column string
	ddl    string
}{
	{column: "remote_id", ddl: `ALTER TABLE chunks ADD COLUMN remote_id TEXT`},
	{column: "source_url", ddl: `ALTER TABLE chunks ADD COLUMN source_url TEXT`},
	{column: "embedding", ddl: `ALTER TABLE chunks ADD COLUMN embedding TEXT`},
	{column: "model", ddl: `ALTER TABLE chunks ADD COLUMN model TEXT`},
}

// Chunk is one stored text chunk. A nil Embedding is persisted as NULL and
// comes back nil.
type Chunk struct {
	Seq       int       `json:"seq"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// Document groups one document's chunks with its remote coordinates.
type Document struct {
	DocID     string
	RemoteID  string
	SourceURL string
	Model     string // embedding model, "" when embeddings are off
	Chunks    []Chunk
}

// DocInfo summarizes one stored document.
type DocInfo struct {
	DocID    string    `json:"doc_id"`
	RemoteID string    `json:"remote_id,omitempty"`
	Chunks   int       `json:"chunks"`
	Embedded int       `json:"embedded"`
	SyncedAt time.Time `json:"synced_at"`
}

// Store is the SQLite chunk mirror.
type Store struct {
	db *sql.DB
}

// Open opens or creates the chunk store at path and applies any pending
// migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening chunk store: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if _, err := db.Exec(baseDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate adds missing columns and records the schema version.
func migrate(db *sql.DB) error {
	existing, err := tableColumns(db, "chunks")
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if existing[m.column] {
			continue
		}
		if _, err := db.Exec(m.ddl); err != nil {
			return fmt.Errorf("adding column %s: %w", m.column, err)
		}
	}

	_, err = db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)`, schemaVersion)
	return err
}

// tableColumns reads the live column set via PRAGMA table_info.
func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("reading table info: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, colType    string
			defaultValue     sql.NullString
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// Replace swaps a document's chunks in one transaction: delete by document,
// insert in order. Mirrors the remote replace-not-append contract, so a
// re-sync never leaves stale rows behind.
func (s *Store) Replace(ctx context.Context, doc Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE doc_id = ?`, doc.DocID); err != nil {
		return fmt.Errorf("clearing chunks for %s: %w", doc.DocID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (doc_id, seq, content, remote_id, source_url, embedding, model, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	syncedAt := time.Now().UTC().Format(time.RFC3339)
	for _, chunk := range doc.Chunks {
		embedding, err := encodeEmbedding(chunk.Embedding)
		if err != nil {
			return fmt.Errorf("encoding embedding %s/%d: %w", doc.DocID, chunk.Seq, err)
		}
		_, err = stmt.ExecContext(ctx,
			doc.DocID, chunk.Seq, chunk.Content,
			nullableString(doc.RemoteID), nullableString(doc.SourceURL),
			embedding, nullableString(doc.Model), syncedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting chunk %s/%d: %w", doc.DocID, chunk.Seq, err)
		}
	}

	return tx.Commit()
}

// Chunks returns a document's chunks ordered by sequence.
func (s *Store) Chunks(ctx context.Context, docID string) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, content, embedding FROM chunks WHERE doc_id = ? ORDER BY seq`, docID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks for %s: %w", docID, err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		var embedding sql.NullString
		if err := rows.Scan(&c.Seq, &c.Content, &embedding); err != nil {
			return nil, err
		}
		if embedding.Valid {
			if err := json.Unmarshal([]byte(embedding.String), &c.Embedding); err != nil {
				return nil, fmt.Errorf("decoding embedding %s/%d: %w", docID, c.Seq, err)
			}
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// Docs summarizes every stored document, ordered by document ID.
func (s *Store) Docs(ctx context.Context) ([]DocInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, COALESCE(remote_id, ''), COUNT(*),
		       SUM(CASE WHEN embedding IS NOT NULL THEN 1 ELSE 0 END),
		       MAX(synced_at)
		FROM chunks GROUP BY doc_id ORDER BY doc_id`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []DocInfo
	for rows.Next() {
		var d DocInfo
		var syncedAt string
		if err := rows.Scan(&d.DocID, &d.RemoteID, &d.Chunks, &d.Embedded, &syncedAt); err != nil {
			return nil, err
		}
		d.SyncedAt, _ = time.Parse(time.RFC3339, syncedAt)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Count returns the total number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// encodeEmbedding renders a vector as JSON, or NULL for a nil vector.
func encodeEmbedding(v []float32) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
