package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

const dbTimeout = 2 * time.Second

const schema = `CREATE TABLE IF NOT EXISTS catalog (
	name        VARBINARY(1024) NOT NULL,
	file_type   VARCHAR(255)  NOT NULL,
	size        BIGINT        NOT NULL,
	version     BIGINT UNSIGNED NOT NULL,
	hash        CHAR(64)      NOT NULL,
	mime_type   VARCHAR(255)  NOT NULL,
	tags        JSON          NOT NULL,
	encrypted   BOOLEAN       NOT NULL,
	uploaded_at DATETIME(6)   NOT NULL,
	modified_at DATETIME(6)   NOT NULL,
	metadata    JSON,
	PRIMARY KEY (name)
)`

const selectColumns = "SELECT name, file_type, size, version, hash, mime_type, tags, encrypted, uploaded_at, modified_at, metadata FROM catalog"

// MySQLRepo implements Repository using prepared statements and context timeouts.
type MySQLRepo struct {
	db            *sql.DB
	stmtUpsert    *sql.Stmt
	stmtTags      *sql.Stmt
	stmtDelete    *sql.Stmt
	stmtGetByName *sql.Stmt
}

// NewMySQLRepo creates the catalog table if needed and prepares all
// statements up front. The caller owns the *sql.DB lifetime.
func NewMySQLRepo(ctx context.Context, db *sql.DB) (*MySQLRepo, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create catalog table: %w", err)
	}

	r := &MySQLRepo{db: db}
	var err error
	prepare := func(query string) *sql.Stmt {
		if err != nil {
			return nil
		}
		var stmt *sql.Stmt
		stmt, err = db.PrepareContext(ctx, query)
		return stmt
	}
	r.stmtUpsert = prepare(`INSERT INTO catalog
		(name, file_type, size, version, hash, mime_type, tags, encrypted, uploaded_at, modified_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE file_type = VALUES(file_type), size = VALUES(size), version = VALUES(version),
		hash = VALUES(hash), mime_type = VALUES(mime_type), tags = VALUES(tags), encrypted = VALUES(encrypted),
		uploaded_at = VALUES(uploaded_at), modified_at = VALUES(modified_at), metadata = VALUES(metadata)`)
	r.stmtTags = prepare("UPDATE catalog SET tags = ?, modified_at = ? WHERE name = ?")
	r.stmtDelete = prepare("DELETE FROM catalog WHERE name = ?")
	r.stmtGetByName = prepare(selectColumns + " WHERE name = ?")
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("prepare catalog statements: %w", err)
	}
	return r, nil
}

// Upsert inserts or replaces a catalog record.
func (r *MySQLRepo) Upsert(ctx context.Context, rec *CatalogRecord) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tagsJSON, err := json.Marshal(nonNil(rec.Tags))
	if err != nil {
		return fmt.Errorf("repo upsert marshal tags: %w", err)
	}
	metaJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("repo upsert marshal metadata: %w", err)
	}

	_, err = r.stmtUpsert.ExecContext(ctx,
		rec.Name, rec.FileType, rec.Size, rec.Version, rec.Hash, rec.MimeType,
		tagsJSON, rec.Encrypted, rec.UploadedAt, rec.ModifiedAt, metaJSON)
	if err != nil {
		return fmt.Errorf("repo upsert: %w", err)
	}
	return nil
}

// UpdateTags replaces the tags of an existing record.
func (r *MySQLRepo) UpdateTags(ctx context.Context, name string, tags []string, modifiedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tagsJSON, err := json.Marshal(nonNil(tags))
	if err != nil {
		return fmt.Errorf("repo updateTags marshal: %w", err)
	}
	res, err := r.stmtTags.ExecContext(ctx, tagsJSON, modifiedAt, name)
	if err != nil {
		return fmt.Errorf("repo updateTags: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("repo updateTags %q: %w", name, ErrNotFound)
	}
	return nil
}

// Delete removes a record.
func (r *MySQLRepo) Delete(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := r.stmtDelete.ExecContext(ctx, name); err != nil {
		return fmt.Errorf("repo delete: %w", err)
	}
	return nil
}

// GetByName retrieves a record by file name.
func (r *MySQLRepo) GetByName(ctx context.Context, name string) (*CatalogRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rec, err := scanRecord(r.stmtGetByName.QueryRowContext(ctx, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("repo getByName %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("repo getByName: %w", err)
	}
	return rec, nil
}

// ListAll retrieves all records ordered by most recently modified first.
func (r *MySQLRepo) ListAll(ctx context.Context) ([]*CatalogRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, selectColumns+" ORDER BY modified_at DESC LIMIT 1000")
	if err != nil {
		return nil, fmt.Errorf("repo listAll: %w", err)
	}
	defer rows.Close()

	var records []*CatalogRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("repo listAll scan: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Ping checks database connectivity.
func (r *MySQLRepo) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return r.db.PingContext(ctx)
}

// Close releases all prepared statements.
func (r *MySQLRepo) Close() error {
	for _, s := range []*sql.Stmt{r.stmtUpsert, r.stmtTags, r.stmtDelete, r.stmtGetByName} {
		if s != nil {
			s.Close()
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*CatalogRecord, error) {
	rec := &CatalogRecord{}
	var tagsJSON, metaJSON []byte
	err := row.Scan(&rec.Name, &rec.FileType, &rec.Size, &rec.Version, &rec.Hash, &rec.MimeType,
		&tagsJSON, &rec.Encrypted, &rec.UploadedAt, &rec.ModifiedAt, &metaJSON)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tagsJSON, &rec.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &rec.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return rec, nil
}

// DSNConfig parses a DSN and forces the options the repository relies on.
func DSNConfig(dsn string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true // UpdateTags relies on matched, not changed, rows
	if cfg.Loc == nil {
		cfg.Loc = time.UTC
	}
	return cfg, nil
}

// Open opens a pooled MySQL handle for dsn and verifies connectivity.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := DSNConfig(dsn)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)

	// Connection pool tuning.
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
