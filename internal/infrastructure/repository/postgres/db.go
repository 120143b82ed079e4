package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// upsertPageSize bounds one transaction of a bulk upsert.
const upsertPageSize = 100

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema creates every table the pipeline writes. Safe to run from
// concurrent worker startups.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across ingest/derive/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	symbol TEXT PRIMARY KEY,
	record_number TEXT,
	symbol_split JSONB NOT NULL DEFAULT '[]'::jsonb,
	symbol_split_n INTEGER NOT NULL DEFAULT 0,
	symbol_without_prefix TEXT,
	symbol_without_prefix_split JSONB NOT NULL DEFAULT '[]'::jsonb,
	symbol_without_prefix_split_n INTEGER NOT NULL DEFAULT 0,
	session_or_year TEXT,
	doc_date TEXT,
	date_year INTEGER,
	publication_date TEXT,
	proper_title TEXT,
	title TEXT,
	subtitle JSONB NOT NULL DEFAULT '[]'::jsonb,
	other_title TEXT,
	uniform_title JSONB NOT NULL DEFAULT '[]'::jsonb,
	un_body JSONB NOT NULL DEFAULT '[]'::jsonb,
	normalized_body TEXT NOT NULL DEFAULT '',
	corporate_name_level1 JSONB NOT NULL DEFAULT '[]'::jsonb,
	corporate_name_level2 JSONB NOT NULL DEFAULT '[]'::jsonb,
	conference_name JSONB NOT NULL DEFAULT '[]'::jsonb,
	resource_type_level2 JSONB NOT NULL DEFAULT '[]'::jsonb,
	resource_type_level3 JSONB NOT NULL DEFAULT '[]'::jsonb,
	subject_terms JSONB NOT NULL DEFAULT '[]'::jsonb,
	agenda_document_symbol JSONB NOT NULL DEFAULT '[]'::jsonb,
	agenda_item_number JSONB NOT NULL DEFAULT '[]'::jsonb,
	agenda_item_title JSONB NOT NULL DEFAULT '[]'::jsonb,
	agenda_subjects JSONB NOT NULL DEFAULT '[]'::jsonb,
	related_resource_identifier JSONB NOT NULL DEFAULT '[]'::jsonb,
	note JSONB NOT NULL DEFAULT '[]'::jsonb,
	based_on_resolution_symbols JSONB NOT NULL DEFAULT '[]'::jsonb,
	document_category TEXT NOT NULL,
	is_part BOOLEAN NOT NULL DEFAULT FALSE,
	full_text TEXT NOT NULL DEFAULT '',
	word_count INTEGER,
	embedding JSONB,
	raw_json JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_category ON documents(document_category);
CREATE INDEX IF NOT EXISTS idx_documents_proper_title ON documents(proper_title);
CREATE INDEX IF NOT EXISTS idx_documents_date_year ON documents(date_year);

CREATE TABLE IF NOT EXISTS entity_suggestions (
	proper_title TEXT NOT NULL,
	entity TEXT NOT NULL,
	source TEXT NOT NULL,
	confidence_score DOUBLE PRECISION,
	match_details JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (proper_title, entity, source)
);

CREATE TABLE IF NOT EXISTS frequency_estimates (
	proper_title TEXT NOT NULL,
	normalized_body TEXT NOT NULL,
	calculated_frequency TEXT NOT NULL,
	gap_history JSONB NOT NULL DEFAULT '[]'::jsonb,
	year_count INTEGER NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (proper_title, normalized_body)
);

CREATE TABLE IF NOT EXISTS mandates (
	resolution_symbol TEXT NOT NULL,
	paragraph_hash TEXT NOT NULL,
	verbatim_paragraph TEXT NOT NULL,
	summary TEXT NOT NULL,
	explicit_frequency TEXT NOT NULL,
	implicit_frequency TEXT NOT NULL,
	frequency_reasoning TEXT NOT NULL,
	raw_response JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (resolution_symbol, paragraph_hash)
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// listJSON serializes a string slice for a JSONB column, nil as [].
func listJSON(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("marshal list column: %w", err)
	}
	return data, nil
}

func scanList(raw []byte, out *[]string) error {
	if len(raw) == 0 {
		*out = nil
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal list column: %w", err)
	}
	if len(*out) == 0 {
		*out = nil
	}
	return nil
}
