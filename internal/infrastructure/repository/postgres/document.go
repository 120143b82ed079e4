package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/unpulse/sg-report-tracker/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentUpsert = `
INSERT INTO documents (
	symbol, record_number, symbol_split, symbol_split_n,
	symbol_without_prefix, symbol_without_prefix_split, symbol_without_prefix_split_n,
	session_or_year, doc_date, date_year, publication_date,
	proper_title, title, subtitle, other_title, uniform_title,
	un_body, normalized_body, corporate_name_level1, corporate_name_level2, conference_name,
	resource_type_level2, resource_type_level3, subject_terms,
	agenda_document_symbol, agenda_item_number, agenda_item_title, agenda_subjects,
	related_resource_identifier, note, based_on_resolution_symbols,
	document_category, is_part, full_text, word_count, raw_json,
	created_at, updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,
	$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33,$34,$35,$36,$37,$38
)
ON CONFLICT (symbol) DO UPDATE SET
	record_number = EXCLUDED.record_number,
	symbol_split = EXCLUDED.symbol_split,
	symbol_split_n = EXCLUDED.symbol_split_n,
	symbol_without_prefix = EXCLUDED.symbol_without_prefix,
	symbol_without_prefix_split = EXCLUDED.symbol_without_prefix_split,
	symbol_without_prefix_split_n = EXCLUDED.symbol_without_prefix_split_n,
	session_or_year = EXCLUDED.session_or_year,
	doc_date = EXCLUDED.doc_date,
	date_year = EXCLUDED.date_year,
	publication_date = EXCLUDED.publication_date,
	proper_title = EXCLUDED.proper_title,
	title = EXCLUDED.title,
	subtitle = EXCLUDED.subtitle,
	other_title = EXCLUDED.other_title,
	uniform_title = EXCLUDED.uniform_title,
	un_body = EXCLUDED.un_body,
	normalized_body = EXCLUDED.normalized_body,
	corporate_name_level1 = EXCLUDED.corporate_name_level1,
	corporate_name_level2 = EXCLUDED.corporate_name_level2,
	conference_name = EXCLUDED.conference_name,
	resource_type_level2 = EXCLUDED.resource_type_level2,
	resource_type_level3 = EXCLUDED.resource_type_level3,
	subject_terms = EXCLUDED.subject_terms,
	agenda_document_symbol = EXCLUDED.agenda_document_symbol,
	agenda_item_number = EXCLUDED.agenda_item_number,
	agenda_item_title = EXCLUDED.agenda_item_title,
	agenda_subjects = EXCLUDED.agenda_subjects,
	related_resource_identifier = EXCLUDED.related_resource_identifier,
	note = EXCLUDED.note,
	based_on_resolution_symbols = EXCLUDED.based_on_resolution_symbols,
	document_category = EXCLUDED.document_category,
	is_part = EXCLUDED.is_part,
	full_text = CASE WHEN EXCLUDED.full_text <> '' THEN EXCLUDED.full_text ELSE documents.full_text END,
	word_count = CASE WHEN EXCLUDED.full_text <> '' THEN EXCLUDED.word_count ELSE documents.word_count END,
	raw_json = EXCLUDED.raw_json,
	updated_at = EXCLUDED.updated_at
`

// UpsertDocuments writes documents in pages of upsertPageSize per
// transaction. Re-harvesting a symbol without text never clobbers text that
// an earlier run already fetched, and embeddings survive re-ingestion.
func (r *DocumentRepository) UpsertDocuments(ctx context.Context, docs []domain.Document) (int, error) {
	stored := 0
	for start := 0; start < len(docs); start += upsertPageSize {
		end := start + upsertPageSize
		if end > len(docs) {
			end = len(docs)
		}
		if err := r.upsertPage(ctx, docs[start:end]); err != nil {
			return stored, err
		}
		stored += end - start
	}
	return stored, nil
}

func (r *DocumentRepository) upsertPage(ctx context.Context, docs []domain.Document) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	for _, doc := range docs {
		args, err := documentArgs(doc, now)
		if err != nil {
			return fmt.Errorf("document %s: %w", doc.Symbol, err)
		}
		if _, err := tx.ExecContext(ctx, documentUpsert, args...); err != nil {
			return fmt.Errorf("upsert document %s: %w", doc.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert tx: %w", err)
	}
	return nil
}

func documentArgs(doc domain.Document, now time.Time) ([]any, error) {
	lists := [][]string{
		doc.SymbolSplit, doc.SymbolWithoutPrefixSplit, doc.Subtitle, doc.UniformTitle,
		doc.UNBody, doc.CorporateNameLevel1, doc.CorporateNameLevel2, doc.ConferenceName,
		doc.ResourceTypeLevel2, doc.ResourceTypeLevel3, doc.SubjectTerms,
		doc.AgendaDocumentSymbol, doc.AgendaItemNumber, doc.AgendaItemTitle,
		doc.AgendaSubjects, doc.RelatedResourceIdentifier, doc.Note,
		doc.BasedOnResolutionSymbols,
	}
	encoded := make([][]byte, len(lists))
	for i, list := range lists {
		data, err := listJSON(list)
		if err != nil {
			return nil, err
		}
		encoded[i] = data
	}

	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	var rawJSON any
	if len(doc.RawJSON) > 0 {
		rawJSON = []byte(doc.RawJSON)
	}

	return []any{
		doc.Symbol, doc.RecordNumber, encoded[0], doc.SymbolSplitN,
		doc.SymbolWithoutPrefix, encoded[1], doc.SymbolWithoutPrefixSplitN,
		doc.SessionOrYear, doc.Date, nullableInt(doc.DateYear), doc.PublicationDate,
		doc.ProperTitle, doc.Title, encoded[2], doc.OtherTitle, encoded[3],
		encoded[4], doc.NormalizedBody(), encoded[5], encoded[6], encoded[7],
		encoded[8], encoded[9], encoded[10],
		encoded[11], encoded[12], encoded[13], encoded[14],
		encoded[15], encoded[16], encoded[17],
		string(doc.DocumentCategory), doc.IsPart, doc.Text, nullableInt(doc.WordCount), rawJSON,
		createdAt, now,
	}, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func (r *DocumentRepository) GetBySymbol(ctx context.Context, symbol string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT symbol, record_number, symbol_split, symbol_split_n,
	symbol_without_prefix, symbol_without_prefix_split, symbol_without_prefix_split_n,
	session_or_year, doc_date, date_year, publication_date,
	proper_title, title, subtitle, other_title, uniform_title,
	un_body, corporate_name_level1, corporate_name_level2, conference_name,
	resource_type_level2, resource_type_level3, subject_terms,
	agenda_document_symbol, agenda_item_number, agenda_item_title, agenda_subjects,
	related_resource_identifier, note, based_on_resolution_symbols,
	document_category, is_part, full_text, word_count, embedding, raw_json,
	created_at, updated_at
FROM documents
WHERE symbol = $1
`, symbol)

	var doc domain.Document
	var category string
	var dateYear, wordCount sql.NullInt64
	listCols := make([][]byte, 18)
	var embeddingRaw, rawJSON []byte

	err := row.Scan(
		&doc.Symbol, &doc.RecordNumber, &listCols[0], &doc.SymbolSplitN,
		&doc.SymbolWithoutPrefix, &listCols[1], &doc.SymbolWithoutPrefixSplitN,
		&doc.SessionOrYear, &doc.Date, &dateYear, &doc.PublicationDate,
		&doc.ProperTitle, &doc.Title, &listCols[2], &doc.OtherTitle, &listCols[3],
		&listCols[4], &listCols[5], &listCols[6], &listCols[7],
		&listCols[8], &listCols[9], &listCols[10],
		&listCols[11], &listCols[12], &listCols[13], &listCols[14],
		&listCols[15], &listCols[16], &listCols[17],
		&category, &doc.IsPart, &doc.Text, &wordCount, &embeddingRaw, &rawJSON,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("symbol %q", symbol))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	targets := []*[]string{
		&doc.SymbolSplit, &doc.SymbolWithoutPrefixSplit, &doc.Subtitle, &doc.UniformTitle,
		&doc.UNBody, &doc.CorporateNameLevel1, &doc.CorporateNameLevel2, &doc.ConferenceName,
		&doc.ResourceTypeLevel2, &doc.ResourceTypeLevel3, &doc.SubjectTerms,
		&doc.AgendaDocumentSymbol, &doc.AgendaItemNumber, &doc.AgendaItemTitle,
		&doc.AgendaSubjects, &doc.RelatedResourceIdentifier, &doc.Note,
		&doc.BasedOnResolutionSymbols,
	}
	for i, raw := range listCols {
		if err := scanList(raw, targets[i]); err != nil {
			return nil, err
		}
	}

	doc.DocumentCategory = domain.DocumentCategory(category)
	if dateYear.Valid {
		year := int(dateYear.Int64)
		doc.DateYear = &year
	}
	if wordCount.Valid {
		count := int(wordCount.Int64)
		doc.WordCount = &count
	}
	if len(embeddingRaw) > 0 {
		if err := json.Unmarshal(embeddingRaw, &doc.Embedding); err != nil {
			return nil, fmt.Errorf("unmarshal embedding: %w", err)
		}
	}
	if len(rawJSON) > 0 {
		doc.RawJSON = json.RawMessage(rawJSON)
	}
	return &doc, nil
}

func (r *DocumentRepository) ReportTitleIndex(ctx context.Context) ([]domain.ReportTitle, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT symbol, proper_title, subtitle
FROM documents
WHERE document_category = 'report' AND proper_title <> ''
ORDER BY symbol
`)
	if err != nil {
		return nil, fmt.Errorf("query report titles: %w", err)
	}
	defer rows.Close()

	var titles []domain.ReportTitle
	for rows.Next() {
		var title domain.ReportTitle
		var subtitleRaw []byte
		if err := rows.Scan(&title.Symbol, &title.ProperTitle, &subtitleRaw); err != nil {
			return nil, fmt.Errorf("scan report title: %w", err)
		}
		if err := scanList(subtitleRaw, &title.Subtitle); err != nil {
			return nil, err
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

// ReportsToClassify returns one representative row per report series, the
// most recent symbol first within a series. With skipExisting set, series
// that already have an AI suggestion are excluded so reruns only pay for
// new titles.
func (r *DocumentRepository) ReportsToClassify(ctx context.Context, limit int, skipExisting bool) ([]domain.ReportSummary, error) {
	query := `
SELECT DISTINCT ON (d.proper_title)
	d.proper_title, d.symbol, COALESCE(d.un_body->>0, ''), d.date_year, d.subject_terms, d.full_text
FROM documents d
WHERE d.document_category = 'report' AND d.proper_title <> ''
`
	if skipExisting {
		query += `AND NOT EXISTS (
	SELECT 1 FROM entity_suggestions s
	WHERE s.proper_title = d.proper_title AND s.source = 'ai'
)
`
	}
	query += `ORDER BY d.proper_title, d.date_year DESC NULLS LAST, d.symbol`
	if limit > 0 {
		query += fmt.Sprintf("\nLIMIT %d", limit)
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query reports to classify: %w", err)
	}
	defer rows.Close()

	var reports []domain.ReportSummary
	for rows.Next() {
		var report domain.ReportSummary
		var dateYear sql.NullInt64
		var subjectsRaw []byte
		if err := rows.Scan(&report.ProperTitle, &report.Symbol, &report.UNBody, &dateYear, &subjectsRaw, &report.Text); err != nil {
			return nil, fmt.Errorf("scan report summary: %w", err)
		}
		if dateYear.Valid {
			year := int(dateYear.Int64)
			report.DateYear = &year
		}
		if err := scanList(subjectsRaw, &report.SubjectTerms); err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

// SeriesYears aggregates publication years per report series without
// deduplicating: two parts published the same year count twice.
func (r *DocumentRepository) SeriesYears(ctx context.Context) ([]domain.SeriesYears, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT proper_title, normalized_body, jsonb_agg(date_year ORDER BY date_year)
FROM documents
WHERE document_category = 'report' AND proper_title <> '' AND date_year IS NOT NULL
GROUP BY proper_title, normalized_body
ORDER BY proper_title, normalized_body
`)
	if err != nil {
		return nil, fmt.Errorf("query series years: %w", err)
	}
	defer rows.Close()

	var series []domain.SeriesYears
	for rows.Next() {
		var s domain.SeriesYears
		var yearsRaw []byte
		if err := rows.Scan(&s.ProperTitle, &s.NormalizedBody, &yearsRaw); err != nil {
			return nil, fmt.Errorf("scan series years: %w", err)
		}
		if err := json.Unmarshal(yearsRaw, &s.Years); err != nil {
			return nil, fmt.Errorf("unmarshal years: %w", err)
		}
		series = append(series, s)
	}
	return series, rows.Err()
}

func (r *DocumentRepository) ResolutionsForMandates(ctx context.Context, yearMin int) ([]domain.ResolutionText, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT symbol, proper_title, full_text
FROM documents
WHERE document_category = 'resolution' AND full_text <> '' AND date_year >= $1
ORDER BY symbol
`, yearMin)
	if err != nil {
		return nil, fmt.Errorf("query resolutions: %w", err)
	}
	defer rows.Close()

	var resolutions []domain.ResolutionText
	for rows.Next() {
		var res domain.ResolutionText
		if err := rows.Scan(&res.Symbol, &res.ProperTitle, &res.Text); err != nil {
			return nil, fmt.Errorf("scan resolution: %w", err)
		}
		resolutions = append(resolutions, res)
	}
	return resolutions, rows.Err()
}

func (r *DocumentRepository) ReportsWithoutEmbedding(ctx context.Context, limit int) ([]domain.ReportSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT proper_title, symbol, COALESCE(un_body->>0, ''), date_year, subject_terms, full_text
FROM documents
WHERE document_category = 'report' AND embedding IS NULL
ORDER BY symbol
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query reports without embedding: %w", err)
	}
	defer rows.Close()

	var reports []domain.ReportSummary
	for rows.Next() {
		var report domain.ReportSummary
		var dateYear sql.NullInt64
		var subjectsRaw []byte
		if err := rows.Scan(&report.ProperTitle, &report.Symbol, &report.UNBody, &dateYear, &subjectsRaw, &report.Text); err != nil {
			return nil, fmt.Errorf("scan report summary: %w", err)
		}
		if dateYear.Valid {
			year := int(dateYear.Int64)
			report.DateYear = &year
		}
		if err := scanList(subjectsRaw, &report.SubjectTerms); err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func (r *DocumentRepository) SaveEmbedding(ctx context.Context, symbol string, vector []float32) error {
	data, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET embedding = $2, updated_at = $3
WHERE symbol = $1
`, symbol, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save embedding rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "save embedding", fmt.Errorf("symbol %q", symbol))
	}
	return nil
}

// UnfetchedResolutionRefs lists every referenced resolution symbol that has
// no stored document yet.
func (r *DocumentRepository) UnfetchedResolutionRefs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT DISTINCT ref.symbol
FROM documents d,
	jsonb_array_elements_text(d.based_on_resolution_symbols) AS ref(symbol)
WHERE NOT EXISTS (SELECT 1 FROM documents e WHERE e.symbol = ref.symbol)
ORDER BY ref.symbol
`)
	if err != nil {
		return nil, fmt.Errorf("query unfetched refs: %w", err)
	}
	defer rows.Close()

	var refs []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("scan ref: %w", err)
		}
		refs = append(refs, symbol)
	}
	return refs, rows.Err()
}
