package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/unpulse/sg-report-tracker/internal/core/domain"
)

func newDocumentRepoWithMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &DocumentRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestGetBySymbolReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newDocumentRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT symbol, record_number").
		WithArgs("A/99/999").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetBySymbol(context.Background(), "A/99/999")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertDocumentsRunsInOneTransactionPerPage(t *testing.T) {
	repo, mock, done := newDocumentRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO documents").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO documents").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	year := 2024
	docs := []domain.Document{
		{Symbol: "A/79/287", ProperTitle: "Oceans and the law of the sea", DateYear: &year, DocumentCategory: domain.CategoryReport},
		{Symbol: "A/RES/78/70", DocumentCategory: domain.CategoryResolution},
	}
	stored, err := repo.UpsertDocuments(context.Background(), docs)
	if err != nil {
		t.Fatalf("UpsertDocuments() error = %v", err)
	}
	if stored != 2 {
		t.Fatalf("expected 2 stored, got %d", stored)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveEmbeddingReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newDocumentRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("A/99/999", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveEmbedding(context.Background(), "A/99/999", []float32{0.1, 0.2})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSeriesYearsDecodesAggregatedYears(t *testing.T) {
	repo, mock, done := newDocumentRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"proper_title", "normalized_body", "years"}).
		AddRow("Oceans and the law of the sea", "general assembly", []byte(`[2022,2023,2024]`)).
		AddRow("Children and armed conflict", "security council", []byte(`[2024]`))
	mock.ExpectQuery("SELECT proper_title, normalized_body, jsonb_agg").WillReturnRows(rows)

	series, err := repo.SeriesYears(context.Background())
	if err != nil {
		t.Fatalf("SeriesYears() error = %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("expected 2 series, got %d", len(series))
	}
	if len(series[0].Years) != 3 || series[0].Years[2] != 2024 {
		t.Fatalf("unexpected years: %v", series[0].Years)
	}
	if series[1].NormalizedBody != "security council" {
		t.Fatalf("unexpected body: %s", series[1].NormalizedBody)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReportsToClassifyScansSummaries(t *testing.T) {
	repo, mock, done := newDocumentRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"proper_title", "symbol", "un_body", "date_year", "subject_terms", "full_text"}).
		AddRow("Oceans and the law of the sea", "A/79/287", "General Assembly", 2024, []byte(`["LAW OF THE SEA"]`), "Report text").
		AddRow("Untitled series", "A/79/1", "", nil, []byte(`[]`), "")
	mock.ExpectQuery("SELECT DISTINCT ON \\(d.proper_title\\)").WillReturnRows(rows)

	reports, err := repo.ReportsToClassify(context.Background(), 0, true)
	if err != nil {
		t.Fatalf("ReportsToClassify() error = %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if reports[0].DateYear == nil || *reports[0].DateYear != 2024 {
		t.Fatalf("unexpected year: %v", reports[0].DateYear)
	}
	if len(reports[0].SubjectTerms) != 1 || reports[0].SubjectTerms[0] != "LAW OF THE SEA" {
		t.Fatalf("unexpected subjects: %v", reports[0].SubjectTerms)
	}
	if reports[1].DateYear != nil || reports[1].SubjectTerms != nil {
		t.Fatalf("empty row should scan to zero values: %+v", reports[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUnfetchedResolutionRefs(t *testing.T) {
	repo, mock, done := newDocumentRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"symbol"}).
		AddRow("A/RES/78/70").
		AddRow("S/RES/2231 (2015)")
	mock.ExpectQuery("SELECT DISTINCT ref.symbol").WillReturnRows(rows)

	refs, err := repo.UnfetchedResolutionRefs(context.Background())
	if err != nil {
		t.Fatalf("UnfetchedResolutionRefs() error = %v", err)
	}
	if len(refs) != 2 || refs[1] != "S/RES/2231 (2015)" {
		t.Fatalf("unexpected refs: %v", refs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
