package cleaning

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/unpulse/sg-report-tracker/internal/core/domain"
)

func newTestCleaner(t *testing.T, strict bool) *Cleaner {
	t.Helper()
	schema, err := LoadSchema()
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	return NewCleaner(schema, slog.New(slog.DiscardHandler), strict)
}

func mustRecord(t *testing.T, js string) domain.RawRecord {
	t.Helper()
	rec, err := domain.UnmarshalRawRecord([]byte(js))
	if err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	return rec
}

func TestCleanHappyPath(t *testing.T) {
	c := newTestCleaner(t, true)
	rec := mustRecord(t, `{
		"191__a": ["A/79/287"],
		"245__a": "Report of the Secretary-General on oceans and the law of the sea",
		"245__b": ["Advance unedited version"],
		"992__a": ["2024-09-05"],
		"981__a": ["General Assembly"],
		"989__b": ["Reports"],
		"500__a": ["Submitted pursuant to General Assembly resolution 78/70"],
		"650__a": ["LAW OF THE SEA", "OCEANS", "LAW OF THE SEA"],
		"260__b": "United Nations"
	}`)

	docs, report, err := c.Clean([]domain.RawRecord{rec}, domain.CategoryUnset)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if report.Output != 1 || len(docs) != 1 {
		t.Fatalf("expected one document, got %d (report %+v)", len(docs), report)
	}

	doc := docs[0]
	if doc.Symbol != "A/79/287" {
		t.Fatalf("symbol = %q", doc.Symbol)
	}
	if doc.SymbolSplitN != 5 || strings.Join(doc.SymbolSplit, "") != "A/79/287" {
		t.Fatalf("symbol split = %v", doc.SymbolSplit)
	}
	if doc.DateYear == nil || *doc.DateYear != 2024 {
		t.Fatalf("date year = %v", doc.DateYear)
	}
	if doc.DocumentCategory != domain.CategoryReport {
		t.Fatalf("category = %q", doc.DocumentCategory)
	}
	if doc.IsPart {
		t.Fatal("unexpected part flag")
	}
	if len(doc.SubjectTerms) != 2 {
		t.Fatalf("subject terms not deduplicated: %v", doc.SubjectTerms)
	}
	if len(doc.RawJSON) == 0 {
		t.Fatal("raw payload not preserved")
	}
}

func TestCleanExplodesMultipleSymbols(t *testing.T) {
	c := newTestCleaner(t, true)
	rec := mustRecord(t, `{
		"191__a": ["A/79/287", "E/2024/55"],
		"245__a": "Shared report",
		"989__b": ["Reports"]
	}`)

	docs, report, err := c.Clean([]domain.RawRecord{rec}, domain.CategoryUnset)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if report.Exploded != 1 {
		t.Fatalf("exploded = %d, want 1", report.Exploded)
	}
	if len(docs) != 2 {
		t.Fatalf("expected two documents, got %d", len(docs))
	}
	if docs[0].Symbol != "A/79/287" || docs[1].Symbol != "E/2024/55" {
		t.Fatalf("symbols = %q, %q", docs[0].Symbol, docs[1].Symbol)
	}
	for _, doc := range docs {
		if doc.ProperTitle != "Shared report" {
			t.Fatalf("title not copied: %q", doc.ProperTitle)
		}
		if len(doc.RawJSON) == 0 {
			t.Fatal("raw payload not copied to exploded row")
		}
	}
}

func TestCleanScalarViolation(t *testing.T) {
	for _, strict := range []bool{true, false} {
		c := newTestCleaner(t, strict)
		rec := mustRecord(t, `{
			"191__a": ["A/79/287"],
			"245__a": ["Title one", "Title two"]
		}`)

		_, _, err := c.Clean([]domain.RawRecord{rec}, domain.CategoryUnset)
		if err == nil {
			t.Fatalf("strict=%v: expected shape violation", strict)
		}
		if !errors.Is(err, domain.ErrShapeViolation) {
			t.Fatalf("strict=%v: error kind = %v", strict, err)
		}
		if !strings.Contains(err.Error(), "proper_title") {
			t.Fatalf("error does not name the column: %v", err)
		}
	}
}

func TestCleanScalarDeduplicatesIdenticalValues(t *testing.T) {
	c := newTestCleaner(t, true)
	rec := mustRecord(t, `{
		"191__a": ["A/79/287"],
		"245__a": ["Same title", "Same title"]
	}`)

	docs, _, err := c.Clean([]domain.RawRecord{rec}, domain.CategoryUnset)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if docs[0].ProperTitle != "Same title" {
		t.Fatalf("title = %q", docs[0].ProperTitle)
	}
}

// cloneBatch deep-copies the mutable field maps so one pass's output can be
// compared against a later pass over the same batch.
func cloneBatch(batch []record) []record {
	out := make([]record, len(batch))
	for i, rec := range batch {
		fields := make(map[string]domain.FieldValue, len(rec.fields))
		for name, value := range rec.fields {
			fields[name] = domain.FieldValue{
				Values:     append([]string(nil), value.Values...),
				FromScalar: value.FromScalar,
			}
		}
		out[i] = record{fields: fields, raw: rec.raw}
	}
	return out
}

func TestEnforceShapesIdempotent(t *testing.T) {
	c := newTestCleaner(t, true)
	batch := c.rename([]domain.RawRecord{
		mustRecord(t, `{
			"191__a": ["A/79/287"],
			"245__a": "Oceans and the law of the sea",
			"650__a": ["LAW OF THE SEA", "OCEANS", "LAW OF THE SEA"],
			"981__a": "General Assembly"
		}`),
		mustRecord(t, `{"191__a": ["A/79/100"], "992__a": ["2024-09-05"]}`),
	})

	if err := c.enforceShapes(batch); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	want := cloneBatch(batch)

	if err := c.enforceShapes(batch); err != nil {
		t.Fatalf("second pass over conformant batch: %v", err)
	}
	if !reflect.DeepEqual(batch, want) {
		t.Fatalf("second pass changed a conformant batch:\n got %+v\nwant %+v", batch, want)
	}
}

func TestCleanCandidateDemotionFailure(t *testing.T) {
	js := `{
		"191__a": ["A/79/287"],
		"610__a": ["UN. Secretariat", "UN. General Assembly"]
	}`

	strict := newTestCleaner(t, true)
	_, _, err := strict.Clean([]domain.RawRecord{mustRecord(t, js)}, domain.CategoryUnset)
	if !errors.Is(err, domain.ErrShapeViolation) {
		t.Fatalf("strict: error = %v", err)
	}

	lenient := newTestCleaner(t, false)
	docs, _, err := lenient.Clean([]domain.RawRecord{mustRecord(t, js)}, domain.CategoryUnset)
	if err != nil {
		t.Fatalf("lenient: %v", err)
	}
	if len(docs[0].CorporateNameLevel2) != 2 {
		t.Fatalf("lenient mode lost values: %v", docs[0].CorporateNameLevel2)
	}
}

func TestCleanUnclassifiedColumn(t *testing.T) {
	js := `{
		"191__a": ["A/79/287"],
		"856__u": "https://example.org"
	}`

	strict := newTestCleaner(t, true)
	_, _, err := strict.Clean([]domain.RawRecord{mustRecord(t, js)}, domain.CategoryUnset)
	if !errors.Is(err, domain.ErrShapeViolation) {
		t.Fatalf("strict: error = %v", err)
	}

	lenient := newTestCleaner(t, false)
	docs, _, err := lenient.Clean([]domain.RawRecord{mustRecord(t, js)}, domain.CategoryUnset)
	if err != nil {
		t.Fatalf("lenient: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected one document, got %d", len(docs))
	}
}

func TestCleanDeduplicatesLastWins(t *testing.T) {
	c := newTestCleaner(t, true)
	first := mustRecord(t, `{"191__a": ["A/79/287"], "245__a": "Stale title"}`)
	other := mustRecord(t, `{"191__a": ["A/79/100"], "245__a": "Unrelated"}`)
	second := mustRecord(t, `{"191__a": ["a/79/287 "], "245__a": "Fresh title"}`)

	docs, report, err := c.Clean([]domain.RawRecord{first, other, second}, domain.CategoryUnset)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if report.Deduplicated != 1 {
		t.Fatalf("deduplicated = %d, want 1", report.Deduplicated)
	}
	if len(docs) != 2 {
		t.Fatalf("expected two documents, got %d", len(docs))
	}
	// Retained rows keep the order of their last occurrence.
	if docs[0].Symbol != "A/79/100" || docs[1].Symbol != "A/79/287" {
		t.Fatalf("order = %q, %q", docs[0].Symbol, docs[1].Symbol)
	}
	if docs[1].ProperTitle != "Fresh title" {
		t.Fatalf("dedupe kept the older row: %q", docs[1].ProperTitle)
	}
}

func TestCleanSkipsRecordsWithoutSymbol(t *testing.T) {
	c := newTestCleaner(t, true)
	noSymbol := mustRecord(t, `{"245__a": "Orphan record"}`)
	ok := mustRecord(t, `{"191__a": ["A/79/287"]}`)

	docs, report, err := c.Clean([]domain.RawRecord{noSymbol, ok}, domain.CategoryUnset)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if report.SkippedNoSymbol != 1 {
		t.Fatalf("skipped = %d, want 1", report.SkippedNoSymbol)
	}
	if len(docs) != 1 || docs[0].Symbol != "A/79/287" {
		t.Fatalf("docs = %v", docs)
	}
}

func TestCleanCategoryOverride(t *testing.T) {
	c := newTestCleaner(t, true)
	rec := mustRecord(t, `{"191__a": ["A/RES/78/70"]}`)

	docs, _, err := c.Clean([]domain.RawRecord{rec}, domain.CategoryResolution)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if docs[0].DocumentCategory != domain.CategoryResolution {
		t.Fatalf("category = %q", docs[0].DocumentCategory)
	}
	if docs[0].SymbolWithoutPrefix != "78/70" {
		t.Fatalf("symbol without prefix = %q", docs[0].SymbolWithoutPrefix)
	}
}
