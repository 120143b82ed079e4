package cleaning

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/unpulse/sg-report-tracker/internal/core/domain"
)

// Semantic field names referenced by pipeline stages.
const (
	fieldSymbol = "symbol"
)

// record is the in-memory batch representation every pipeline stage takes
// and returns.
type record struct {
	fields map[string]domain.FieldValue
	raw    json.RawMessage
}

// Cleaner transforms raw catalog records into canonical documents. Stages
// run in a fixed order; each stage's output is the next stage's input.
type Cleaner struct {
	schema *Schema
	logger *slog.Logger
	strict bool
}

func NewCleaner(schema *Schema, logger *slog.Logger, strict bool) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{schema: schema, logger: logger, strict: strict}
}

// BatchReport summarizes what happened to a cleaned batch.
type BatchReport struct {
	Input           int
	Exploded        int
	SkippedNoSymbol int
	Deduplicated    int
	Output          int
}

// Clean runs the full normalization pipeline over one batch. The category
// override, when set, wins over symbol- and resource-type-based inference.
func (c *Cleaner) Clean(records []domain.RawRecord, override domain.DocumentCategory) ([]domain.Document, BatchReport, error) {
	report := BatchReport{Input: len(records)}

	batch := c.rename(records)
	if err := c.enforceShapes(batch); err != nil {
		return nil, report, err
	}

	exploded := explodeSymbols(batch)
	report.Exploded = len(exploded) - len(batch)

	docs := make([]domain.Document, 0, len(exploded))
	for i, rec := range exploded {
		doc, ok, err := c.assemble(rec, override)
		if err != nil {
			return nil, report, fmt.Errorf("row %d: %w", i, err)
		}
		if !ok {
			report.SkippedNoSymbol++
			continue
		}
		docs = append(docs, doc)
	}

	deduped := dedupeBySymbol(docs)
	report.Deduplicated = len(docs) - len(deduped)
	report.Output = len(deduped)

	c.logger.Info("batch_cleaned",
		"input", report.Input,
		"exploded", report.Exploded,
		"skipped_no_symbol", report.SkippedNoSymbol,
		"deduplicated", report.Deduplicated,
		"output", report.Output,
	)
	return deduped, report, nil
}

// rename maps field codes to semantic names and applies the drop list.
// Unrecognized codes pass through unchanged so the shape stage can account
// for them.
func (c *Cleaner) rename(records []domain.RawRecord) []record {
	batch := make([]record, 0, len(records))
	for _, raw := range records {
		fields := make(map[string]domain.FieldValue, len(raw.Fields))
		for code, value := range raw.Fields {
			name := c.schema.SemanticName(code)
			if c.schema.Dropped(name) {
				continue
			}
			fields[name] = value
		}
		batch = append(batch, record{fields: fields, raw: raw.Raw})
	}
	return batch
}

// explodeSymbols duplicates any row whose symbol field still holds more than
// one distinct value, once per symbol in first-occurrence order. All other
// fields, including the raw payload, are copied unchanged.
func explodeSymbols(batch []record) []record {
	out := make([]record, 0, len(batch))
	for _, rec := range batch {
		symbols := rec.fields[fieldSymbol].Values
		if len(symbols) <= 1 {
			out = append(out, rec)
			continue
		}
		for _, symbol := range symbols {
			clone := record{fields: make(map[string]domain.FieldValue, len(rec.fields)), raw: rec.raw}
			for name, value := range rec.fields {
				clone.fields[name] = value
			}
			clone.fields[fieldSymbol] = domain.FieldValue{Values: []string{symbol}}
			out = append(out, clone)
		}
	}
	return out
}

// dedupeBySymbol keeps only the last-seen row per symbol, ordered by the
// position of each retained row's last occurrence.
func dedupeBySymbol(docs []domain.Document) []domain.Document {
	lastIndex := make(map[string]int, len(docs))
	for i, doc := range docs {
		lastIndex[doc.Symbol] = i
	}
	out := make([]domain.Document, 0, len(lastIndex))
	for i, doc := range docs {
		if lastIndex[doc.Symbol] == i {
			out = append(out, doc)
		}
	}
	return out
}

// assemble builds one canonical document from a shaped, exploded row.
// Returns ok=false for rows with no symbol.
func (c *Cleaner) assemble(rec record, override domain.DocumentCategory) (domain.Document, bool, error) {
	symbol, err := takeScalar(rec, fieldSymbol)
	if err != nil {
		return domain.Document{}, false, err
	}
	symbol = CanonicalizeSymbol(symbol)
	if symbol == "" {
		return domain.Document{}, false, nil
	}

	date, err := takeScalar(rec, "date")
	if err != nil {
		return domain.Document{}, false, err
	}
	sessionOrYear, err := takeScalar(rec, "session_or_year")
	if err != nil {
		return domain.Document{}, false, err
	}

	withoutPrefix := StripBodyPrefix(symbol)
	split := SplitSymbol(symbol)
	withoutPrefixSplit := SplitSymbol(withoutPrefix)

	resourceTypes := append(takeList(rec, "resource_type_level2"), takeList(rec, "resource_type_level3")...)

	doc := domain.Document{
		RecordNumber: takeSingle(rec, "record_number"),

		Symbol:                    symbol,
		SymbolSplit:               split,
		SymbolSplitN:              len(split),
		SymbolWithoutPrefix:       withoutPrefix,
		SymbolWithoutPrefixSplit:  withoutPrefixSplit,
		SymbolWithoutPrefixSplitN: len(withoutPrefixSplit),

		SessionOrYear:   sessionOrYear,
		Date:            date,
		DateYear:        ParseYear(date),
		PublicationDate: takeSingle(rec, "publication_date"),

		ProperTitle:  takeSingle(rec, "proper_title"),
		Title:        takeSingle(rec, "title"),
		Subtitle:     takeList(rec, "subtitle"),
		OtherTitle:   takeSingle(rec, "other_title"),
		UniformTitle: takeList(rec, "uniform_title"),

		UNBody:              takeList(rec, "un_body"),
		CorporateNameLevel1: takeList(rec, "corporate_name_level1"),
		CorporateNameLevel2: takeList(rec, "corporate_name_level2"),
		ConferenceName:      takeList(rec, "conference_name"),

		ResourceTypeLevel2: takeList(rec, "resource_type_level2"),
		ResourceTypeLevel3: takeList(rec, "resource_type_level3"),

		SubjectTerms:              takeList(rec, "subject_terms"),
		AgendaDocumentSymbol:      takeList(rec, "agenda_document_symbol"),
		AgendaItemNumber:          takeList(rec, "agenda_item_number"),
		AgendaItemTitle:           takeList(rec, "agenda_item_title"),
		AgendaSubjects:            takeList(rec, "agenda_subjects"),
		RelatedResourceIdentifier: takeList(rec, "related_resource_identifier"),

		Note: takeList(rec, "note"),

		DocumentCategory: InferCategory(override, symbol, resourceTypes),
		IsPart:           IsPart(symbol),

		RawJSON: rec.raw,
	}
	return doc, true, nil
}

// takeScalar reads a field that must be scalar-backed in storage. More than
// one distinct value at this point means a candidate column failed to demote
// for a column the canonical schema cannot store as a list.
func takeScalar(rec record, name string) (string, error) {
	value := rec.fields[name]
	switch len(value.Values) {
	case 0:
		return "", nil
	case 1:
		return value.Values[0], nil
	default:
		return "", domain.WrapError(domain.ErrShapeViolation, "assemble document",
			fmt.Errorf("column %q has %d values where storage requires a scalar", name, len(value.Values)))
	}
}

// takeSingle reads an always-scalar field already validated by shape
// enforcement.
func takeSingle(rec record, name string) string {
	value := rec.fields[name]
	if len(value.Values) == 0 {
		return ""
	}
	return value.Values[0]
}

func takeList(rec record, name string) []string {
	return rec.fields[name].Values
}
