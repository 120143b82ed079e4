package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type DocumentCategory string

const (
	CategoryReport     DocumentCategory = "report"
	CategoryResolution DocumentCategory = "resolution"
	CategoryLetter     DocumentCategory = "letter"
	CategoryOther      DocumentCategory = "other"

	// CategoryUnset lets the cleaner infer the category from the record itself.
	CategoryUnset DocumentCategory = ""
)

// FieldValue is one bibliographic field as delivered by the library catalog.
// The source serializes each field as either a bare scalar or a list; the
// shape-enforcement stage needs to know which form it arrived in.
type FieldValue struct {
	Values     []string
	FromScalar bool
}

// RawRecord is a catalog record keyed by MARC field code, kept alongside the
// verbatim payload so the original record survives normalization for audit.
type RawRecord struct {
	Fields map[string]FieldValue
	Raw    json.RawMessage
}

// UnmarshalRawRecord parses one catalog search result. Field values may be
// strings, numbers, or lists of either; anything else is a malformed record.
func UnmarshalRawRecord(data []byte) (RawRecord, error) {
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return RawRecord{}, fmt.Errorf("decode raw record: %w", err)
	}

	fields := make(map[string]FieldValue, len(decoded))
	for code, value := range decoded {
		fv, err := coerceFieldValue(value)
		if err != nil {
			return RawRecord{}, fmt.Errorf("field %q: %w", code, err)
		}
		fields[code] = fv
	}

	raw := make(json.RawMessage, len(data))
	copy(raw, data)
	return RawRecord{Fields: fields, Raw: raw}, nil
}

func coerceFieldValue(value any) (FieldValue, error) {
	switch v := value.(type) {
	case nil:
		return FieldValue{}, nil
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			s, err := coerceScalar(item)
			if err != nil {
				return FieldValue{}, err
			}
			items = append(items, s)
		}
		return FieldValue{Values: items}, nil
	default:
		s, err := coerceScalar(v)
		if err != nil {
			return FieldValue{}, err
		}
		return FieldValue{Values: []string{s}, FromScalar: true}, nil
	}
}

func coerceScalar(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v)), nil
		}
		return fmt.Sprintf("%g", v), nil
	case bool:
		return fmt.Sprintf("%t", v), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", value)
	}
}

// Document is the canonical, normalized unit of storage. Symbol is the
// natural key: uppercase, trimmed, interior whitespace preserved.
type Document struct {
	RecordNumber string `json:"record_number,omitempty"`

	Symbol                    string   `json:"symbol"`
	SymbolSplit               []string `json:"symbol_split"`
	SymbolSplitN              int      `json:"symbol_split_n"`
	SymbolWithoutPrefix       string   `json:"symbol_without_prefix"`
	SymbolWithoutPrefixSplit  []string `json:"symbol_without_prefix_split"`
	SymbolWithoutPrefixSplitN int      `json:"symbol_without_prefix_split_n"`

	SessionOrYear   string `json:"session_or_year,omitempty"`
	Date            string `json:"date,omitempty"`
	DateYear        *int   `json:"date_year,omitempty"`
	PublicationDate string `json:"publication_date,omitempty"`

	ProperTitle  string   `json:"proper_title,omitempty"`
	Title        string   `json:"title,omitempty"`
	Subtitle     []string `json:"subtitle,omitempty"`
	OtherTitle   string   `json:"other_title,omitempty"`
	UniformTitle []string `json:"uniform_title,omitempty"`

	UNBody              []string `json:"un_body,omitempty"`
	CorporateNameLevel1 []string `json:"corporate_name_level1,omitempty"`
	CorporateNameLevel2 []string `json:"corporate_name_level2,omitempty"`
	ConferenceName      []string `json:"conference_name,omitempty"`

	ResourceTypeLevel2 []string `json:"resource_type_level2,omitempty"`
	ResourceTypeLevel3 []string `json:"resource_type_level3,omitempty"`

	SubjectTerms              []string `json:"subject_terms,omitempty"`
	AgendaDocumentSymbol      []string `json:"agenda_document_symbol,omitempty"`
	AgendaItemNumber          []string `json:"agenda_item_number,omitempty"`
	AgendaItemTitle           []string `json:"agenda_item_title,omitempty"`
	AgendaSubjects            []string `json:"agenda_subjects,omitempty"`
	RelatedResourceIdentifier []string `json:"related_resource_identifier,omitempty"`

	Note                     []string `json:"note,omitempty"`
	BasedOnResolutionSymbols []string `json:"based_on_resolution_symbols,omitempty"`

	DocumentCategory DocumentCategory `json:"document_category"`
	IsPart           bool             `json:"is_part"`

	Text      string    `json:"text,omitempty"`
	WordCount *int      `json:"word_count,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"`

	RawJSON json.RawMessage `json:"raw_json,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// NormalizedBody is the lowercased issuing body that, with the proper title,
// keys a report series. Documents without a body share the empty key.
func (d Document) NormalizedBody() string {
	if len(d.UNBody) == 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(d.UNBody[0]))
}

// ReportTitle is the slice of a stored document the title matchers need.
type ReportTitle struct {
	Symbol      string
	ProperTitle string
	Subtitle    []string
}

// FullTitle joins the proper title with subtitles for fuzzy comparison; the
// external rosters quote full titles, not the catalog's split form.
func (r ReportTitle) FullTitle() string {
	title := r.ProperTitle
	for _, sub := range r.Subtitle {
		title += " " + sub
	}
	return title
}

// ReportSummary carries everything the AI classifier sees about one series.
type ReportSummary struct {
	ProperTitle  string
	Symbol       string
	UNBody       string
	DateYear     *int
	SubjectTerms []string
	Text         string
}

// SeriesYears is the undeduplicated multiset of publication years for one
// report series, one entry per distinct stored symbol.
type SeriesYears struct {
	ProperTitle    string
	NormalizedBody string
	Years          []int
}
