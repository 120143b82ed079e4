package azureopenai

import (
	"context"
	"fmt"
	"strings"

	"github.com/unpulse/sg-report-tracker/internal/core/domain"
)

// maxClassifierTextChars bounds the report body text included in a
// classification prompt.
const maxClassifierTextChars = 4000

// Classifier attributes a report series to responsible Secretariat entities.
// The output schema constrains the entity field to the loaded vocabulary, so
// a name outside it is a schema violation, not a value to coerce.
type Classifier struct {
	client *Client
	vocab  *domain.EntityVocabulary
}

func NewClassifier(client *Client, vocab *domain.EntityVocabulary) *Classifier {
	return &Classifier{client: client, vocab: vocab}
}

type classifierOutput struct {
	Entities []struct {
		Entity     string `json:"entity"`
		Confidence string `json:"confidence"`
		Reasoning  string `json:"reasoning"`
	} `json:"entities"`
}

func (c *Classifier) ClassifyReport(ctx context.Context, report domain.ReportSummary) ([]domain.EntityGuess, error) {
	var output classifierOutput
	_, err := c.client.chatStructured(ctx,
		classifierSystemPrompt(c.vocab),
		classifierUserPrompt(report),
		"entity_attribution",
		c.classifierSchema(),
		&output,
		"classify",
	)
	if err != nil {
		return nil, err
	}

	guesses := make([]domain.EntityGuess, 0, len(output.Entities))
	for _, e := range output.Entities {
		code := domain.EntityCode(e.Entity)
		if !c.vocab.Contains(code) {
			return nil, domain.WrapError(domain.ErrInvalidEntity, "classify report",
				fmt.Errorf("model returned %q", e.Entity))
		}
		guesses = append(guesses, domain.EntityGuess{
			Entity:     code,
			Confidence: domain.ConfidenceBucket(e.Confidence),
			Reasoning:  e.Reasoning,
		})
	}
	return guesses, nil
}

func (c *Classifier) classifierSchema() map[string]any {
	codes := c.vocab.Codes()
	enum := make([]string, len(codes))
	for i, code := range codes {
		enum[i] = string(code)
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"entities": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"entity": map[string]any{
							"type": "string",
							"enum": enum,
						},
						"confidence": map[string]any{
							"type": "string",
							"enum": []string{"high", "medium", "low"},
						},
						"reasoning": map[string]any{
							"type": "string",
						},
					},
					"required":             []string{"entity", "confidence", "reasoning"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"entities"},
		"additionalProperties": false,
	}
}

func classifierSystemPrompt(vocab *domain.EntityVocabulary) string {
	var b strings.Builder
	b.WriteString("You attribute United Nations Secretary-General reports to the Secretariat entity responsible for drafting them. ")
	b.WriteString("Choose only from the reference list below. Usually one entity is responsible; rarely two or three share a report.\n")
	b.WriteString(vocab.PromptReference())
	return b.String()
}

func classifierUserPrompt(report domain.ReportSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", report.ProperTitle)
	fmt.Fprintf(&b, "Symbol: %s\n", report.Symbol)
	if report.UNBody != "" {
		fmt.Fprintf(&b, "Issuing body: %s\n", report.UNBody)
	}
	if report.DateYear != nil {
		fmt.Fprintf(&b, "Year: %d\n", *report.DateYear)
	}
	if len(report.SubjectTerms) > 0 {
		fmt.Fprintf(&b, "Subjects: %s\n", strings.Join(report.SubjectTerms, "; "))
	}
	if report.Text != "" {
		text := report.Text
		if len(text) > maxClassifierTextChars {
			text = text[:maxClassifierTextChars]
		}
		fmt.Fprintf(&b, "Opening text:\n%s\n", text)
	}
	return b.String()
}
