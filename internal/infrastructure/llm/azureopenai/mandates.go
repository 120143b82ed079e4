package azureopenai

import (
	"context"
	"fmt"

	"github.com/unpulse/sg-report-tracker/internal/core/domain"
)

// MandateExtractor pulls report-mandating operative paragraphs out of
// resolution text. Zero mandates is a normal result; the caller handles
// failures per resolution.
type MandateExtractor struct {
	client *Client
}

func NewMandateExtractor(client *Client) *MandateExtractor {
	return &MandateExtractor{client: client}
}

var frequencyEnum = []string{
	"annual", "biennial", "triennial", "quadrennial", "quinquennial",
	"one-time", "irregular", "unspecified",
}

type mandateOutput struct {
	Mandates []struct {
		VerbatimParagraph  string `json:"verbatim_paragraph"`
		Summary            string `json:"summary"`
		ExplicitFrequency  string `json:"explicit_frequency"`
		ImplicitFrequency  string `json:"implicit_frequency"`
		FrequencyReasoning string `json:"frequency_reasoning"`
	} `json:"mandates"`
}

func (e *MandateExtractor) ExtractMandates(ctx context.Context, resolution domain.ResolutionText) ([]domain.Mandate, error) {
	var output mandateOutput
	raw, err := e.client.chatStructured(ctx,
		mandateSystemPrompt,
		mandateUserPrompt(resolution),
		"mandate_extraction",
		mandateSchema(),
		&output,
		"extract_mandates",
	)
	if err != nil {
		return nil, err
	}

	mandates := make([]domain.Mandate, 0, len(output.Mandates))
	for _, m := range output.Mandates {
		if m.VerbatimParagraph == "" {
			continue
		}
		mandates = append(mandates, domain.Mandate{
			ResolutionSymbol:   resolution.Symbol,
			VerbatimParagraph:  m.VerbatimParagraph,
			Summary:            m.Summary,
			ExplicitFrequency:  m.ExplicitFrequency,
			ImplicitFrequency:  m.ImplicitFrequency,
			FrequencyReasoning: m.FrequencyReasoning,
			RawResponse:        raw,
		})
	}
	return mandates, nil
}

func mandateSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"mandates": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"verbatim_paragraph": map[string]any{
							"type": "string",
						},
						"summary": map[string]any{
							"type": "string",
						},
						"explicit_frequency": map[string]any{
							"type": "string",
							"enum": frequencyEnum,
						},
						"implicit_frequency": map[string]any{
							"type": "string",
							"enum": frequencyEnum,
						},
						"frequency_reasoning": map[string]any{
							"type": "string",
						},
					},
					"required": []string{
						"verbatim_paragraph", "summary", "explicit_frequency",
						"implicit_frequency", "frequency_reasoning",
					},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"mandates"},
		"additionalProperties": false,
	}
}

const mandateSystemPrompt = "You read United Nations resolutions and extract every operative paragraph " +
	"that requests or directs the Secretary-General to produce a report. Quote each paragraph verbatim, " +
	"summarize it in one sentence, and state the reporting frequency the paragraph makes explicit and " +
	"the frequency it implies. Use \"unspecified\" when the paragraph gives no frequency signal. " +
	"Return an empty list when the resolution mandates no report."

func mandateUserPrompt(resolution domain.ResolutionText) string {
	header := fmt.Sprintf("Resolution %s", resolution.Symbol)
	if resolution.ProperTitle != "" {
		header += ": " + resolution.ProperTitle
	}
	return header + "\n\n" + resolution.Text
}
