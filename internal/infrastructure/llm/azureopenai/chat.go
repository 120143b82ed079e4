package azureopenai

import (
	"context"
	"encoding/json"
	"fmt"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type jsonSchemaFormat struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type responseFormat struct {
	Type       string           `json:"type"`
	JSONSchema jsonSchemaFormat `json:"json_schema"`
}

type chatRequest struct {
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// chatStructured issues one chat completion constrained to a strict JSON
// schema and decodes the completion into out. Returns the raw completion
// text for audit storage.
func (c *Client) chatStructured(ctx context.Context, system, user, schemaName string, schema map[string]any, out any, operation string) (json.RawMessage, error) {
	request := chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0,
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: jsonSchemaFormat{
				Name:   schemaName,
				Strict: true,
				Schema: schema,
			},
		},
	}

	var response chatResponse
	path := "/openai/deployments/" + c.chatDeployment + "/chat/completions"
	if err := c.postJSON(ctx, path, request, &response, operation); err != nil {
		return nil, err
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("%s: empty completion", operation)
	}

	content := response.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return nil, fmt.Errorf("parse %s completion: %w", operation, err)
	}
	return json.RawMessage(content), nil
}
