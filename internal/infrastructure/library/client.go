package library

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/unpulse/sg-report-tracker/internal/core/domain"
	"github.com/unpulse/sg-report-tracker/internal/infrastructure/resilience"
)

// Client wraps the bibliographic catalog's record API: paginated field
// searches and single-record lookups, both returning MARC-coded records.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

// Search runs one page of a field-tag query. An empty page signals the end
// of the result set.
func (c *Client) Search(ctx context.Context, query, tag string, skip, limit int) ([]domain.RawRecord, error) {
	params := url.Values{}
	params.Set("search", query)
	params.Set("tag", tag)
	params.Set("skip", strconv.Itoa(skip))
	params.Set("limit", strconv.Itoa(limit))

	var payload struct {
		Records []json.RawMessage `json:"records"`
	}
	if err := c.getJSON(ctx, "/api/v1/records?"+params.Encode(), &payload, "search"); err != nil {
		return nil, err
	}

	records := make([]domain.RawRecord, 0, len(payload.Records))
	for i, raw := range payload.Records {
		rec, err := domain.UnmarshalRawRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("search result %d: %w", skip+i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Lookup fetches the record for one symbol. A missing symbol is
// domain.ErrDocumentNotFound.
func (c *Client) Lookup(ctx context.Context, symbol string) (*domain.RawRecord, error) {
	var payload json.RawMessage
	path := "/api/v1/records/" + url.PathEscape(symbol)
	if err := c.getJSON(ctx, path, &payload, "lookup"); err != nil {
		var statusErr *HTTPStatusError
		if asStatusError(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "lookup record", fmt.Errorf("symbol %q", symbol))
		}
		return nil, err
	}

	rec, err := domain.UnmarshalRawRecord(payload)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", symbol, err)
	}
	return &rec, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any, operation string) error {
	call := func(ctx context.Context) error {
		return c.doGetJSON(ctx, path, out, operation)
	}
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "library."+operation, call, classifyLibraryError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(operation, err)
}

func (c *Client) doGetJSON(ctx context.Context, path string, out any, operation string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("library %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}
