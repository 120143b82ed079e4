package library

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/unpulse/sg-report-tracker/internal/core/domain"
	"github.com/unpulse/sg-report-tracker/internal/infrastructure/resilience"
)

// TextFetcher downloads a document's PDF from the catalog and extracts its
// plain text, page by page.
type TextFetcher struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func NewTextFetcher(baseURL string, executor *resilience.Executor) *TextFetcher {
	return &TextFetcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

func (f *TextFetcher) FetchText(ctx context.Context, symbol string) (string, error) {
	raw, err := f.download(ctx, symbol)
	if err != nil {
		return "", err
	}
	text, err := extractText(raw)
	if err != nil {
		return "", fmt.Errorf("extract text for %s: %w", symbol, err)
	}
	return text, nil
}

func (f *TextFetcher) download(ctx context.Context, symbol string) ([]byte, error) {
	var raw []byte
	call := func(ctx context.Context) error {
		var err error
		raw, err = f.doDownload(ctx, symbol)
		return err
	}
	var err error
	if f.executor != nil {
		err = f.executor.Execute(ctx, "library.pdf", call, classifyLibraryError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		var statusErr *HTTPStatusError
		if asStatusError(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "download pdf", fmt.Errorf("symbol %q", symbol))
		}
		return nil, wrapTemporaryIfNeeded("pdf", err)
	}
	return raw, nil
}

func (f *TextFetcher) doDownload(ctx context.Context, symbol string) ([]byte, error) {
	target := f.baseURL + "/api/v1/records/" + url.PathEscape(symbol) + "/pdf"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create pdf request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("library pdf request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &HTTPStatusError{
			Operation:  "pdf",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return io.ReadAll(resp.Body)
}

// extractText pulls plain text out of every page. Pages that fail to decode
// are skipped so one malformed page does not lose the whole document.
func extractText(raw []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(strings.ReplaceAll(text, "\x00", ""))
		if text != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}
