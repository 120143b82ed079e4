package library

import (
	"context"
	"log/slog"

	"github.com/unpulse/sg-report-tracker/internal/core/ports"
	"github.com/unpulse/sg-report-tracker/internal/infrastructure/cache"
)

// CachedTextFetcher serves extracted text from a local cache before hitting
// the catalog. Cache write failures are logged and otherwise ignored.
type CachedTextFetcher struct {
	inner  ports.FullTextFetcher
	store  *cache.Store
	logger *slog.Logger
}

func NewCachedTextFetcher(inner ports.FullTextFetcher, store *cache.Store, logger *slog.Logger) *CachedTextFetcher {
	return &CachedTextFetcher{inner: inner, store: store, logger: logger}
}

func (f *CachedTextFetcher) FetchText(ctx context.Context, symbol string) (string, error) {
	key := "text:" + symbol
	if data, ok, err := f.store.Get(key); err != nil {
		f.logger.Warn("text cache read failed", "symbol", symbol, "error", err)
	} else if ok {
		return string(data), nil
	}

	text, err := f.inner.FetchText(ctx, symbol)
	if err != nil {
		return "", err
	}
	if err := f.store.Put(key, []byte(text)); err != nil {
		f.logger.Warn("text cache write failed", "symbol", symbol, "error", err)
	}
	return text, nil
}
