package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrEmptyAsset is returned when a result locator yields no bytes.
var ErrEmptyAsset = errors.New("downloaded asset is empty")

// Downloader fetches finished assets from result locators, authenticating
// with the active API key as the "key" query parameter.
type Downloader struct {
	client *resty.Client
	key    func() string
}

// NewDownloader creates a Downloader. key is consulted on every fetch so a
// credential selected after start-up is picked up.
func NewDownloader(key func() string, timeout time.Duration) *Downloader {
	client := resty.New()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &Downloader{client: client, key: key}
}

// Fetch downloads the asset at uri and returns its bytes and content type.
func (d *Downloader) Fetch(ctx context.Context, uri string) ([]byte, string, error) {
	req := d.client.R().SetContext(ctx)
	if d.key != nil {
		if k := d.key(); k != "" {
			req.SetQueryParam("key", k)
		}
	}

	resp, err := req.Get(uri)
	if err != nil {
		slog.Error("asset download failed", "error", err)
		return nil, "", fmt.Errorf("download asset: %w", err)
	}
	if resp.IsError() {
		slog.Error("asset download non-2xx", "status", resp.StatusCode())
		return nil, "", fmt.Errorf("download asset status %d: %s", resp.StatusCode(), resp.Status())
	}
	body := resp.Body()
	if len(body) == 0 {
		return nil, "", ErrEmptyAsset
	}
	return body, resp.Header().Get("Content-Type"), nil
}
