package web

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/OFFIS-RIT/argmap/pkg/loader"

	"codeberg.org/readeck/go-readability/v2"
	"golang.org/x/sync/singleflight"
)

// WebTextLoader fetches web pages and extracts their readable text.
// For HTML pages, it uses readability to extract the main content; other
// text responses are returned as they are.
type WebTextLoader struct {
	client *http.Client

	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewWebTextLoader creates a web loader. A nil client uses
// http.DefaultClient.
func NewWebTextLoader(client *http.Client) *WebTextLoader {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebTextLoader{
		client: client,
		cache:  make(map[string][]byte),
	}
}

// GetText fetches rawURL and returns its readable text. Results are cached
// per URL for the lifetime of the loader.
func (l *WebTextLoader) GetText(ctx context.Context, rawURL string) ([]byte, error) {
	l.cacheMu.RLock()
	if cached, ok := l.cache[rawURL]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(rawURL, func() (any, error) {
		text, err := l.fetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}

		l.cacheMu.Lock()
		l.cache[rawURL] = text
		l.cacheMu.Unlock()

		return text, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (l *WebTextLoader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch url: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, loader.MaxTextBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > loader.MaxTextBytes {
		return nil, fmt.Errorf("%s: %w", rawURL, loader.ErrTooLarge)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") {
		return body, nil
	}

	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	var builder strings.Builder
	if err := article.RenderText(&builder); err != nil {
		return nil, fmt.Errorf("failed to render article text: %w", err)
	}
	return []byte(strings.TrimSpace(builder.String())), nil
}
