// Package loader reads the text to analyze from local files or web pages.
package loader

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// MaxTextBytes bounds how much text a loader returns.
const MaxTextBytes = 10 << 20

// ErrTooLarge is returned when a source exceeds MaxTextBytes.
var ErrTooLarge = errors.New("source exceeds size limit")

// TextLoader returns the plain text of a source. Implementations may load
// files from disk, web pages or other sources.
type TextLoader interface {
	GetText(ctx context.Context, source string) ([]byte, error)
}

// IsURL reports whether source is an absolute http or https URL.
func IsURL(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Router sends URLs to Web and everything else to Files.
type Router struct {
	Files TextLoader
	Web   TextLoader
}

// GetText loads source with the matching loader.
//
// Example:
//
//	text, err := router.GetText(ctx, "https://example.org/essay")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(string(text))
func (r Router) GetText(ctx context.Context, source string) ([]byte, error) {
	source = strings.TrimSpace(source)
	if IsURL(source) {
		if r.Web == nil {
			return nil, errors.New("no web loader configured")
		}
		return r.Web.GetText(ctx, source)
	}
	if r.Files == nil {
		return nil, errors.New("no file loader configured")
	}
	return r.Files.GetText(ctx, source)
}
