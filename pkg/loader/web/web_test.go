package web

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleHTML = `<!DOCTYPE html>
<html><head><title>On exercise</title></head>
<body>
<nav><a href="/">Home</a> <a href="/about">About</a></nav>
<article>
<h1>On exercise</h1>
<p>Regular exercise improves cardiovascular health, strengthens muscles and bones, and lowers the risk of many chronic diseases. Decades of research across many populations point in the same direction.</p>
<p>Therefore everyone should exercise daily. Even short walks add up over weeks and months, and the benefits appear at every age, for people of every fitness level and background.</p>
<p>Critics argue that time is scarce and that daily exercise is unrealistic for shift workers and parents. Yet the evidence suggests that small, consistent habits matter more than long sessions.</p>
</article>
<footer>Copyright notice</footer>
</body></html>`

func TestWebTextLoader_HTML(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, articleHTML)
	}))
	defer srv.Close()

	l := NewWebTextLoader(srv.Client())
	got, err := l.GetText(context.Background(), srv.URL+"/essay")
	require.NoError(t, err)

	text := string(got)
	assert.Contains(t, text, "Therefore everyone should exercise daily.")
	assert.NotContains(t, text, "<p>")

	again, err := l.GetText(context.Background(), srv.URL+"/essay")
	require.NoError(t, err)
	assert.Equal(t, got, again)
	assert.EqualValues(t, 1, hits.Load())
}

func TestWebTextLoader_PlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "Plain argument.")
	}))
	defer srv.Close()

	got, err := NewWebTextLoader(nil).GetText(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Plain argument.", string(got))
}

func TestWebTextLoader_Status(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewWebTextLoader(nil).GetText(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "404"))
}
