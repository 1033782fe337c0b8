package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homescreen/internal/domain"
	"homescreen/internal/sink"
)

// chromePath returns a local Chrome binary or skips the test
func chromePath(t *testing.T) string {
	t.Helper()
	for _, name := range []string{"headless-shell", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	t.Skip("no Chrome binary found")
	return ""
}

func newTestBrowser(t *testing.T) *Browser {
	t.Helper()
	b := New(Options{Headless: true, Timeout: 15 * time.Second, ExecPath: chromePath(t)}, log.New(io.Discard))
	t.Cleanup(b.Close)
	return b
}

// rerenderingPage overwrites the title shortly after load, like a host
// framework finishing its own render
const rerenderingPage = `<!DOCTYPE html>
<html><head><title>Loading</title></head>
<body>
<script>
setTimeout(function () { document.title = "Streamlit"; }, %d);
</script>
</body></html>`

func TestPinRestoresTitleAfterRerender(t *testing.T) {
	b := newTestBrowser(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, rerenderingPage, 100)
	}))
	defer srv.Close()

	id := domain.DefaultPageIdentity()
	result, err := b.Pin(context.Background(), srv.URL, id, 500*time.Millisecond)
	require.NoError(t, err)

	assert.NoError(t, result.Initial)
	assert.NoError(t, result.Deferred)
	assert.Equal(t, id.Title(), result.Title)
}

func TestTabSinkIsIdempotent(t *testing.T) {
	b := newTestBrowser(t)
	require.NoError(t, b.start())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, `<!DOCTYPE html><html><head></head><body></body></html>`)
	}))
	defer srv.Close()

	tabCtx, cancel := chromedp.NewContext(b.ctx)
	defer cancel()
	require.NoError(t, chromedp.Run(tabCtx, chromedp.Navigate(srv.URL)))

	id := domain.DefaultPageIdentity()
	tab := NewTabSink(tabCtx, log.New(io.Discard))
	for i := 0; i < 2; i++ {
		require.NoError(t, sink.Apply(context.Background(), tab, id))
	}

	var counts struct {
		Icons int    `json:"icons"`
		Metas int    `json:"metas"`
		Href  string `json:"href"`
		Title string `json:"title"`
	}
	err := chromedp.Run(tabCtx, chromedp.Evaluate(`({
		icons: document.head.querySelectorAll('link[rel="apple-touch-icon"]').length,
		metas: document.head.querySelectorAll('meta[name="apple-mobile-web-app-title"]').length,
		href: document.head.querySelector('link[rel="apple-touch-icon"]').getAttribute('href'),
		title: document.title
	})`, &counts))
	require.NoError(t, err)

	assert.Equal(t, 1, counts.Icons)
	assert.Equal(t, 1, counts.Metas)
	assert.Equal(t, id.IconURL(), counts.Href)
	assert.Equal(t, id.Title(), counts.Title)
}

func TestTabSinkHonorsCancelledContext(t *testing.T) {
	tab := NewTabSink(context.Background(), log.New(io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tab.SetTitle(ctx, "ignored")
	assert.ErrorIs(t, err, context.Canceled)
}
