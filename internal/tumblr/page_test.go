package tumblr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostpost/ghostpost/internal/browser"
	"github.com/ghostpost/ghostpost/internal/config"
	"github.com/ghostpost/ghostpost/internal/poster"
)

// Editor fixtures, reduced to the markup the selectors look at
var fixtures = map[string]string{
	"/caption": `<html><body>
<div contenteditable="true" id="generic"></div>
<div data-testid="caption-editor"><div contenteditable="true" id="caption"></div></div>
</body></html>`,

	"/iframe-host": `<html><body><p>editor below</p><iframe src="/iframe-editor"></iframe></body></html>`,
	"/iframe-editor": `<html><body><div data-testid="post-form">
<div contenteditable="true" data-placeholder="Go ahead" id="caption"></div>
</div></body></html>`,

	// swallows keystrokes like an editor that ignores synthetic input
	"/stubborn": `<html><body>
<div contenteditable="true" data-placeholder="Go ahead" id="caption"></div>
<script>
const box = document.getElementById('caption');
box.addEventListener('keydown', e => e.preventDefault());
box.addEventListener('beforeinput', e => e.preventDefault());
box.addEventListener('input', () => { window.inputFired = true; });
</script>
</body></html>`,

	"/publish-order": `<html><body><div data-testid="post-form">
<button onclick="window.clicked='text'"><span>Post</span></button>
<button data-testid="post-form-button" onclick="window.clicked='testid'">Go</button>
</div></body></html>`,

	"/publish-text-only": `<html><body><div data-testid="post-form">
<button onclick="window.clicked='publier'"><span>Publier</span></button>
</div></body></html>`,

	"/publish-closes-form": `<html><body><div data-testid="post-form">
<button data-testid="post-form-button"
  onclick="setTimeout(() => document.querySelector('[data-testid=post-form]').remove(), 200)">Post</button>
</div></body></html>`,

	"/publish-without-form": `<html><body>
<button data-testid="post-form-button" onclick="window.clicked='testid'">Post</button>
</body></html>`,

	"/empty": `<html><body><p>nothing here</p></body></html>`,
}

func requireChrome(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("browser test skipped in short mode")
	}
	for _, name := range []string{"headless-shell", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if _, err := exec.LookPath(name); err == nil {
			return
		}
	}
	t.Skip("no Chrome or Chromium installed")
}

// newFixturePage starts a headless browser on the fixture at path
func newFixturePage(t *testing.T, path string) (*Page, *browser.Session) {
	t.Helper()
	requireChrome(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := fixtures[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	sess, err := browser.NewSession(context.Background(), config.BrowserConfig{Headless: true})
	require.NoError(t, err)
	t.Cleanup(sess.Close)

	require.NoError(t, sess.Run(chromedp.Navigate(srv.URL+path)))

	logger, _ := logtest.NewNullLogger()
	page := NewPage(sess, Options{Timeout: 5 * time.Second, Typist: poster.Typist{}}, logger)
	return page, sess
}

func evalString(t *testing.T, sess *browser.Session, js string) string {
	t.Helper()
	var out string
	require.NoError(t, sess.Run(chromedp.Evaluate(js, &out)))
	return out
}

func TestWriteCaption_PrefersMostSpecificBox(t *testing.T) {
	page, sess := newFixturePage(t, "/caption")

	require.NoError(t, page.WriteCaption(context.Background(), "hello"))

	assert.Equal(t, "hello", evalString(t, sess, `document.getElementById('caption').textContent`))
	assert.Equal(t, "", evalString(t, sess, `document.getElementById('generic').textContent`))
}

func TestWriteCaption_FindsBoxInsideEditorFrame(t *testing.T) {
	page, sess := newFixturePage(t, "/iframe-host")

	var loaded bool
	require.NoError(t, sess.Run(chromedp.Poll(
		`(() => { const f = document.querySelector('iframe'); return !!(f && f.contentDocument && f.contentDocument.getElementById('caption')); })()`,
		&loaded, chromedp.WithPollingTimeout(5*time.Second))))

	require.NoError(t, page.WriteCaption(context.Background(), "from the frame"))

	assert.Equal(t, "from the frame",
		evalString(t, sess, `document.querySelector('iframe').contentDocument.getElementById('caption').textContent`))
}

func TestWriteCaption_FallsBackToScriptWhenTypingIsSwallowed(t *testing.T) {
	page, sess := newFixturePage(t, "/stubborn")

	require.NoError(t, page.WriteCaption(context.Background(), "hello"))

	assert.Equal(t, "hello", evalString(t, sess, `document.getElementById('caption').textContent`))
	var fired bool
	require.NoError(t, sess.Run(chromedp.Evaluate(`window.inputFired === true`, &fired)))
	assert.True(t, fired, "input event dispatched for the editor framework")
}

func TestWriteCaption_NoBox(t *testing.T) {
	page, _ := newFixturePage(t, "/empty")

	err := page.WriteCaption(context.Background(), "hello")
	assert.ErrorIs(t, err, poster.ErrCaptionNotFound)
}

func TestPublish_PrefersDataAttributeOverText(t *testing.T) {
	page, sess := newFixturePage(t, "/publish-order")

	require.NoError(t, page.Publish(context.Background()))
	assert.Equal(t, "testid", evalString(t, sess, `window.clicked`))
}

func TestPublish_FallsBackToButtonText(t *testing.T) {
	page, sess := newFixturePage(t, "/publish-text-only")

	require.NoError(t, page.Publish(context.Background()))
	assert.Equal(t, "publier", evalString(t, sess, `window.clicked`))
}

func TestPublish_NoButton(t *testing.T) {
	page, _ := newFixturePage(t, "/empty")

	assert.ErrorIs(t, page.Publish(context.Background()), poster.ErrPublishNotFound)
}

func TestWaitPublished_FormClosesAfterPublish(t *testing.T) {
	page, _ := newFixturePage(t, "/publish-closes-form")

	require.NoError(t, page.Publish(context.Background()))
	assert.NoError(t, page.WaitPublished(context.Background(), 5*time.Second))
}

func TestWaitPublished_MissingFormDoesNotConfirm(t *testing.T) {
	page, sess := newFixturePage(t, "/publish-without-form")

	require.NoError(t, page.Publish(context.Background()))
	assert.Equal(t, "testid", evalString(t, sess, `window.clicked`))
	assert.Error(t, page.WaitPublished(context.Background(), time.Second))
}
