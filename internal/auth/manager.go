package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/ghostpost/ghostpost/internal/browser"
	"github.com/ghostpost/ghostpost/internal/types"
)

// ErrNotAuthenticated is returned when the login wait ends without a session
var ErrNotAuthenticated = errors.New("not authenticated")

const (
	loginPollInterval = 2 * time.Second
	loginTimeout      = 300 * time.Second
	selectorProbe     = 2 * time.Second
)

// Prompter asks the operator to confirm the login once the automatic wait expired
type Prompter interface {
	// Confirm blocks until the operator answers. It returns false when no
	// operator can be asked.
	Confirm(msg string) bool
}

// TerminalPrompter prompts on stdin when it is an interactive terminal
type TerminalPrompter struct {
	In  *os.File
	Out io.Writer
}

func (p TerminalPrompter) Confirm(msg string) bool {
	if p.In == nil || !term.IsTerminal(int(p.In.Fd())) {
		return false
	}
	fmt.Fprint(p.Out, msg)
	_, err := bufio.NewReader(p.In).ReadString('\n')
	return err == nil
}

// Manager handles the platform session: capture by manual login, restore by
// cookie injection
type Manager struct {
	log      logrus.FieldLogger
	prompter Prompter

	pollInterval time.Duration
	loginTimeout time.Duration
}

// NewManager creates a new auth manager
func NewManager(log logrus.FieldLogger, prompter Prompter) *Manager {
	return &Manager{
		log:          log,
		prompter:     prompter,
		pollInterval: loginPollInterval,
		loginTimeout: loginTimeout,
	}
}

// Capture opens the login page in sess and waits for the operator to log in
// manually, then writes every browser cookie to store
func (m *Manager) Capture(ctx context.Context, sess *browser.Session, site types.Site, store *CookieStore) error {
	if err := sess.Run(chromedp.Navigate(site.LoginURL)); err != nil {
		return fmt.Errorf("failed to navigate to login page: %w", err)
	}

	m.log.Info("Log in manually in the browser window (password, 2FA...). Waiting for the dashboard.")

	if err := m.waitForLogin(ctx, sess, site); err != nil {
		if !errors.Is(err, ErrNotAuthenticated) {
			return err
		}
		m.log.Warn("Still not logged in after the wait. Finish logging in without closing the window.")
		if !m.prompter.Confirm("Press Enter once you are logged in to check again... ") {
			return fmt.Errorf("login failed: %w", err)
		}
		if !m.IsLoggedIn(sess, site) {
			return fmt.Errorf("login failed: %w", ErrNotAuthenticated)
		}
	}

	cookies, err := extractCookies(sess)
	if err != nil {
		return fmt.Errorf("failed to extract cookies: %w", err)
	}

	if err := store.Save(FromNetwork(cookies)); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}

	m.log.WithFields(logrus.Fields{"path": store.Path(), "count": len(cookies)}).Info("Session cookies saved")
	return nil
}

// waitForLogin polls until the user has successfully logged in
func (m *Manager) waitForLogin(ctx context.Context, sess *browser.Session, site types.Site) error {
	timeout := time.After(m.loginTimeout)
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			return ErrNotAuthenticated
		case <-ticker.C:
			if m.IsLoggedIn(sess, site) {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// IsLoggedIn checks for the dashboard URL, then for an element only rendered
// after login
func (m *Manager) IsLoggedIn(sess *browser.Session, site types.Site) bool {
	var url string
	if err := sess.Run(chromedp.Location(&url)); err == nil && strings.HasPrefix(url, site.DashboardPrefix) {
		return true
	}

	if site.LoggedInSelector == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(sess.Context(), selectorProbe)
	defer cancel()
	return chromedp.Run(ctx, chromedp.WaitReady(site.LoggedInSelector, chromedp.ByQuery)) == nil
}

// Inject restores a captured session into sess. The browser must be on the
// site's domain before Network.setCookie accepts the cookies. A missing cookie
// file is not an error: the session simply stays logged out.
func (m *Manager) Inject(sess *browser.Session, site types.Site, store *CookieStore) error {
	cookies, err := store.Load()
	if err != nil {
		if os.IsNotExist(err) {
			m.log.WithField("path", store.Path()).Warn("Cookie file not found, skipping injection")
			return nil
		}
		return fmt.Errorf("failed to load cookies: %w", err)
	}

	err = sess.Run(
		chromedp.Navigate(site.RootURL),
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, c := range cookies {
				if err := SetCookieParams(c).Do(ctx); err != nil {
					return fmt.Errorf("cookie %s: %w", c.Name, err)
				}
			}
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to inject cookies: %w", err)
	}

	m.log.WithFields(logrus.Fields{"path": store.Path(), "count": len(cookies)}).Info("Cookies injected")
	return nil
}

// Check injects the stored session and opens the dashboard to see whether
// the platform still accepts it
func (m *Manager) Check(sess *browser.Session, site types.Site, store *CookieStore) (bool, error) {
	if err := m.Inject(sess, site, store); err != nil {
		return false, err
	}
	if err := sess.Run(chromedp.Navigate(site.DashboardPrefix)); err != nil {
		return false, fmt.Errorf("failed to open dashboard: %w", err)
	}
	return m.IsLoggedIn(sess, site), nil
}

// extractCookies gets all cookies from the browser
func extractCookies(sess *browser.Session) ([]*network.Cookie, error) {
	var cookies []*network.Cookie

	err := sess.Run(
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = storage.GetCookies().Do(ctx)
			return err
		}),
	)

	return cookies, err
}
