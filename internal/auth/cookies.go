package auth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"

	"github.com/ghostpost/ghostpost/internal/types"
)

// CookieStore reads and writes a session's cookies as a JSON array
type CookieStore struct {
	path string
}

// NewCookieStore creates a cookie store at the given path
func NewCookieStore(path string) *CookieStore {
	return &CookieStore{path: path}
}

// Path returns the cookie file location
func (cs *CookieStore) Path() string {
	return cs.path
}

// Save persists cookies to disk
func (cs *CookieStore) Save(cookies []types.Cookie) error {
	if err := os.MkdirAll(filepath.Dir(cs.path), 0700); err != nil {
		return err
	}

	if cookies == nil {
		cookies = []types.Cookie{}
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(cs.path, data, 0600)
}

// Load retrieves cookies from disk
func (cs *CookieStore) Load() ([]types.Cookie, error) {
	data, err := os.ReadFile(cs.path)
	if err != nil {
		return nil, err
	}

	var cookies []types.Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, err
	}

	return cookies, nil
}

// FromNetwork converts cookies read from the browser into the export format.
// Session cookies carry no expiry.
func FromNetwork(in []*network.Cookie) []types.Cookie {
	out := make([]types.Cookie, 0, len(in))
	for _, c := range in {
		secure := c.Secure
		rec := types.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   &secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: c.SameSite.String(),
		}
		if !c.Session && c.Expires > 0 {
			exp := c.Expires
			rec.Expiry = &exp
		}
		out = append(out, rec)
	}
	return out
}

// SetCookieParams builds the Network.setCookie command for one exported cookie.
//
// The domain loses its leading dot, the path defaults to "/", and secure
// defaults to true when the export does not say. SameSite is capitalised and
// SameSite=None always forces secure, which browsers require. An expiry becomes
// a float epoch "expires".
func SetCookieParams(c types.Cookie) *network.SetCookieParams {
	path := c.Path
	if path == "" {
		path = "/"
	}
	secure := true
	if c.Secure != nil {
		secure = *c.Secure
	}

	p := network.SetCookie(c.Name, c.Value).
		WithDomain(strings.TrimLeft(c.Domain, ".")).
		WithPath(path).
		WithHTTPOnly(c.HTTPOnly)

	switch normalizeSameSite(c.SameSite) {
	case network.CookieSameSiteNone:
		p = p.WithSameSite(network.CookieSameSiteNone)
		secure = true
	case network.CookieSameSiteLax:
		p = p.WithSameSite(network.CookieSameSiteLax)
	case network.CookieSameSiteStrict:
		p = p.WithSameSite(network.CookieSameSiteStrict)
	}
	p = p.WithSecure(secure)

	if c.Expiry != nil {
		sec := *c.Expiry
		expires := cdp.TimeSinceEpoch(time.Unix(0, int64(sec*float64(time.Second))))
		p = p.WithExpires(&expires)
	}

	return p
}

// normalizeSameSite maps the casings used by browser exports onto CDP values.
// Unknown values yield "" and the attribute is left unset.
func normalizeSameSite(s string) network.CookieSameSite {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	switch strings.ToUpper(s[:1]) + strings.ToLower(s[1:]) {
	case "None", "No_restriction":
		return network.CookieSameSiteNone
	case "Lax":
		return network.CookieSameSiteLax
	case "Strict":
		return network.CookieSameSiteStrict
	}
	return ""
}
