package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostpost/ghostpost/internal/types"
)

func boolPtr(b bool) *bool { return &b }
func floatPtr(f float64) *float64 { return &f }

func TestSetCookieParams_LaxWithoutSecure(t *testing.T) {
	p := SetCookieParams(types.Cookie{
		Name:     "pfg",
		Value:    "abc",
		Domain:   ".tumblr.com",
		SameSite: "lax",
	})

	assert.Equal(t, "pfg", p.Name)
	assert.Equal(t, "abc", p.Value)
	assert.Equal(t, network.CookieSameSiteLax, p.SameSite)
	assert.Equal(t, "tumblr.com", p.Domain)
	assert.Equal(t, "/", p.Path)
	assert.True(t, p.Secure, "secure defaults to true when absent")
	assert.Nil(t, p.Expires)
}

func TestSetCookieParams_NoneForcesSecure(t *testing.T) {
	for _, ss := range []string{"none", "None", "NONE", "no_restriction"} {
		p := SetCookieParams(types.Cookie{Name: "sid", Value: "1", SameSite: ss, Secure: boolPtr(false)})
		assert.Equal(t, network.CookieSameSiteNone, p.SameSite, ss)
		assert.True(t, p.Secure, ss)
	}
}

func TestSetCookieParams_KeepsExplicitInsecureWithoutNone(t *testing.T) {
	p := SetCookieParams(types.Cookie{Name: "a", Value: "b", SameSite: "STRICT", Secure: boolPtr(false), HTTPOnly: true, Path: "/x"})
	assert.Equal(t, network.CookieSameSiteStrict, p.SameSite)
	assert.False(t, p.Secure)
	assert.True(t, p.HTTPOnly)
	assert.Equal(t, "/x", p.Path)
}

func TestSetCookieParams_UnknownSameSiteLeftUnset(t *testing.T) {
	p := SetCookieParams(types.Cookie{Name: "a", Value: "b", SameSite: "unspecified"})
	assert.Equal(t, network.CookieSameSite(""), p.SameSite)
}

func TestSetCookieParams_ExpiryBecomesExpires(t *testing.T) {
	p := SetCookieParams(types.Cookie{Name: "a", Value: "b", Expiry: floatPtr(1767225600)})
	require.NotNil(t, p.Expires)
	assert.Equal(t, int64(1767225600), time.Time(*p.Expires).Unix())
}

func TestFromNetwork(t *testing.T) {
	in := []*network.Cookie{
		{Name: "persist", Value: "1", Domain: ".tumblr.com", Path: "/", Expires: 1767225600, Secure: true, SameSite: network.CookieSameSiteLax},
		{Name: "session", Value: "2", Domain: "www.tumblr.com", Path: "/", Expires: -1, Session: true, HTTPOnly: true},
	}

	out := FromNetwork(in)
	require.Len(t, out, 2)

	assert.Equal(t, "persist", out[0].Name)
	assert.Equal(t, "Lax", out[0].SameSite)
	require.NotNil(t, out[0].Secure)
	assert.True(t, *out[0].Secure)
	require.NotNil(t, out[0].Expiry)
	assert.Equal(t, 1767225600.0, *out[0].Expiry)

	assert.Nil(t, out[1].Expiry)
	assert.True(t, out[1].HTTPOnly)
}

func TestCookieStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies", "tumblr_ghost01.json")
	cs := NewCookieStore(path)

	cookies := []types.Cookie{{Name: "a", Value: "b", Domain: ".tumblr.com", Secure: boolPtr(true), SameSite: "None", Expiry: floatPtr(10)}}
	require.NoError(t, cs.Save(cookies))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := cs.Load()
	require.NoError(t, err)
	assert.Equal(t, cookies, loaded)
}

func TestCookieStore_ReadsBrowserExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	export := `[{"name":"sid","value":"v","domain":".tumblr.com","path":"/","secure":false,"httpOnly":true,"sameSite":"Lax","expiry":1767225600}]`
	require.NoError(t, os.WriteFile(path, []byte(export), 0600))

	loaded, err := NewCookieStore(path).Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.False(t, *loaded[0].Secure)
	assert.Equal(t, 1767225600.0, *loaded[0].Expiry)

	p := SetCookieParams(loaded[0])
	assert.False(t, p.Secure)
	assert.Equal(t, network.CookieSameSiteLax, p.SameSite)
}

func TestCookieStore_MissingFile(t *testing.T) {
	_, err := NewCookieStore(filepath.Join(t.TempDir(), "nope.json")).Load()
	assert.True(t, os.IsNotExist(err))
}
