package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeCookies(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cookies.txt")
	if err := os.WriteFile(path, []byte(lines), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCurrentValidSession(t *testing.T) {
	expires := time.Now().Add(24 * time.Hour).Unix()
	path := writeCookies(t, fmt.Sprintf(
		"# Netscape HTTP Cookie File\n"+
			".steamcommunity.com\tTRUE\t/\tTRUE\t%d\tsteamLoginSecure\tsecret-token\n"+
			".steamcommunity.com\tTRUE\t/\tTRUE\t0\tsessionid\tabc123\n",
		expires))

	sess, err := NewCookieFileProvider(path, "76561198000000001").Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if sess.SteamID64 != "76561198000000001" {
		t.Errorf("steam id = %q", sess.SteamID64)
	}
	if len(sess.Cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(sess.Cookies))
	}
	login := sess.Cookies[0]
	if login.Name != "steamLoginSecure" || login.Value != "secret-token" || !login.Secure {
		t.Errorf("login cookie parsed wrong: %+v", login)
	}
}

func TestCurrentExpiredCookie(t *testing.T) {
	expired := time.Now().Add(-time.Hour).Unix()
	path := writeCookies(t, fmt.Sprintf(
		".steamcommunity.com\tTRUE\t/\tTRUE\t%d\tsteamLoginSecure\tsecret-token\n", expired))

	_, err := NewCookieFileProvider(path, "1").Current()
	if !errors.Is(err, ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired, got %v", err)
	}
}

func TestCurrentMissingLoginCookie(t *testing.T) {
	path := writeCookies(t, ".steamcommunity.com\tTRUE\t/\tTRUE\t0\tsessionid\tabc\n")
	_, err := NewCookieFileProvider(path, "1").Current()
	if !errors.Is(err, ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired, got %v", err)
	}
}

func TestCurrentMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.txt")
	_, err := NewCookieFileProvider(path, "1").Current()
	if !errors.Is(err, ErrSessionExpired) {
		t.Errorf("missing cookie file should report ErrSessionExpired, got %v", err)
	}
}

// Session cookies carry expiry 0 and never count as expired.
func TestCurrentSessionCookie(t *testing.T) {
	path := writeCookies(t, ".steamcommunity.com\tTRUE\t/\tTRUE\t0\tsteamLoginSecure\ttok\n")
	if _, err := NewCookieFileProvider(path, "1").Current(); err != nil {
		t.Errorf("zero-expiry login cookie should be valid, got %v", err)
	}
}

func TestLoadNetscapeCookiesSkipsGarbage(t *testing.T) {
	path := writeCookies(t,
		"# comment\n"+
			"\n"+
			"not a cookie line\n"+
			".steamcommunity.com\tTRUE\t/\tFALSE\t0\ttimezoneOffset\t7200,0\n")
	cookies, err := loadNetscapeCookies(path)
	if err != nil {
		t.Fatalf("loadNetscapeCookies: %v", err)
	}
	if len(cookies) != 1 || cookies[0].Name != "timezoneOffset" {
		t.Errorf("expected only the valid line, got %+v", cookies)
	}
	if cookies[0].Secure {
		t.Error("FALSE secure flag should parse as insecure")
	}
}
