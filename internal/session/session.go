// Package session supplies the authenticated marketplace session the poller
// depends on. Logging in is somebody else's job (a browser flow writes the
// cookie file); this package only answers "is the session still usable" and
// hands out the cookies.
package session

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrSessionExpired signals that polling must suspend until the operator
// re-authenticates externally.
var ErrSessionExpired = errors.New("session expired, re-authentication required")

// Session is an authenticated handle: the account id plus the cookies that
// back it.
type Session struct {
	SteamID64 string
	Cookies   []*http.Cookie
}

// Provider yields the current session or ErrSessionExpired.
type Provider interface {
	Current() (*Session, error)
}

// CookieFileProvider reads a Netscape-format cookie file maintained by the
// external login flow. The file is re-read on every call so a refreshed
// login is picked up without restarting the process.
type CookieFileProvider struct {
	path      string
	steamID64 string
}

func NewCookieFileProvider(path, steamID64 string) *CookieFileProvider {
	return &CookieFileProvider{path: path, steamID64: steamID64}
}

// Current loads the cookie file and validates that a login cookie is present
// and unexpired. Missing file, missing login cookie or an expired one all
// report ErrSessionExpired.
func (p *CookieFileProvider) Current() (*Session, error) {
	cookies, err := loadNetscapeCookies(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("read cookie file %s: %w", p.path, err)
	}

	now := time.Now()
	var login *http.Cookie
	for _, c := range cookies {
		if c.Name == "steamLoginSecure" {
			login = c
			break
		}
	}
	if login == nil || login.Value == "" {
		return nil, ErrSessionExpired
	}
	if !login.Expires.IsZero() && login.Expires.Before(now) {
		return nil, ErrSessionExpired
	}

	return &Session{SteamID64: p.steamID64, Cookies: cookies}, nil
}

// loadNetscapeCookies parses the classic tab-separated cookie format:
// domain, include-subdomains, path, secure, expires, name, value.
func loadNetscapeCookies(path string) ([]*http.Cookie, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cookies []*http.Cookie
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			continue
		}
		c := &http.Cookie{
			Domain: fields[0],
			Path:   fields[2],
			Secure: fields[3] == "TRUE",
			Name:   fields[5],
			Value:  fields[6],
		}
		if exp, err := strconv.ParseInt(fields[4], 10, 64); err == nil && exp > 0 {
			c.Expires = time.Unix(exp, 0)
		}
		cookies = append(cookies, c)
	}
	return cookies, scanner.Err()
}
