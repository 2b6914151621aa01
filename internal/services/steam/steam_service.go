package steam

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"steam-sentinel/internal/session"

	"github.com/go-resty/resty/v2"
)

const (
	communityBase = "https://steamcommunity.com"
	userAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
)

// TransportError wraps a network or HTTP failure. Transient: the caller
// skips the item or cycle and retries on the next poll.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// Service fetches inventory and market payloads from the community site. It
// paces market requests with a minimum delay plus jitter and backs off
// exponentially on 429s, since the marketplace rate-limits aggressively.
type Service struct {
	client     *resty.Client
	language   string
	minDelay   time.Duration
	jitter     time.Duration
	maxRetries int

	mu       sync.Mutex
	lastCall time.Time
}

func NewService(language string, minDelay, jitter time.Duration, maxRetries int) *Service {
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("User-Agent", userAgent)

	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Service{
		client:     client,
		language:   language,
		minDelay:   minDelay,
		jitter:     jitter,
		maxRetries: maxRetries,
	}
}

// UseSession installs the cookies of the current session on the client.
// Called once per cycle before any fetch.
func (s *Service) UseSession(sess *session.Session) {
	s.client.Cookies = nil
	s.client.SetCookies(sess.Cookies)
}

// FetchInventory returns the raw inventory payload for one game. A non-JSON
// body means the cookies no longer carry a valid login, reported as
// session.ErrSessionExpired so the caller can suspend polling.
func (s *Service) FetchInventory(ctx context.Context, steamID64 string, appID, contextID int) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/inventory/%s/%d/%d?l=%s&count=2000",
		communityBase, steamID64, appID, contextID, url.QueryEscape(s.language))

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json, text/plain, */*").
		SetHeader("Referer", fmt.Sprintf("%s/profiles/%s/inventory/", communityBase, steamID64)).
		Get(reqURL)
	if err != nil {
		return nil, &TransportError{Op: fmt.Sprintf("fetch inventory appid=%d", appID), Err: err}
	}

	body := resp.Body()
	trimmed := strings.TrimSpace(string(body))
	// The endpoint answers "null" or an HTML login page when the session is gone.
	if !strings.HasPrefix(trimmed, "{") {
		return nil, session.ErrSessionExpired
	}
	if resp.StatusCode() >= 400 {
		return nil, &TransportError{
			Op:  fmt.Sprintf("fetch inventory appid=%d", appID),
			Err: fmt.Errorf("http %d", resp.StatusCode()),
		}
	}
	return body, nil
}

// FetchPriceOverview returns the raw priceoverview JSON for one item type.
func (s *Service) FetchPriceOverview(ctx context.Context, appID, currency int, marketHashName string) ([]byte, error) {
	op := fmt.Sprintf("fetch priceoverview %q", marketHashName)
	return s.marketGet(ctx, op, communityBase+"/market/priceoverview/", map[string]string{
		"appid":            fmt.Sprintf("%d", appID),
		"currency":         fmt.Sprintf("%d", currency),
		"market_hash_name": marketHashName,
	})
}

// FetchListingPage returns the raw HTML of an item's market listing page.
func (s *Service) FetchListingPage(ctx context.Context, appID int, marketHashName string) ([]byte, error) {
	op := fmt.Sprintf("fetch listing page %q", marketHashName)
	reqURL := fmt.Sprintf("%s/market/listings/%d/%s", communityBase, appID, url.PathEscape(marketHashName))
	return s.marketGet(ctx, op, reqURL, nil)
}

// marketGet performs one paced market request with 429 backoff.
func (s *Service) marketGet(ctx context.Context, op, reqURL string, params map[string]string) ([]byte, error) {
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if err := s.waitForRateLimit(ctx); err != nil {
			return nil, err
		}

		req := s.client.R().SetContext(ctx)
		if params != nil {
			req.SetQueryParams(params)
		}
		resp, err := req.Get(reqURL)
		if err != nil {
			return nil, &TransportError{Op: op, Err: err}
		}

		if resp.StatusCode() == 429 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			if backoff > time.Minute {
				backoff = time.Minute
			}
			backoff += time.Duration(rand.Int63n(int64(2 * time.Second)))
			if err := sleepCtx(ctx, backoff); err != nil {
				return nil, err
			}
			continue
		}
		if resp.StatusCode() >= 400 {
			return nil, &TransportError{Op: op, Err: fmt.Errorf("http %d", resp.StatusCode())}
		}
		return resp.Body(), nil
	}
	return nil, &TransportError{Op: op, Err: fmt.Errorf("rate limited after %d attempts", s.maxRetries)}
}

// waitForRateLimit enforces the minimum spacing between market calls, plus a
// little jitter so the request pattern doesn't look mechanical.
func (s *Service) waitForRateLimit(ctx context.Context) error {
	s.mu.Lock()
	now := time.Now()
	wait := s.minDelay - now.Sub(s.lastCall)
	if wait > 0 && s.jitter > 0 {
		wait += time.Duration(rand.Int63n(int64(s.jitter)))
	}
	if wait < 0 {
		wait = 0
	}
	s.lastCall = now.Add(wait)
	s.mu.Unlock()

	if wait == 0 {
		return nil
	}
	return sleepCtx(ctx, wait)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
