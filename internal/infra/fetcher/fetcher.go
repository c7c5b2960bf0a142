// Package fetcher retrieves the redemption-code catalog from the remote
// database, falling back through public CORS mirrors when the direct
// fetch fails. The mirrors exist because the upstream database has no
// CORS headers and intermittent availability; any successful hop wins.
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/codeforge-app/codeforge/internal/domain"
)

// DefaultSourceURL is the upstream community code database.
const DefaultSourceURL = "https://db.hashblen.com/codes"

const (
	directTimeout = 10 * time.Second
	mirrorTimeout = 8 * time.Second

	maxBodyBytes = 4 << 20
)

// Mirror is one CORS proxy hop. Wrap rewrites the source URL into the
// proxy's request format; Unwrap strips the proxy's envelope, if any.
type Mirror struct {
	Name   string
	Wrap   func(source string) string
	Unwrap func(body []byte) ([]byte, error)
}

// DefaultMirrors returns the fallback chain in attempt order.
func DefaultMirrors() []Mirror {
	return []Mirror{
		{
			Name: "allorigins",
			Wrap: func(source string) string {
				return "https://api.allorigins.win/get?url=" + url.QueryEscape(source)
			},
			// allorigins wraps the upstream body in a JSON envelope.
			Unwrap: func(body []byte) ([]byte, error) {
				var envelope struct {
					Contents string `json:"contents"`
				}
				if err := json.Unmarshal(body, &envelope); err != nil {
					return nil, fmt.Errorf("allorigins envelope: %w", err)
				}
				if envelope.Contents == "" {
					return nil, fmt.Errorf("allorigins envelope: %w", domain.ErrBadPayload)
				}
				return []byte(envelope.Contents), nil
			},
		},
		{
			Name: "corsproxy",
			Wrap: func(source string) string {
				return "https://corsproxy.io/?url=" + url.QueryEscape(source)
			},
		},
		{
			Name: "codetabs",
			Wrap: func(source string) string {
				return "https://api.codetabs.com/v1/proxy?quest=" + url.QueryEscape(source)
			},
		},
	}
}

// Fetcher pulls the code catalog with mirror fallback.
type Fetcher struct {
	client    *http.Client
	sourceURL string
	mirrors   []Mirror
}

// New creates a fetcher for the given source URL. An empty URL selects
// the default upstream; nil mirrors selects the default chain.
func New(sourceURL string, mirrors []Mirror) *Fetcher {
	if sourceURL == "" {
		sourceURL = DefaultSourceURL
	}
	if mirrors == nil {
		mirrors = DefaultMirrors()
	}
	return &Fetcher{
		client:    &http.Client{},
		sourceURL: sourceURL,
		mirrors:   mirrors,
	}
}

// Fetch tries the direct source, then each mirror in order. Returns the
// catalog and the name of the hop that served it ("direct" or the
// mirror name). Every hop must produce a payload that passes catalog
// validation; an HTML error page or a mangled envelope moves on to the
// next hop.
func (f *Fetcher) Fetch(ctx context.Context) (domain.Catalog, string, error) {
	cat, err := f.fetchOne(ctx, f.sourceURL, nil, directTimeout)
	if err == nil {
		return cat, "direct", nil
	}
	log.Printf("[fetcher] direct fetch failed: %v", err)

	for _, m := range f.mirrors {
		cat, err = f.fetchOne(ctx, m.Wrap(f.sourceURL), m.Unwrap, mirrorTimeout)
		if err == nil {
			log.Printf("[fetcher] served via mirror %s", m.Name)
			return cat, m.Name, nil
		}
		log.Printf("[fetcher] mirror %s failed: %v", m.Name, err)
	}

	return domain.Catalog{}, "", fmt.Errorf("%w: direct and %d mirrors failed", domain.ErrSourceOffline, len(f.mirrors))
}

func (f *Fetcher) fetchOne(ctx context.Context, rawURL string, unwrap func([]byte) ([]byte, error), timeout time.Duration) (domain.Catalog, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Catalog{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("read body: %w", err)
	}

	if unwrap != nil {
		if body, err = unwrap(body); err != nil {
			return domain.Catalog{}, err
		}
	}
	return Parse(body)
}

// Parse decodes and validates a catalog payload. Proxies love to serve
// their own HTML error pages with status 200, so anything that opens
// with an angle bracket is rejected before decoding.
func Parse(body []byte) (domain.Catalog, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return domain.Catalog{}, domain.ErrBadPayload
	}
	if trimmed[0] == '<' {
		return domain.Catalog{}, domain.ErrHTMLResponse
	}

	// Retcode and the game arrays are decoded through pointers so a
	// missing field is distinguishable from an empty one.
	var probe struct {
		Retcode *int                `json:"retcode"`
		Genshin *[]domain.CodeEntry `json:"genshin"`
		HSR     *[]domain.CodeEntry `json:"hsr"`
		ZZZ     *[]domain.CodeEntry `json:"zzz"`

		PreviousUpdate string `json:"previous_update"`
		LatestUpdate   string `json:"latest_update"`
	}
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return domain.Catalog{}, fmt.Errorf("%w: %v", domain.ErrBadPayload, err)
	}
	if probe.Retcode == nil {
		return domain.Catalog{}, fmt.Errorf("%w: missing retcode", domain.ErrBadPayload)
	}
	if probe.Genshin == nil && probe.HSR == nil && probe.ZZZ == nil {
		return domain.Catalog{}, fmt.Errorf("%w: no game arrays", domain.ErrBadPayload)
	}

	cat := domain.Catalog{
		Retcode:        *probe.Retcode,
		PreviousUpdate: probe.PreviousUpdate,
		LatestUpdate:   probe.LatestUpdate,
	}
	if probe.Genshin != nil {
		cat.Genshin = *probe.Genshin
	}
	if probe.HSR != nil {
		cat.HSR = *probe.HSR
	}
	if probe.ZZZ != nil {
		cat.ZZZ = *probe.ZZZ
	}
	return cat, nil
}

// Defaults returns the permanent codes shown when every hop fails.
// These never expire, so an offline user still sees something redeemable.
func Defaults() domain.Catalog {
	return domain.Catalog{
		Genshin: []domain.CodeEntry{{
			Code:        "GENSHINGIFT",
			Title:       "Permanent Code",
			Description: "60 Primogems + 10,000 Mora",
			Type:        "permanent",
			Status:      "working",
		}},
		HSR: []domain.CodeEntry{{
			Code:        "STARRAILGIFT",
			Title:       "Permanent Code",
			Description: "50 Stellar Jade + 10,000 Credits",
			Type:        "permanent",
			Status:      "working",
		}},
		ZZZ: []domain.CodeEntry{{
			Code:        "ZENLESSGIFT",
			Title:       "Permanent Code",
			Description: "Polychrome + Dennies",
			Type:        "permanent",
			Status:      "working",
		}},
	}
}

// NewEntries diffs two catalogs and returns the entries present in next
// but not in prev. Identity is (game, code); the published timestamp is
// only an ordering hint and never makes an already-known code "new".
func NewEntries(prev, next domain.Catalog) []domain.NewCode {
	known := make(map[string]bool)
	for _, game := range domain.Games() {
		for _, e := range prev.ForGame(game) {
			known[domain.CodeKey(game, e.Code)] = true
		}
	}

	var fresh []domain.NewCode
	for _, game := range domain.Games() {
		for _, e := range next.ForGame(game) {
			if !known[domain.CodeKey(game, e.Code)] {
				fresh = append(fresh, domain.NewCode{Game: game, Entry: e})
			}
		}
	}
	return fresh
}
