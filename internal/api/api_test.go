package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/codeforge-app/codeforge/internal/api"
	"github.com/codeforge-app/codeforge/internal/app/codes"
	"github.com/codeforge-app/codeforge/internal/app/engagement"
	"github.com/codeforge-app/codeforge/internal/domain"
	"github.com/codeforge-app/codeforge/internal/infra/sqlite"
)

type stubSource struct {
	cat domain.Catalog
	err error
}

func (s *stubSource) Fetch(context.Context) (domain.Catalog, string, error) {
	return s.cat, "direct", s.err
}

func newTestServer(t *testing.T) (*httptest.Server, *sqlite.DB) {
	t.Helper()

	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ledger := engagement.NewLedgerService(db)
	ach := engagement.NewAchievementService(db)
	rank := engagement.NewRankService(db)

	src := &stubSource{cat: domain.Catalog{
		Genshin: []domain.CodeEntry{{Code: "GENSHINGIFT", Rewards: "60 Primogems", Type: "permanent"}},
		HSR:     []domain.CodeEntry{{Code: "STARRAILGIFT"}},
	}}

	srv := api.NewServer(codes.NewService(db, src))
	srv.SetEngagement(&api.EngagementAPI{
		DB:       db,
		Ledger:   ledger,
		Ach:      ach,
		Rank:     rank,
		Activity: engagement.NewActivityService(db, ledger, ach, rank),
		Verify:   engagement.NewVerificationService(db, ledger, ach),
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, db
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body interface{}, out interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	} else {
		buf.WriteString("{}")
	}
	resp, err := http.Post(url, "application/json", &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)

	var body map[string]string
	if status := getJSON(t, ts.URL+"/health", &body); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestGameCodes(t *testing.T) {
	ts, _ := newTestServer(t)

	var body struct {
		Game  string `json:"game"`
		Codes []struct {
			Code      string `json:"code"`
			CodeType  string `json:"code_type"`
			RedeemURL string `json:"redeem_url"`
		} `json:"codes"`
	}
	if status := getJSON(t, ts.URL+"/api/codes/genshin", &body); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if len(body.Codes) != 1 || body.Codes[0].Code != "GENSHINGIFT" {
		t.Fatalf("codes = %+v", body.Codes)
	}
	if body.Codes[0].CodeType != "permanent" {
		t.Errorf("code_type = %q, want permanent", body.Codes[0].CodeType)
	}
	if body.Codes[0].RedeemURL == "" {
		t.Error("redeem_url should be set")
	}

	if status := getJSON(t, ts.URL+"/api/codes/pokemon", nil); status != http.StatusNotFound {
		t.Errorf("unknown game status = %d, want 404", status)
	}
}

func TestVotesEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	var first, second domain.VoteCounts
	getJSON(t, ts.URL+"/api/codes/genshin/GENSHINGIFT/votes", &first)
	getJSON(t, ts.URL+"/api/codes/genshin/GENSHINGIFT/votes", &second)
	if first != second {
		t.Errorf("vote counts not stable: %+v vs %+v", first, second)
	}
	if first.Likes == 0 {
		t.Error("likes should be nonzero")
	}
}

func TestProfileAndSummary(t *testing.T) {
	ts, _ := newTestServer(t)

	if status := postJSON(t, ts.URL+"/api/engagement/profile", map[string]string{"name": "x"}, nil); status != http.StatusBadRequest {
		t.Errorf("short name status = %d, want 400", status)
	}

	var res engagement.ActivityResult
	if status := postJSON(t, ts.URL+"/api/engagement/profile", map[string]string{"name": "CodeFan"}, &res); status != http.StatusOK {
		t.Fatalf("set profile status = %d", status)
	}
	if res.AwardedXP != domain.XPWelcome {
		t.Errorf("welcome award = %d, want %d", res.AwardedXP, domain.XPWelcome)
	}

	var summary struct {
		Profile domain.Profile        `json:"profile"`
		Ledger  domain.LedgerSnapshot `json:"ledger"`
	}
	if status := getJSON(t, ts.URL+"/api/engagement/summary", &summary); status != http.StatusOK {
		t.Fatalf("summary status = %d", status)
	}
	if summary.Profile.Name != "CodeFan" {
		t.Errorf("profile = %+v", summary.Profile)
	}
	if summary.Ledger.CurrentXP != domain.XPWelcome {
		t.Errorf("xp = %d, want %d", summary.Ledger.CurrentXP, domain.XPWelcome)
	}
	if summary.Ledger.CurrentRank == 0 {
		t.Error("named profile should have a rank")
	}
}

func TestVisitIdempotentViaAPI(t *testing.T) {
	ts, _ := newTestServer(t)

	var first, second engagement.ActivityResult
	postJSON(t, ts.URL+"/api/engagement/visit", nil, &first)
	postJSON(t, ts.URL+"/api/engagement/visit", nil, &second)

	if !first.Counted {
		t.Error("first visit should count")
	}
	if second.Counted {
		t.Error("second visit should not count")
	}
}

func TestClaimGuards(t *testing.T) {
	ts, _ := newTestServer(t)

	if status := postJSON(t, ts.URL+"/api/engagement/claim/no_such", nil, nil); status != http.StatusNotFound {
		t.Errorf("unknown claim status = %d, want 404", status)
	}
	if status := postJSON(t, ts.URL+"/api/engagement/claim/ad_clicker", nil, nil); status != http.StatusConflict {
		t.Errorf("early claim status = %d, want 409", status)
	}
}

func TestVerificationFlow(t *testing.T) {
	ts, _ := newTestServer(t)

	status := postJSON(t, ts.URL+"/api/verifications/telegram", map[string]string{"username": "@fan"}, nil)
	if status != http.StatusAccepted {
		t.Fatalf("submit status = %d, want 202", status)
	}

	// Double submit conflicts.
	status = postJSON(t, ts.URL+"/api/verifications/telegram", map[string]string{"username": "@fan"}, nil)
	if status != http.StatusConflict {
		t.Errorf("double submit status = %d, want 409", status)
	}

	var rec domain.VerificationRecord
	if status := postJSON(t, ts.URL+"/api/verifications/telegram/reset", nil, &rec); status != http.StatusOK {
		t.Fatalf("reset status = %d", status)
	}
	if rec.Status != domain.VerificationNone {
		t.Errorf("after reset status = %s, want none", rec.Status)
	}

	if status := postJSON(t, ts.URL+"/api/verifications/discord", map[string]string{"username": "x"}, nil); status != http.StatusNotFound {
		t.Errorf("unknown platform status = %d, want 404", status)
	}

	var list struct {
		Verifications []struct {
			Platform string              `json:"platform"`
			Info     domain.PlatformInfo `json:"info"`
		} `json:"verifications"`
	}
	if status := getJSON(t, ts.URL+"/api/verifications/", &list); status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	if len(list.Verifications) != 3 {
		t.Errorf("platforms = %d, want 3", len(list.Verifications))
	}
}

func TestNotificationsFlow(t *testing.T) {
	ts, _ := newTestServer(t)

	// A visit queues an XP notification.
	postJSON(t, ts.URL+"/api/engagement/visit", nil, nil)

	var body struct {
		Notifications []domain.Notification `json:"notifications"`
	}
	if status := getJSON(t, ts.URL+"/api/notifications/", &body); status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	if len(body.Notifications) == 0 {
		t.Fatal("visit should queue a notification")
	}

	id := body.Notifications[0].ID
	postJSON(t, ts.URL+"/api/notifications/"+strconv.FormatInt(id, 10)+"/shown", nil, nil)

	var after struct {
		Notifications []domain.Notification `json:"notifications"`
	}
	getJSON(t, ts.URL+"/api/notifications/", &after)
	for _, n := range after.Notifications {
		if n.ID == id {
			t.Error("shown notification still pending")
		}
	}
}

func TestCORSOriginAllowlist(t *testing.T) {
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	srv := api.NewServer(codes.NewService(db, &stubSource{}))
	srv.SetCORSOrigins([]string{"https://codeforge.app"})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	check := func(origin, want string) {
		t.Helper()
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("GET /health: %v", err)
		}
		resp.Body.Close()
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != want {
			t.Errorf("origin %q: Allow-Origin = %q, want %q", origin, got, want)
		}
	}

	check("https://codeforge.app", "https://codeforge.app")
	check("https://evil.example", "")
	check("", "")
}

func TestPreferencesRoundtrip(t *testing.T) {
	ts, _ := newTestServer(t)

	want := domain.Preferences{
		FavoriteGames:  []domain.Game{domain.GameZZZ},
		NotifyNewCodes: true,
		Theme:          "light",
	}
	body, _ := json.Marshal(want)
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/preferences", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT preferences: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d", resp.StatusCode)
	}

	var got domain.Preferences
	getJSON(t, ts.URL+"/api/preferences", &got)
	if got.Theme != "light" || !got.NotifyNewCodes || !got.IsFavorite(domain.GameZZZ) {
		t.Errorf("preferences = %+v, want %+v", got, want)
	}
}
