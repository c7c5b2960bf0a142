package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codeforge-app/codeforge/internal/domain"
)

var samplePayload = `{
	"retcode": 0,
	"genshin": [{"code": "ABC123", "rewards": "60 Primogems"}],
	"hsr": [{"code": "RAIL456"}],
	"zzz": []
}`

func jsonHandler(payload string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}
}

func passthroughMirror(name, target string) Mirror {
	return Mirror{
		Name: name,
		Wrap: func(string) string { return target },
	}
}

// ─── Fetch Chain ────────────────────────────────────────────────────────────

func TestFetch_DirectSuccess(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(samplePayload))
	defer srv.Close()

	f := New(srv.URL, []Mirror{})
	cat, source, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if source != "direct" {
		t.Errorf("source = %q, want direct", source)
	}
	if len(cat.Genshin) != 1 || cat.Genshin[0].Code != "ABC123" {
		t.Errorf("genshin = %+v, want ABC123", cat.Genshin)
	}
	if len(cat.HSR) != 1 {
		t.Errorf("hsr len = %d, want 1", len(cat.HSR))
	}
}

func TestFetch_FallsBackToMirror(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer dead.Close()

	mirror := httptest.NewServer(jsonHandler(samplePayload))
	defer mirror.Close()

	f := New(dead.URL, []Mirror{passthroughMirror("backup", mirror.URL)})
	cat, source, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if source != "backup" {
		t.Errorf("source = %q, want backup", source)
	}
	if cat.Empty() {
		t.Error("mirror catalog should not be empty")
	}
}

func TestFetch_SkipsBrokenMirror(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer dead.Close()

	htmlMirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>rate limited</body></html>"))
	}))
	defer htmlMirror.Close()

	good := httptest.NewServer(jsonHandler(samplePayload))
	defer good.Close()

	f := New(dead.URL, []Mirror{
		passthroughMirror("html", htmlMirror.URL),
		passthroughMirror("good", good.URL),
	})
	_, source, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if source != "good" {
		t.Errorf("source = %q, want good", source)
	}
}

func TestFetch_AllHopsFail(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer dead.Close()

	f := New(dead.URL, []Mirror{passthroughMirror("also-dead", dead.URL)})
	_, _, err := f.Fetch(context.Background())
	if !errors.Is(err, domain.ErrSourceOffline) {
		t.Errorf("err = %v, want ErrSourceOffline", err)
	}
}

func TestFetch_EnvelopeUnwrap(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer dead.Close()

	envelope := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"contents": samplePayload})
	}))
	defer envelope.Close()

	m := Mirror{
		Name: "enveloped",
		Wrap: func(string) string { return envelope.URL },
		Unwrap: func(body []byte) ([]byte, error) {
			var env struct {
				Contents string `json:"contents"`
			}
			if err := json.Unmarshal(body, &env); err != nil {
				return nil, err
			}
			return []byte(env.Contents), nil
		},
	}

	f := New(dead.URL, []Mirror{m})
	cat, source, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if source != "enveloped" {
		t.Errorf("source = %q, want enveloped", source)
	}
	if len(cat.Genshin) != 1 {
		t.Errorf("genshin len = %d, want 1", len(cat.Genshin))
	}
}

// ─── Payload Validation ─────────────────────────────────────────────────────

func TestParse_RejectsHTML(t *testing.T) {
	_, err := Parse([]byte("  <!DOCTYPE html><html></html>"))
	if !errors.Is(err, domain.ErrHTMLResponse) {
		t.Errorf("err = %v, want ErrHTMLResponse", err)
	}
}

func TestParse_RequiresRetcode(t *testing.T) {
	_, err := Parse([]byte(`{"genshin": []}`))
	if !errors.Is(err, domain.ErrBadPayload) {
		t.Errorf("err = %v, want ErrBadPayload", err)
	}
}

func TestParse_RequiresGameArray(t *testing.T) {
	_, err := Parse([]byte(`{"retcode": 0}`))
	if !errors.Is(err, domain.ErrBadPayload) {
		t.Errorf("err = %v, want ErrBadPayload", err)
	}
}

func TestParse_EmptyArraysValid(t *testing.T) {
	cat, err := Parse([]byte(`{"retcode": 0, "genshin": []}`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !cat.Empty() {
		t.Error("catalog should be empty")
	}
}

func TestParse_Garbage(t *testing.T) {
	_, err := Parse([]byte(`not json at all`))
	if !errors.Is(err, domain.ErrBadPayload) {
		t.Errorf("err = %v, want ErrBadPayload", err)
	}
}

// ─── Defaults ───────────────────────────────────────────────────────────────

func TestDefaults_PermanentCodes(t *testing.T) {
	cat := Defaults()
	for _, game := range domain.Games() {
		entries := cat.ForGame(game)
		if len(entries) != 1 {
			t.Fatalf("%s: %d entries, want 1", game, len(entries))
		}
		if domain.CodeType(entries[0]) != "permanent" {
			t.Errorf("%s: type = %s, want permanent", game, domain.CodeType(entries[0]))
		}
	}
	if cat.Genshin[0].Code != "GENSHINGIFT" {
		t.Errorf("genshin default = %q, want GENSHINGIFT", cat.Genshin[0].Code)
	}
}

// ─── Diff ───────────────────────────────────────────────────────────────────

func TestNewEntries_Diff(t *testing.T) {
	prev := domain.Catalog{
		Genshin: []domain.CodeEntry{{Code: "OLD1"}},
		HSR:     []domain.CodeEntry{{Code: "SHARED"}},
	}
	next := domain.Catalog{
		Genshin: []domain.CodeEntry{{Code: "OLD1"}, {Code: "FRESH1"}},
		HSR:     []domain.CodeEntry{{Code: "SHARED"}},
		ZZZ:     []domain.CodeEntry{{Code: "SHARED"}}, // same code, new game
	}

	fresh := NewEntries(prev, next)
	if len(fresh) != 2 {
		t.Fatalf("fresh = %+v, want 2 entries", fresh)
	}
	if fresh[0].Game != domain.GameGenshin || fresh[0].Entry.Code != "FRESH1" {
		t.Errorf("fresh[0] = %+v, want genshin FRESH1", fresh[0])
	}
	if fresh[1].Game != domain.GameZZZ || fresh[1].Entry.Code != "SHARED" {
		t.Errorf("fresh[1] = %+v, want zzz SHARED", fresh[1])
	}
}

func TestNewEntries_ChangedTimestampNotNew(t *testing.T) {
	prev := domain.Catalog{Genshin: []domain.CodeEntry{{Code: "ABC", AddedAt: 100}}}
	next := domain.Catalog{Genshin: []domain.CodeEntry{{Code: "ABC", AddedAt: 999}}}

	if fresh := NewEntries(prev, next); len(fresh) != 0 {
		t.Errorf("fresh = %+v, want none for timestamp-only change", fresh)
	}
}

func TestNewEntries_EmptyPrev(t *testing.T) {
	next := domain.Catalog{Genshin: []domain.CodeEntry{{Code: "ABC"}}}
	if fresh := NewEntries(domain.Catalog{}, next); len(fresh) != 1 {
		t.Errorf("fresh = %+v, want 1", fresh)
	}
}
