package engagement

import (
	"testing"

	"github.com/codeforge-app/codeforge/internal/infra/sqlite"
)

func rankDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDrawRank_WithinBands(t *testing.T) {
	svc := newRankServiceSeeded(rankDB(t), 1)

	for i := 0; i < 10_000; i++ {
		rank := svc.DrawRank()
		switch {
		case rank >= 1 && rank <= 8:
		case rank >= 95 && rank <= 104:
		case rank >= 145 && rank <= 156:
		case rank >= 200 && rank <= 499:
		default:
			t.Fatalf("rank %d outside every band", rank)
		}
	}
}

func TestDrawRank_Distribution(t *testing.T) {
	svc := newRankServiceSeeded(rankDB(t), 42)

	const draws = 100_000
	var top, mid, low, tail int
	for i := 0; i < draws; i++ {
		rank := svc.DrawRank()
		switch {
		case rank <= 8:
			top++
		case rank <= 104:
			mid++
		case rank <= 156:
			low++
		default:
			tail++
		}
	}

	// Expected 5% / 25% / 30% / 40%, with a generous margin.
	checks := []struct {
		name     string
		got      int
		expected float64
	}{
		{"top 8", top, 0.05},
		{"around 99", mid, 0.25},
		{"around 151", low, 0.30},
		{"200-499", tail, 0.40},
	}
	for _, c := range checks {
		frac := float64(c.got) / draws
		if frac < c.expected-0.02 || frac > c.expected+0.02 {
			t.Errorf("%s: %.3f of draws, want ~%.2f", c.name, frac, c.expected)
		}
	}
}
