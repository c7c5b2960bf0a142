package engagement

import (
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/codeforge-app/codeforge/internal/domain"
	"github.com/codeforge-app/codeforge/internal/infra/sqlite"
)

// RankService fabricates the leaderboard and the user's rank.
// Both are synthetic: the board is seed entries growing over time with
// per-call jitter, and the rank is a banded random draw that ignores the
// board entirely. The draw stays decoupled from the board on purpose, so
// a user whose XP would place them top-10 still usually ranks around #99
// or #151.
type RankService struct {
	db *sqlite.DB

	// rng is shared by HTTP handlers and the scheduler job; rand.Rand
	// is not goroutine-safe on its own.
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRankService creates a rank service.
func NewRankService(db *sqlite.DB) *RankService {
	return &RankService{
		db:  db,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// newRankServiceSeeded creates a rank service with a fixed seed for tests.
func newRankServiceSeeded(db *sqlite.DB, seed int64) *RankService {
	return &RankService{db: db, rng: rand.New(rand.NewSource(seed))}
}

// Synthetic competitors accumulate XP over time so the board drifts
// between sessions instead of freezing at the seed values.
var leaderboardEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

const seedGrowthPerDay = 15

// leaderboardSeeds are the fixed synthetic competitors.
var leaderboardSeeds = []domain.LeaderboardEntry{
	{Name: "CodeMaster2024", XP: 15420},
	{Name: "GenshinPro", XP: 12890},
	{Name: "StarRailHunter", XP: 11650},
	{Name: "ZZZExplorer", XP: 10320},
	{Name: "RedeemKing", XP: 9875},
	{Name: "XPGrinder", XP: 8940},
	{Name: "CodeCollector", XP: 8120},
	{Name: "DailyPlayer", XP: 7650},
	{Name: "GameEnthusiast", XP: 7200},
	{Name: "TopTierGamer", XP: 6890},
}

// Leaderboard returns the synthetic top-10 board, sorted by XP. Each
// seed grows with elapsed days since the epoch plus fresh ±100 XP
// jitter. If the profile has a display name and its XP beats a seed
// entry, the user row is spliced in and the board stays ten rows long.
func (r *RankService) Leaderboard(profile domain.Profile, currentXP int64, now time.Time) []domain.LeaderboardEntry {
	growth := int64(0)
	if days := int64(now.Sub(leaderboardEpoch).Hours() / 24); days > 0 {
		growth = days * seedGrowthPerDay
	}

	board := make([]domain.LeaderboardEntry, len(leaderboardSeeds))
	r.mu.Lock()
	for i, seed := range leaderboardSeeds {
		board[i] = seed
		board[i].XP += growth + int64(r.rng.Intn(201)) - 100
	}
	r.mu.Unlock()

	if profile.Named() {
		board = append(board, domain.LeaderboardEntry{
			Name: profile.Name, XP: currentXP, You: true,
		})
	}

	sort.SliceStable(board, func(i, j int) bool { return board[i].XP > board[j].XP })
	if len(board) > len(leaderboardSeeds) {
		board = board[:len(leaderboardSeeds)]
	}
	return board
}

// DrawRank produces a fresh synthetic rank from the banded distribution:
// 5% top 8, 25% around #99, 30% around #151, 40% in 200-499.
func (r *RankService) DrawRank() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := r.rng.Float64()
	switch {
	case f < 0.05:
		return 1 + r.rng.Intn(8)
	case f < 0.30:
		return 95 + r.rng.Intn(10)
	case f < 0.60:
		return 145 + r.rng.Intn(12)
	default:
		return 200 + r.rng.Intn(300)
	}
}

// Refresh re-draws the persisted rank. Anonymous profiles never rank;
// their stored rank is cleared instead.
func (r *RankService) Refresh(profile domain.Profile) (int, error) {
	if !profile.Named() {
		if err := r.db.SetEngagement("current_rank", "0"); err != nil {
			return 0, err
		}
		return 0, nil
	}
	rank := r.DrawRank()
	if err := r.db.SetEngagement("current_rank", strconv.Itoa(rank)); err != nil {
		return 0, err
	}
	return rank, nil
}
