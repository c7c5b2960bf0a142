package engagement

import "github.com/codeforge-app/codeforge/internal/domain"

// FakeVoteCounts fabricates a deterministic like/dislike pair for a code
// card. The same title and date always hash to the same counts, so the
// numbers survive page reloads. Four popularity tiers keep the spread
// looking organic.
func FakeVoteCounts(codeTitle, codeDate string) domain.VoteCounts {
	var hash int32
	for _, c := range codeTitle + codeDate {
		hash = (hash << 5) - hash + int32(c)
	}

	seed := int(hash)
	if seed < 0 {
		seed = -seed
	}

	switch seed % 4 {
	case 0: // very popular
		return domain.VoteCounts{Likes: 150 + seed%200, Dislikes: 5 + seed%15}
	case 1: // popular
		return domain.VoteCounts{Likes: 80 + seed%120, Dislikes: 8 + seed%20}
	case 2: // moderate
		return domain.VoteCounts{Likes: 30 + seed%80, Dislikes: 3 + seed%12}
	default: // niche
		return domain.VoteCounts{Likes: 10 + seed%40, Dislikes: 1 + seed%8}
	}
}
