package app

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"animal-quiz-service/internal/domain"
	"animal-quiz-service/internal/scoring"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
	todayParam       = "today"
	snapshotKey      = "global"
)

// LeaderboardService ranks users from one bulk read of the store. The global
// ranking is cached for a short TTL; concurrent misses share one scan.
type LeaderboardService struct {
	store ProgressStore
	ttl   time.Duration
	now   func() time.Time
	sf    singleflight.Group

	mu         sync.RWMutex
	rnd        *rand.Rand
	ranked     []domain.LeaderboardEntry
	expiresAt  time.Time
	generation uint64
}

func NewLeaderboardService(store ProgressStore, ttl time.Duration) *LeaderboardService {
	return NewLeaderboardServiceWithClock(store, ttl, time.Now)
}

// NewLeaderboardServiceWithClock is test-only for deterministic challenge dates and expiry.
func NewLeaderboardServiceWithClock(store ProgressStore, ttl time.Duration, now func() time.Time) *LeaderboardService {
	return &LeaderboardService{
		store: store,
		ttl:   ttl,
		now:   now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Global returns one page of the points ranking. Ranks are positions in the
// full sorted list, so they do not depend on the page requested.
func (s *LeaderboardService) Global(ctx context.Context, offset, limit int) (domain.LeaderboardPage, error) {
	ranked, err := s.rankedUsers(ctx)
	if err != nil {
		return domain.LeaderboardPage{}, err
	}
	lo, hi := pageBounds(len(ranked), offset, limit)
	entries := make([]domain.LeaderboardEntry, hi-lo)
	copy(entries, ranked[lo:hi])
	return domain.LeaderboardPage{Entries: entries, Total: len(ranked)}, nil
}

// Daily ranks one challenge date by score, then by earliest completion.
// date is an ISO date, or "today"/empty for the current UTC date.
func (s *LeaderboardService) Daily(ctx context.Context, date string, offset, limit int) (domain.ChallengeLeaderboard, error) {
	date, err := s.resolveDate(date)
	if err != nil {
		return domain.ChallengeLeaderboard{}, err
	}
	rows, err := s.store.GetDailyChallengeLeaderboard(ctx, date)
	if err != nil {
		return domain.ChallengeLeaderboard{}, err
	}
	ranked, err := s.rankedUsers(ctx)
	if err != nil {
		return domain.ChallengeLeaderboard{}, err
	}
	profiles := make(map[string]domain.LeaderboardEntry, len(ranked))
	for _, e := range ranked {
		profiles[e.UserID] = e
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		switch {
		case a.CompletedAt != nil && b.CompletedAt != nil && !a.CompletedAt.Equal(*b.CompletedAt):
			return a.CompletedAt.Before(*b.CompletedAt)
		case a.CompletedAt != nil && b.CompletedAt == nil:
			return true
		case a.CompletedAt == nil && b.CompletedAt != nil:
			return false
		}
		return a.UserID < b.UserID
	})

	lo, hi := pageBounds(len(rows), offset, limit)
	entries := make([]domain.ChallengeLeaderboardEntry, 0, hi-lo)
	for i := lo; i < hi; i++ {
		row := rows[i]
		profile := profiles[row.UserID]
		entries = append(entries, domain.ChallengeLeaderboardEntry{
			Rank:        i + 1,
			UserID:      row.UserID,
			Username:    profile.Username,
			Score:       row.Score,
			CompletedAt: row.CompletedAt,
			PhotoURL:    profile.PhotoURL,
		})
	}
	return domain.ChallengeLeaderboard{Date: date, Entries: entries, Total: len(rows)}, nil
}

// Invalidate drops the cached ranking. It matches the Feed hook signature.
func (s *LeaderboardService) Invalidate(domain.LeaderboardEvent) {
	s.mu.Lock()
	s.ranked = nil
	s.expiresAt = time.Time{}
	s.generation++
	s.mu.Unlock()
	s.sf.Forget(snapshotKey)
}

func (s *LeaderboardService) rankedUsers(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	if ranked, ok := s.cached(); ok {
		return ranked, nil
	}

	result, err, _ := s.sf.Do(snapshotKey, func() (interface{}, error) {
		// Re-check in case another caller filled the cache.
		if ranked, ok := s.cached(); ok {
			return ranked, nil
		}
		s.mu.RLock()
		generation := s.generation
		s.mu.RUnlock()

		users, err := s.store.GetAllUsers(ctx)
		if err != nil {
			return nil, err
		}
		ranked := rankUsers(users)

		s.mu.Lock()
		if s.generation == generation && s.ttl > 0 {
			s.ranked = ranked
			s.expiresAt = s.now().Add(s.ttlWithJitterLocked())
		}
		s.mu.Unlock()
		return ranked, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.LeaderboardEntry), nil
}

func (s *LeaderboardService) cached() ([]domain.LeaderboardEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ranked != nil && s.expiresAt.After(s.now()) {
		return s.ranked, true
	}
	return nil, false
}

func (s *LeaderboardService) resolveDate(date string) (string, error) {
	if date == "" || date == todayParam {
		return scoring.DateISO(s.now()), nil
	}
	parsed, err := time.Parse(scoring.DateLayout, date)
	if err != nil {
		return "", domain.ErrInvalidRequest
	}
	return parsed.Format(scoring.DateLayout), nil
}

// ttlWithJitterLocked adds up to 10% jitter so replicas do not rescan in lockstep.
func (s *LeaderboardService) ttlWithJitterLocked() time.Duration {
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}

func rankUsers(users []domain.UserSummary) []domain.LeaderboardEntry {
	ranked := make([]domain.LeaderboardEntry, 0, len(users))
	for _, u := range users {
		ranked = append(ranked, domain.LeaderboardEntry{
			UserID:            u.User.ID,
			Username:          u.User.Username,
			TotalPoints:       u.User.TotalPoints,
			LevelsCompleted:   u.Progress.Completed(),
			PhotoURL:          u.User.PhotoURL,
			CurrentStreak:     u.User.CurrentStreak,
			AchievementsCount: u.AchievementsCount,
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if a.Username != b.Username {
			return a.Username < b.Username
		}
		return a.UserID < b.UserID
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// pageBounds clamps offset/limit to [0, total].
func pageBounds(total, offset, limit int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	limit = min(limit, MaxPageLimit)
	offset = max(offset, 0)
	if offset > total {
		offset = total
	}
	return offset, min(offset+limit, total)
}
