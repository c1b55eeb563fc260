package app

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sort"
	"time"

	"animal-quiz-service/internal/domain"
	"animal-quiz-service/internal/fuzzy"
	"animal-quiz-service/internal/scoring"
	"go.uber.org/zap"
)

// ChallengeService runs the daily challenge: a date-seeded subset of the
// catalog that every user sees identically for that date.
type ChallengeService struct {
	store        ProgressStore
	catalog      Catalog
	achievements *AchievementEvaluator
	publisher    Publisher
	size         int
	now          func() time.Time
	logger       *zap.Logger
}

func NewChallengeService(store ProgressStore, catalog Catalog, achievements *AchievementEvaluator, publisher Publisher, rules Rules, logger *zap.Logger) *ChallengeService {
	return NewChallengeServiceWithClock(store, catalog, achievements, publisher, rules, logger, time.Now)
}

// NewChallengeServiceWithClock is test-only for deterministic challenge dates.
func NewChallengeServiceWithClock(store ProgressStore, catalog Catalog, achievements *AchievementEvaluator, publisher Publisher, rules Rules, logger *zap.Logger, now func() time.Time) *ChallengeService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChallengeService{
		store:        store,
		catalog:      catalog,
		achievements: achievements,
		publisher:    publisher,
		size:         rules.ChallengeSize,
		now:          now,
		logger:       logger,
	}
}

// Today returns the current challenge with the caller's state for it.
func (s *ChallengeService) Today(ctx context.Context, uid, locale string) (domain.DailyChallenge, error) {
	date := scoring.DateISO(s.now())
	animals := s.animalsFor(date, s.catalog.ResolveLocale(locale))
	state, err := s.store.GetDailyChallenge(ctx, uid, date, len(animals))
	if err != nil {
		return domain.DailyChallenge{}, err
	}
	challenge := domain.DailyChallenge{
		Date:      date,
		Animals:   animals,
		Answered:  state.Answered,
		Completed: state.CompletedAt != nil || state.AllAnswered(),
	}
	if challenge.Completed {
		score := state.Score
		challenge.Score = &score
	}
	return challenge, nil
}

// SubmitAnswer checks a guess for one of today's challenge animals. Challenge
// answers award points to the challenge score only, never coins.
func (s *ChallengeService) SubmitAnswer(ctx context.Context, uid string, sub domain.ChallengeSubmission) (domain.AnswerResult, error) {
	date := scoring.DateISO(s.now())
	animals := s.animalsFor(date, s.catalog.ResolveLocale(sub.Locale))
	if sub.AnimalIndex < 0 || sub.AnimalIndex >= len(animals) {
		return domain.AnswerResult{}, domain.ErrInvalidRequest
	}

	correctName := animals[sub.AnimalIndex].Name
	result := domain.AnswerResult{
		Correct:         fuzzy.IsMatch(sub.Answer, correctName),
		CorrectAnswer:   correctName,
		ComboMultiplier: minComboMultiplier,
		NewAchievements: []string{},
	}

	if result.Correct {
		upd, err := s.store.SubmitDailyChallengeAnswer(ctx, uid, date, sub.AnimalIndex, scoring.ChallengePoints(sub.AdRevealed), len(animals))
		if err != nil {
			return domain.AnswerResult{}, translateStoreErr(err)
		}
		result.PointsAwarded = upd.PointsAwarded
		if upd.PointsAwarded > 0 {
			s.publisher.Publish(domain.LeaderboardEvent{UserID: uid, At: s.now().UTC()})
		}
		if upd.Completed && upd.PointsAwarded > 0 {
			unlocked, err := s.achievements.EvaluateDailyChallenge(ctx, uid)
			if err != nil {
				s.logger.Warn("daily achievement evaluation failed", zap.String("user_id", uid), zap.Error(err))
			} else {
				result.NewAchievements = unlocked
			}
		}
	}

	user, err := s.store.GetUser(ctx, uid)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	result.TotalCoins = user.TotalCoins
	result.CurrentStreak = user.CurrentStreak
	result.LastActivityDate = optionalDate(user.LastActivityDate)
	return result, nil
}

func (s *ChallengeService) animalsFor(date, locale string) []domain.Animal {
	flat := s.catalog.Flatten(locale)
	indices := SelectIndices(date, len(flat), s.size)
	out := make([]domain.Animal, len(indices))
	for i, idx := range indices {
		out[i] = flat[idx]
	}
	return out
}

// SelectIndices picks size distinct positions out of total, seeded by the
// date string and returned ascending. When total <= size every position is used.
func SelectIndices(date string, total, size int) []int {
	if total <= size {
		all := make([]int, total)
		for i := range all {
			all[i] = i
		}
		return all
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(date))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	picked := rng.Perm(total)[:size]
	sort.Ints(picked)
	return picked
}
