package app

import (
	"context"
	"errors"
	"math"
	"time"

	"animal-quiz-service/internal/domain"
	"animal-quiz-service/internal/fuzzy"
	"animal-quiz-service/internal/scoring"
	"go.uber.org/zap"
)

const (
	minComboMultiplier = 1.0
	maxComboMultiplier = 2.0
)

// QuizService contains the level quiz use cases.
type QuizService struct {
	store        ProgressStore
	catalog      Catalog
	achievements *AchievementEvaluator
	publisher    Publisher
	rules        Rules
	now          func() time.Time
	logger       *zap.Logger
}

func NewQuizService(store ProgressStore, catalog Catalog, achievements *AchievementEvaluator, publisher Publisher, rules Rules, logger *zap.Logger) *QuizService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizService{
		store:        store,
		catalog:      catalog,
		achievements: achievements,
		publisher:    publisher,
		rules:        rules,
		now:          time.Now,
		logger:       logger,
	}
}

// SubmitAnswer checks a guess and, when it is the first correct guess for the
// slot, commits the reward atomically and evaluates achievements.
func (s *QuizService) SubmitAnswer(ctx context.Context, uid string, sub domain.AnswerSubmission) (domain.AnswerResult, error) {
	combo, err := normalizeCombo(sub.ComboMultiplier)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	locale := s.catalog.ResolveLocale(sub.Locale)
	correctName, ok := s.catalog.AnimalName(sub.LevelID, sub.AnimalIndex, locale)
	if !ok {
		return domain.AnswerResult{}, domain.ErrInvalidRequest
	}

	progress, err := s.store.EnsureProgress(ctx, uid)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	flags := progress[sub.LevelID]
	if sub.AnimalIndex >= len(flags) {
		return domain.AnswerResult{}, domain.ErrInvalidRequest
	}

	result := domain.AnswerResult{
		Correct:         fuzzy.IsMatch(sub.Answer, correctName),
		CorrectAnswer:   correctName,
		ComboMultiplier: combo,
		NewAchievements: []string{},
	}

	if result.Correct && !flags[sub.AnimalIndex] {
		applied, err := s.applyCorrect(ctx, uid, sub, combo, &result)
		if err != nil {
			return domain.AnswerResult{}, err
		}
		if applied {
			return result, nil
		}
	} else if !result.Correct {
		if _, err := s.store.RecordAnswer(ctx, uid, false); err != nil {
			return domain.AnswerResult{}, err
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

// applyCorrect commits a newly correct answer. It reports false when another
// request guessed the slot first, in which case nothing was awarded.
func (s *QuizService) applyCorrect(ctx context.Context, uid string, sub domain.AnswerSubmission, combo float64, result *domain.AnswerResult) (bool, error) {
	hints, err := s.store.GetHints(ctx, uid)
	if err != nil {
		return false, err
	}
	letters, err := s.store.GetLetters(ctx, uid)
	if err != nil {
		return false, err
	}
	hintsUsed := slotCount(hints, sub.LevelID, sub.AnimalIndex)
	lettersUsed := slotCount(letters, sub.LevelID, sub.AnimalIndex)
	points := scoring.PointsFor(sub.AdRevealed, hintsUsed, lettersUsed, combo)

	upd, err := s.store.SubmitAnswerUpdate(ctx, uid, sub.LevelID, sub.AnimalIndex, s.rules.CoinsPerCorrect, points)
	if err != nil {
		return false, translateStoreErr(err)
	}
	if !upd.Applied {
		return false, nil
	}

	result.CoinsAwarded = upd.CoinsAwarded
	result.TotalCoins = upd.TotalCoins
	result.PointsAwarded = points
	result.CurrentStreak = upd.CurrentStreak
	result.LastActivityDate = optionalDate(upd.LastActivityDate)
	result.StreakBonusCoins = upd.StreakBonusCoins

	s.publisher.Publish(domain.LeaderboardEvent{UserID: uid, At: s.now().UTC()})

	fresh, err := s.store.EnsureProgress(ctx, uid)
	if err != nil {
		return false, err
	}
	unlocked, err := s.achievements.EvaluateAnswer(ctx, uid, AnswerContext{
		LevelID:       sub.LevelID,
		HintsUsed:     hintsUsed,
		LettersUsed:   lettersUsed,
		TotalCoins:    upd.TotalCoins,
		CurrentStreak: upd.CurrentStreak,
		Progress:      fresh,
	})
	if err != nil {
		// The reward is committed; a failed evaluation only loses this pass's unlocks.
		s.logger.Warn("achievement evaluation failed", zap.String("user_id", uid), zap.Error(err))
		return true, nil
	}
	result.NewAchievements = unlocked
	return true, nil
}

// BuyHint reveals the next hint for a slot.
func (s *QuizService) BuyHint(ctx context.Context, uid string, levelID, index int) (domain.HintResult, error) {
	if !s.validSlot(levelID, index) {
		return domain.HintResult{}, domain.ErrInvalidRequest
	}
	p, err := s.store.BuyHint(ctx, uid, levelID, index, s.rules.HintCosts)
	if err != nil {
		return domain.HintResult{}, translateStoreErr(err)
	}
	return domain.HintResult{TotalCoins: p.TotalCoins, HintsRevealed: p.Revealed}, nil
}

// RevealLetter reveals one more letter of a slot's answer.
func (s *QuizService) RevealLetter(ctx context.Context, uid string, levelID, index int) (domain.LetterResult, error) {
	if !s.validSlot(levelID, index) {
		return domain.LetterResult{}, domain.ErrInvalidRequest
	}
	p, err := s.store.RevealLetter(ctx, uid, levelID, index, s.rules.RevealLetterCost, s.rules.MaxLetterReveals)
	if err != nil {
		return domain.LetterResult{}, translateStoreErr(err)
	}
	return domain.LetterResult{TotalCoins: p.TotalCoins, LettersRevealed: p.Revealed}, nil
}

// Levels lists every level with its animals in the resolved locale.
func (s *QuizService) Levels(locale string) []domain.Level {
	return s.catalog.Levels(s.catalog.ResolveLocale(locale))
}

// LevelDetail annotates one level with the caller's progress.
func (s *QuizService) LevelDetail(ctx context.Context, uid string, levelID int, locale string) (domain.LevelDetail, error) {
	level, ok := s.catalog.Level(levelID, s.catalog.ResolveLocale(locale))
	if !ok {
		return domain.LevelDetail{}, domain.ErrLevelNotFound
	}
	progress, hints, letters, err := s.snapshot(ctx, uid)
	if err != nil {
		return domain.LevelDetail{}, err
	}
	return buildDetail(level, progress, hints, letters), nil
}

// Progress returns every level annotated with the caller's progress.
func (s *QuizService) Progress(ctx context.Context, uid, locale string) ([]domain.LevelDetail, error) {
	progress, hints, letters, err := s.snapshot(ctx, uid)
	if err != nil {
		return nil, err
	}
	levels := s.catalog.Levels(s.catalog.ResolveLocale(locale))
	out := make([]domain.LevelDetail, 0, len(levels))
	for _, level := range levels {
		out = append(out, buildDetail(level, progress, hints, letters))
	}
	return out, nil
}

func (s *QuizService) snapshot(ctx context.Context, uid string) (domain.Progress, domain.Counters, domain.Counters, error) {
	progress, err := s.store.EnsureProgress(ctx, uid)
	if err != nil {
		return nil, nil, nil, err
	}
	hints, err := s.store.GetHints(ctx, uid)
	if err != nil {
		return nil, nil, nil, err
	}
	letters, err := s.store.GetLetters(ctx, uid)
	if err != nil {
		return nil, nil, nil, err
	}
	return progress, hints, letters, nil
}

func (s *QuizService) validSlot(levelID, index int) bool {
	return index >= 0 && index < s.catalog.AnimalCount(levelID)
}

func buildDetail(level domain.Level, progress domain.Progress, hints, letters domain.Counters) domain.LevelDetail {
	detail := domain.LevelDetail{
		ID:      level.ID,
		Title:   level.Title,
		Emoji:   level.Emoji,
		Animals: make([]domain.AnimalStatus, 0, len(level.Animals)),
	}
	flags := progress[level.ID]
	for i, animal := range level.Animals {
		detail.Animals = append(detail.Animals, domain.AnimalStatus{
			Animal:          animal,
			Guessed:         i < len(flags) && flags[i],
			HintsRevealed:   slotCount(hints, level.ID, i),
			LettersRevealed: slotCount(letters, level.ID, i),
		})
	}
	return detail
}

// normalizeCombo treats an absent multiplier as 1 and rejects anything outside [1, 2].
func normalizeCombo(combo float64) (float64, error) {
	if combo == 0 {
		return minComboMultiplier, nil
	}
	if math.IsNaN(combo) || combo < minComboMultiplier || combo > maxComboMultiplier {
		return 0, domain.ErrInvalidRequest
	}
	return combo, nil
}

func slotCount(c domain.Counters, levelID, index int) int {
	counts := c[levelID]
	if index < 0 || index >= len(counts) {
		return 0
	}
	return counts[index]
}

func optionalDate(date string) *string {
	if date == "" {
		return nil
	}
	return &date
}

// translateStoreErr maps store slot errors onto the service taxonomy.
func translateStoreErr(err error) error {
	if errors.Is(err, domain.ErrInvalidIndex) {
		return domain.ErrInvalidRequest
	}
	return err
}
