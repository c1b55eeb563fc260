package app

import (
	"context"

	"animal-quiz-service/internal/domain"
	"go.uber.org/zap"
)

// Achievement identifiers.
const (
	AchievementFirstCorrect = "first_correct"
	AchievementLevelPerfect = "level_perfect"
	AchievementLevelSpeed   = "level_speed"
	AchievementStreak7      = "streak_7"
	AchievementStreak30     = "streak_30"
	AchievementCoins500     = "coins_500"
	AchievementAllLevels    = "all_levels"
	AchievementDaily10      = "daily_10"
	AchievementNoHints10    = "no_hints_10"
)

const (
	allLevelsFraction = 0.8
	coinsMilestone    = 500
	dailyMilestone    = 10
	noAssistMilestone = 10
	shortStreakDays   = 7
	longStreakDays    = 30
)

var achievementDefinitions = []domain.AchievementDefinition{
	{ID: AchievementFirstCorrect, Name: "First Step", Description: "First correct answer ever"},
	{ID: AchievementLevelPerfect, Name: "Perfectionist", Description: "Complete a level with 0 hints used"},
	{ID: AchievementLevelSpeed, Name: "Speedster", Description: "Complete a level in under 3 minutes"},
	{ID: AchievementStreak7, Name: "On Fire", Description: "7-day streak"},
	{ID: AchievementStreak30, Name: "Unstoppable", Description: "30-day streak"},
	{ID: AchievementCoins500, Name: "Coin Collector", Description: "Accumulate 500 coins"},
	{ID: AchievementAllLevels, Name: "Graduate", Description: "Complete all levels"},
	{ID: AchievementDaily10, Name: "Daily Regular", Description: "Complete 10 daily challenges"},
	{ID: AchievementNoHints10, Name: "Sharp Eye", Description: "Answer 10 animals in a row with no hints"},
}

// clientReported lists achievements only the client can observe (session timing).
var clientReported = map[string]bool{
	AchievementLevelSpeed: true,
}

// AnswerContext is the state a newly correct answer is evaluated against.
type AnswerContext struct {
	LevelID       int
	HintsUsed     int
	LettersUsed   int
	TotalCoins    int
	CurrentStreak int
	Progress      domain.Progress
}

// AchievementEvaluator holds the server-side achievement rules. It keeps no
// state of its own; unlocks are idempotent store transactions.
type AchievementEvaluator struct {
	store  ProgressStore
	logger *zap.Logger
}

func NewAchievementEvaluator(store ProgressStore, logger *zap.Logger) *AchievementEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AchievementEvaluator{store: store, logger: logger}
}

// Definitions returns every known achievement in display order.
func (e *AchievementEvaluator) Definitions() []domain.AchievementDefinition {
	out := make([]domain.AchievementDefinition, len(achievementDefinitions))
	copy(out, achievementDefinitions)
	return out
}

// EvaluateAnswer runs after a newly correct answer and returns the ids unlocked
// by this pass. It also advances or breaks the no-assist run.
func (e *AchievementEvaluator) EvaluateAnswer(ctx context.Context, uid string, in AnswerContext) ([]string, error) {
	var candidates []string

	if in.Progress.Guessed() == 1 {
		candidates = append(candidates, AchievementFirstCorrect)
	}

	if domain.LevelComplete(in.Progress[in.LevelID]) {
		perfect, err := e.levelUnassisted(ctx, uid, in.LevelID)
		if err != nil {
			return nil, err
		}
		if perfect {
			candidates = append(candidates, AchievementLevelPerfect)
		}
	}

	if allLevelsMostlyDone(in.Progress) {
		candidates = append(candidates, AchievementAllLevels)
	}
	if in.CurrentStreak >= shortStreakDays {
		candidates = append(candidates, AchievementStreak7)
	}
	if in.CurrentStreak >= longStreakDays {
		candidates = append(candidates, AchievementStreak30)
	}
	if in.TotalCoins >= coinsMilestone {
		candidates = append(candidates, AchievementCoins500)
	}

	run, err := e.store.RecordAnswer(ctx, uid, in.HintsUsed == 0 && in.LettersUsed == 0)
	if err != nil {
		return nil, err
	}
	if run >= noAssistMilestone {
		candidates = append(candidates, AchievementNoHints10)
	}

	return e.unlockAll(ctx, uid, candidates)
}

// EvaluateDailyChallenge runs once per completed challenge.
func (e *AchievementEvaluator) EvaluateDailyChallenge(ctx context.Context, uid string) ([]string, error) {
	completed, err := e.store.CompleteDailyChallenge(ctx, uid)
	if err != nil {
		return nil, err
	}
	if completed < dailyMilestone {
		return []string{}, nil
	}
	return e.unlockAll(ctx, uid, []string{AchievementDaily10})
}

// Report unlocks an achievement observed by the client. Only client-observed
// achievements are accepted; anything the server derives itself is rejected.
func (e *AchievementEvaluator) Report(ctx context.Context, uid, id string) (bool, error) {
	if !clientReported[id] {
		if isKnownAchievement(id) {
			return false, domain.ErrAchievementNotReportable
		}
		return false, domain.ErrUnknownAchievement
	}
	unlocked, err := e.store.UnlockAchievement(ctx, uid, id)
	if err != nil {
		return false, err
	}
	if unlocked {
		e.logger.Info("achievement unlocked", zap.String("user_id", uid), zap.String("achievement", id), zap.Bool("reported", true))
	}
	return unlocked, nil
}

func (e *AchievementEvaluator) unlockAll(ctx context.Context, uid string, ids []string) ([]string, error) {
	unlocked := []string{}
	for _, id := range ids {
		ok, err := e.store.UnlockAchievement(ctx, uid, id)
		if err != nil {
			return unlocked, err
		}
		if ok {
			e.logger.Info("achievement unlocked", zap.String("user_id", uid), zap.String("achievement", id))
			unlocked = append(unlocked, id)
		}
	}
	return unlocked, nil
}

func (e *AchievementEvaluator) levelUnassisted(ctx context.Context, uid string, levelID int) (bool, error) {
	hints, err := e.store.GetHints(ctx, uid)
	if err != nil {
		return false, err
	}
	letters, err := e.store.GetLetters(ctx, uid)
	if err != nil {
		return false, err
	}
	return sum(hints[levelID]) == 0 && sum(letters[levelID]) == 0, nil
}

// allLevelsMostlyDone reports whether every level is at least 80% guessed.
// An empty level never qualifies.
func allLevelsMostlyDone(p domain.Progress) bool {
	if len(p) == 0 {
		return false
	}
	for _, flags := range p {
		if len(flags) == 0 {
			return false
		}
		guessed := 0
		for _, g := range flags {
			if g {
				guessed++
			}
		}
		if float64(guessed)/float64(len(flags)) < allLevelsFraction {
			return false
		}
	}
	return true
}

func isKnownAchievement(id string) bool {
	for _, def := range achievementDefinitions {
		if def.ID == id {
			return true
		}
	}
	return false
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
