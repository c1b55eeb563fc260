package app

import (
	"context"

	"animal-quiz-service/internal/domain"
)

// ProgressStore abstracts where per-user game state lives (in-memory, Redis).
// Every mutating method is a single isolated transaction against one user's
// record; implementations retry optimistic conflicts internally.
type ProgressStore interface {
	CreateUser(ctx context.Context, u domain.NewUser) (domain.User, error)
	GetUser(ctx context.Context, uid string) (domain.User, error)
	UpdateUser(ctx context.Context, uid string, update domain.UserUpdate) (domain.User, error)
	GetAllUsers(ctx context.Context) ([]domain.UserSummary, error)

	EnsureProgress(ctx context.Context, uid string) (domain.Progress, error)
	SubmitAnswerUpdate(ctx context.Context, uid string, levelID, index, coinsPerCorrect, points int) (domain.AnswerUpdate, error)
	BuyHint(ctx context.Context, uid string, levelID, index int, costs []int) (domain.Purchase, error)
	RevealLetter(ctx context.Context, uid string, levelID, index, cost, maxReveals int) (domain.Purchase, error)
	RecordAnswer(ctx context.Context, uid string, noAssistCorrect bool) (int, error)
	CompleteDailyChallenge(ctx context.Context, uid string) (int, error)

	GetCoins(ctx context.Context, uid string) (int, error)
	GetPoints(ctx context.Context, uid string) (int, error)
	GetHints(ctx context.Context, uid string) (domain.Counters, error)
	GetLetters(ctx context.Context, uid string) (domain.Counters, error)
	CountCompleted(ctx context.Context, uid string) (int, error)

	GetDailyChallenge(ctx context.Context, uid, date string, size int) (domain.ChallengeState, error)
	SubmitDailyChallengeAnswer(ctx context.Context, uid, date string, index, points, size int) (domain.ChallengeUpdate, error)
	GetDailyChallengeLeaderboard(ctx context.Context, date string) ([]domain.ChallengeRow, error)

	UnlockAchievement(ctx context.Context, uid, id string) (bool, error)
	GetAchievements(ctx context.Context, uid string) ([]domain.UnlockedAchievement, error)
	GetAchievementsCount(ctx context.Context, uid string) (int, error)
	ResetUserGameData(ctx context.Context, uid string) (bool, error)
}

// Catalog is the read-only content the services validate against.
type Catalog interface {
	ResolveLocale(preference string) string
	LevelIDs() []int
	AnimalCount(levelID int) int
	AnimalName(levelID, index int, locale string) (string, bool)
	Level(levelID int, locale string) (domain.Level, bool)
	Levels(locale string) []domain.Level
	Flatten(locale string) []domain.Animal
}

// Publisher receives notifications that a user's ranking inputs changed.
type Publisher interface {
	Publish(event domain.LeaderboardEvent)
}

type noopPublisher struct{}

func (noopPublisher) Publish(domain.LeaderboardEvent) {}
