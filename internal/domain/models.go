package domain

import "time"

// Identity is the verified caller as reported by the identity provider.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// User is the identity-keyed profile together with its denormalized totals.
type User struct {
	ID                       string    `json:"id"`
	Username                 string    `json:"username"`
	Email                    string    `json:"email,omitempty"`
	PhotoURL                 string    `json:"photoUrl,omitempty"`
	CreatedAt                time.Time `json:"createdAt"`
	CurrentStreak            int       `json:"currentStreak"`
	LastActivityDate         string    `json:"lastActivityDate,omitempty"` // ISO date, empty when never active
	ConsecutiveNoHintCorrect int       `json:"consecutiveNoHintCorrect"`
	DailyChallengesCompleted int       `json:"dailyChallengesCompleted"`
	TotalAnswers             int       `json:"totalAnswers"`
	TotalCorrect             int       `json:"totalCorrect"`
	TotalHintsUsed           int       `json:"totalHintsUsed"`
	TotalLettersUsed         int       `json:"totalLettersUsed"`
	TotalCoins               int       `json:"totalCoins"`
	TotalPoints              int       `json:"totalPoints"`
}

// NewUser carries the registration fields for CreateUser.
type NewUser struct {
	ID       string
	Email    string
	Username string
	PhotoURL string
}

// UserUpdate lists the profile fields a caller may change; nil means unchanged.
type UserUpdate struct {
	Username *string
	PhotoURL *string
}

// Progress maps level id to one guessed flag per animal slot.
type Progress map[int][]bool

// Counters maps level id to one counter per animal slot (hints or letters revealed).
type Counters map[int][]int

// Guessed counts the true flags across every level.
func (p Progress) Guessed() int {
	total := 0
	for _, flags := range p {
		for _, g := range flags {
			if g {
				total++
			}
		}
	}
	return total
}

// Completed counts levels whose every slot is guessed.
func (p Progress) Completed() int {
	completed := 0
	for _, flags := range p {
		if LevelComplete(flags) {
			completed++
		}
	}
	return completed
}

// LevelComplete reports whether a non-empty level has every slot guessed.
func LevelComplete(flags []bool) bool {
	if len(flags) == 0 {
		return false
	}
	for _, g := range flags {
		if !g {
			return false
		}
	}
	return true
}

// UserSummary is one row of the leaderboard bulk read.
type UserSummary struct {
	User              User
	Progress          Progress
	AchievementsCount int
}

// AnswerUpdate is the outcome of the atomic answer transaction. Applied is
// false when the slot had already been guessed and nothing was awarded.
type AnswerUpdate struct {
	Applied          bool
	CoinsAwarded     int
	TotalCoins       int
	TotalPoints      int
	CurrentStreak    int
	LastActivityDate string
	StreakBonusCoins int
}

// Purchase is the outcome of a hint or letter purchase.
type Purchase struct {
	Revealed   int
	TotalCoins int
}

// ChallengeState is a user's persisted state for one challenge date.
type ChallengeState struct {
	Answered    []bool     `json:"answered"`
	Score       int        `json:"score"`
	CompletedAt *time.Time `json:"completedAt"`
}

// AllAnswered reports whether every challenge slot has been answered.
func (s ChallengeState) AllAnswered() bool {
	return LevelComplete(s.Answered)
}

// ChallengeUpdate is the outcome of the atomic challenge answer transaction.
type ChallengeUpdate struct {
	PointsAwarded int
	TotalScore    int
	Completed     bool
	CompletedAt   *time.Time
}

// ChallengeRow is one user's result for a challenge date.
type ChallengeRow struct {
	UserID      string
	Score       int
	CompletedAt *time.Time
}

// UnlockedAchievement records when an achievement was unlocked.
type UnlockedAchievement struct {
	ID         string    `json:"id"`
	UnlockedAt time.Time `json:"unlockedAt"`
}

// AchievementDefinition describes an achievement for clients.
type AchievementDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Animal is a locale-resolved catalog animal.
type Animal struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Emoji    string   `json:"emoji"`
	ImageURL string   `json:"imageUrl"`
	Hints    []string `json:"hints"`
	FunFacts []string `json:"funFacts"`
}

// Level is a locale-resolved catalog level.
type Level struct {
	ID      int      `json:"id"`
	Title   string   `json:"title"`
	Emoji   string   `json:"emoji"`
	Animals []Animal `json:"animals"`
}

// AnimalStatus is an animal annotated with the caller's progress on its slot.
type AnimalStatus struct {
	Animal
	Guessed         bool `json:"guessed"`
	HintsRevealed   int  `json:"hintsRevealed"`
	LettersRevealed int  `json:"lettersRevealed"`
}

// LevelDetail is a level with per-animal progress.
type LevelDetail struct {
	ID      int            `json:"id"`
	Title   string         `json:"title"`
	Emoji   string         `json:"emoji"`
	Animals []AnimalStatus `json:"animals"`
}

// ChallengeSubmission is a daily challenge answer as received from a client.
type ChallengeSubmission struct {
	AnimalIndex int
	Answer      string
	Locale      string
	AdRevealed  bool
}

// AnswerSubmission is a quiz answer as received from a client.
type AnswerSubmission struct {
	LevelID         int
	AnimalIndex     int
	Answer          string
	Locale          string
	AdRevealed      bool
	ComboMultiplier float64
}

// AnswerResult summarizes the outcome of an answer submission.
type AnswerResult struct {
	Correct          bool     `json:"correct"`
	CoinsAwarded     int      `json:"coinsAwarded"`
	TotalCoins       int      `json:"totalCoins"`
	PointsAwarded    int      `json:"pointsAwarded"`
	CorrectAnswer    string   `json:"correctAnswer"`
	CurrentStreak    int      `json:"currentStreak"`
	LastActivityDate *string  `json:"lastActivityDate"`
	StreakBonusCoins int      `json:"streakBonusCoins"`
	ComboMultiplier  float64  `json:"comboMultiplier"`
	NewAchievements  []string `json:"newAchievements"`
}

// HintResult is returned after buying a hint.
type HintResult struct {
	TotalCoins    int `json:"totalCoins"`
	HintsRevealed int `json:"hintsRevealed"`
}

// LetterResult is returned after revealing a letter.
type LetterResult struct {
	TotalCoins      int `json:"totalCoins"`
	LettersRevealed int `json:"lettersRevealed"`
}

// LeaderboardEntry is one ranked row of the global leaderboard.
type LeaderboardEntry struct {
	Rank              int    `json:"rank"`
	UserID            string `json:"userId"`
	Username          string `json:"username"`
	TotalPoints       int    `json:"totalPoints"`
	LevelsCompleted   int    `json:"levelsCompleted"`
	PhotoURL          string `json:"photoUrl,omitempty"`
	CurrentStreak     int    `json:"currentStreak"`
	AchievementsCount int    `json:"achievementsCount"`
}

// LeaderboardPage is a paginated slice of the global ranking.
type LeaderboardPage struct {
	Entries []LeaderboardEntry `json:"entries"`
	Total   int                `json:"total"`
}

// ChallengeLeaderboardEntry is one ranked row of a daily challenge.
type ChallengeLeaderboardEntry struct {
	Rank        int        `json:"rank"`
	UserID      string     `json:"userId"`
	Username    string     `json:"username"`
	Score       int        `json:"score"`
	CompletedAt *time.Time `json:"completedAt"`
	PhotoURL    string     `json:"photoUrl,omitempty"`
}

// ChallengeLeaderboard is a paginated ranking for one challenge date.
type ChallengeLeaderboard struct {
	Date    string                      `json:"date"`
	Entries []ChallengeLeaderboardEntry `json:"entries"`
	Total   int                         `json:"total"`
}

// DailyChallenge is today's challenge as seen by one user.
type DailyChallenge struct {
	Date      string   `json:"date"`
	Animals   []Animal `json:"animals"`
	Answered  []bool   `json:"answered"`
	Completed bool     `json:"completed"`
	Score     *int     `json:"score"`
}

// LeaderboardEvent announces that a user's ranking inputs changed.
type LeaderboardEvent struct {
	UserID string    `json:"userId"`
	At     time.Time `json:"at"`
}

// Layout is the shape of the catalog as seen by stores: ordered level ids and
// the animal count of each level.
type Layout struct {
	LevelIDs []int
	Counts   map[int]int
}

// EmptyProgress returns all-false flags for every level of the layout.
func (l Layout) EmptyProgress() Progress {
	p := make(Progress, len(l.LevelIDs))
	for _, id := range l.LevelIDs {
		p[id] = make([]bool, l.Counts[id])
	}
	return p
}

// EmptyCounters returns zeroed counters for every level of the layout.
func (l Layout) EmptyCounters() Counters {
	c := make(Counters, len(l.LevelIDs))
	for _, id := range l.LevelIDs {
		c[id] = make([]int, l.Counts[id])
	}
	return c
}
