// Package progress implements every read-modify-write rule on a user's game
// state. Stores load a Record, call one method inside their transaction and
// persist the result, so the in-memory and Redis backends share semantics.
package progress

import (
	"sort"
	"time"

	"animal-quiz-service/internal/domain"
	"animal-quiz-service/internal/scoring"
)

// Record is the whole per-user document.
type Record struct {
	User         domain.User          `json:"user"`
	Progress     domain.Progress      `json:"progress"`
	Hints        domain.Counters      `json:"hints"`
	Letters      domain.Counters      `json:"letters"`
	Achievements map[string]time.Time `json:"achievements"`
}

// NewRecord creates a fresh profile with zeroed game state.
func NewRecord(u domain.NewUser, now time.Time, layout domain.Layout) *Record {
	r := &Record{
		User: domain.User{
			ID:        u.ID,
			Username:  u.Username,
			Email:     u.Email,
			PhotoURL:  u.PhotoURL,
			CreatedAt: now.UTC(),
		},
	}
	r.Normalize(layout)
	return r
}

// Normalize initializes missing sub-records and resizes every level to the
// catalog's current animal count, keeping existing flags and counters.
// Levels no longer in the catalog are dropped.
func (r *Record) Normalize(layout domain.Layout) {
	if r.Achievements == nil {
		r.Achievements = make(map[string]time.Time)
	}
	progress := make(domain.Progress, len(layout.LevelIDs))
	hints := make(domain.Counters, len(layout.LevelIDs))
	letters := make(domain.Counters, len(layout.LevelIDs))
	for _, id := range layout.LevelIDs {
		n := layout.Counts[id]
		progress[id] = resize(r.Progress[id], n)
		hints[id] = resize(r.Hints[id], n)
		letters[id] = resize(r.Letters[id], n)
	}
	r.Progress, r.Hints, r.Letters = progress, hints, letters
}

// ApplyCorrectAnswer marks a slot guessed and awards coins, points and the
// streak bonus. An already guessed slot awards nothing and reports the
// current totals.
func (r *Record) ApplyCorrectAnswer(levelID, index, coinsPerCorrect, points int, now time.Time) (domain.AnswerUpdate, error) {
	flags, ok := r.Progress[levelID]
	if !ok || index < 0 || index >= len(flags) {
		return domain.AnswerUpdate{}, domain.ErrInvalidIndex
	}

	bonus, awarded, applied := 0, 0, false
	if !flags[index] {
		applied = true
		flags[index] = true
		today := scoring.DateISO(now)
		firstToday := r.User.LastActivityDate != today
		r.User.CurrentStreak, r.User.LastActivityDate = scoring.AdvanceStreak(r.User.LastActivityDate, r.User.CurrentStreak, now)
		if firstToday {
			bonus = scoring.StreakBonus(r.User.CurrentStreak)
		}
		awarded = coinsPerCorrect + bonus
		r.User.TotalCoins += awarded
		r.User.TotalPoints += points
		r.User.TotalCorrect++
	}

	return domain.AnswerUpdate{
		Applied:          applied,
		CoinsAwarded:     awarded,
		TotalCoins:       r.User.TotalCoins,
		TotalPoints:      r.User.TotalPoints,
		CurrentStreak:    r.User.CurrentStreak,
		LastActivityDate: r.User.LastActivityDate,
		StreakBonusCoins: bonus,
	}, nil
}

// BuyHint debits the next cost of the schedule and reveals one more hint.
func (r *Record) BuyHint(levelID, index int, costs []int) (domain.Purchase, error) {
	counts, ok := r.Hints[levelID]
	if !ok || index < 0 || index >= len(counts) {
		return domain.Purchase{}, domain.ErrInvalidIndex
	}
	cost, ok := scoring.HintCost(costs, counts[index])
	if !ok {
		return domain.Purchase{}, domain.ErrMaxHintsReached
	}
	if r.User.TotalCoins < cost {
		return domain.Purchase{}, domain.ErrInsufficientCoins
	}
	r.User.TotalCoins -= cost
	counts[index]++
	r.User.TotalHintsUsed++
	return domain.Purchase{Revealed: counts[index], TotalCoins: r.User.TotalCoins}, nil
}

// RevealLetter debits a flat cost and reveals one more letter, up to maxReveals.
func (r *Record) RevealLetter(levelID, index, cost, maxReveals int) (domain.Purchase, error) {
	counts, ok := r.Letters[levelID]
	if !ok || index < 0 || index >= len(counts) {
		return domain.Purchase{}, domain.ErrInvalidIndex
	}
	if counts[index] >= maxReveals {
		return domain.Purchase{}, domain.ErrMaxRevealsReached
	}
	if r.User.TotalCoins < cost {
		return domain.Purchase{}, domain.ErrInsufficientCoins
	}
	r.User.TotalCoins -= cost
	counts[index]++
	r.User.TotalLettersUsed++
	return domain.Purchase{Revealed: counts[index], TotalCoins: r.User.TotalCoins}, nil
}

// RecordAnswer counts an answer and advances or breaks the no-assist run.
func (r *Record) RecordAnswer(noAssistCorrect bool) int {
	r.User.TotalAnswers++
	if noAssistCorrect {
		r.User.ConsecutiveNoHintCorrect++
	} else {
		r.User.ConsecutiveNoHintCorrect = 0
	}
	return r.User.ConsecutiveNoHintCorrect
}

// CompleteDailyChallenge bumps the completed challenge counter.
func (r *Record) CompleteDailyChallenge() int {
	r.User.DailyChallengesCompleted++
	return r.User.DailyChallengesCompleted
}

// Unlock adds an achievement, reporting false when it was already unlocked.
func (r *Record) Unlock(id string, now time.Time) bool {
	if _, ok := r.Achievements[id]; ok {
		return false
	}
	r.Achievements[id] = now.UTC()
	return true
}

// Apply changes profile fields.
func (r *Record) Apply(update domain.UserUpdate) {
	if update.Username != nil {
		r.User.Username = *update.Username
	}
	if update.PhotoURL != nil {
		r.User.PhotoURL = *update.PhotoURL
	}
}

// Reset zeroes all gameplay state while keeping identity fields.
func (r *Record) Reset(layout domain.Layout) {
	r.User = domain.User{
		ID:        r.User.ID,
		Username:  r.User.Username,
		Email:     r.User.Email,
		PhotoURL:  r.User.PhotoURL,
		CreatedAt: r.User.CreatedAt,
	}
	r.Progress = layout.EmptyProgress()
	r.Hints = layout.EmptyCounters()
	r.Letters = layout.EmptyCounters()
	r.Achievements = make(map[string]time.Time)
}

// Summary returns the leaderboard view of the record.
func (r *Record) Summary() domain.UserSummary {
	return domain.UserSummary{
		User:              r.User,
		Progress:          CloneProgress(r.Progress),
		AchievementsCount: len(r.Achievements),
	}
}

// AchievementList returns unlocked achievements ordered by unlock time.
func (r *Record) AchievementList() []domain.UnlockedAchievement {
	out := make([]domain.UnlockedAchievement, 0, len(r.Achievements))
	for id, at := range r.Achievements {
		out = append(out, domain.UnlockedAchievement{ID: id, UnlockedAt: at})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UnlockedAt.Equal(out[j].UnlockedAt) {
			return out[i].UnlockedAt.Before(out[j].UnlockedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// CloneProgress deep-copies a progress map.
func CloneProgress(p domain.Progress) domain.Progress {
	out := make(domain.Progress, len(p))
	for id, flags := range p {
		out[id] = append([]bool(nil), flags...)
	}
	return out
}

// CloneCounters deep-copies a counters map.
func CloneCounters(c domain.Counters) domain.Counters {
	out := make(domain.Counters, len(c))
	for id, counts := range c {
		out[id] = append([]int(nil), counts...)
	}
	return out
}

func resize[T any](values []T, n int) []T {
	out := make([]T, n)
	copy(out, values)
	return out
}
