// Package scoring holds the pure reward rules: points per answer, the
// calendar-day streak and the hint cost schedule.
package scoring

import (
	"math"
	"time"
)

// DateLayout is the ISO calendar date format used for activity and challenge dates.
const DateLayout = "2006-01-02"

const (
	adRevealedPoints    = 3
	maxStreakBonus      = 20
	challengePoints     = 20
	challengeAdRevealed = 3
)

// assistPoints is indexed by hints+letters used; anything past the end earns the last tier.
var assistPoints = []int{20, 15, 10, 5}

// PointsFor computes the points for a newly correct answer. comboMultiplier is
// expected to be already range-checked to [1.0, 2.0].
func PointsFor(adRevealed bool, hintsUsed, lettersUsed int, comboMultiplier float64) int {
	base := adRevealedPoints
	if !adRevealed {
		assists := hintsUsed + lettersUsed
		if assists < 0 {
			assists = 0
		}
		if assists >= len(assistPoints) {
			assists = len(assistPoints) - 1
		}
		base = assistPoints[assists]
	}
	points := int(math.RoundToEven(float64(base) * comboMultiplier))
	if points < 1 {
		return 1
	}
	return points
}

// ChallengePoints is the flat award for a daily challenge answer.
func ChallengePoints(adRevealed bool) int {
	if adRevealed {
		return challengeAdRevealed
	}
	return challengePoints
}

// AdvanceStreak returns the streak and activity date after a correct answer
// on today. A stored date equal to today leaves the streak untouched, the day
// before increments it, and anything else (empty, older, malformed) restarts at 1.
func AdvanceStreak(lastActivityDate string, currentStreak int, today time.Time) (int, string) {
	todayISO := DateISO(today)
	if lastActivityDate == todayISO {
		return currentStreak, todayISO
	}
	if previous, err := time.Parse(DateLayout, lastActivityDate); err == nil {
		yesterday := Day(today).AddDate(0, 0, -1)
		if previous.Equal(yesterday) {
			return max(0, currentStreak) + 1, todayISO
		}
	}
	return 1, todayISO
}

// StreakBonus is the coin bonus for the first correct answer of a day.
func StreakBonus(streak int) int {
	return min(streak*2, maxStreakBonus)
}

// HintCost returns the price of the next hint given how many were already
// bought for the slot, or false once the schedule is exhausted.
func HintCost(costs []int, alreadyRevealed int) (int, bool) {
	if alreadyRevealed < 0 || alreadyRevealed >= len(costs) {
		return 0, false
	}
	return costs[alreadyRevealed], true
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateISO formats t's UTC calendar date.
func DateISO(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
