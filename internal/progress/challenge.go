package progress

import (
	"time"

	"animal-quiz-service/internal/domain"
)

// NewChallenge returns an unanswered challenge of the given size.
func NewChallenge(size int) domain.ChallengeState {
	return domain.ChallengeState{Answered: make([]bool, size)}
}

// ResizeChallenge pads or truncates the answered flags to size, keeping the
// flags already recorded.
func ResizeChallenge(state domain.ChallengeState, size int) domain.ChallengeState {
	if len(state.Answered) != size {
		state.Answered = resize(state.Answered, size)
	}
	return state
}

// AnswerChallenge marks a challenge slot answered. Answering a slot twice
// awards nothing; CompletedAt is set exactly once, when the last slot flips.
func AnswerChallenge(state *domain.ChallengeState, index, points int, now time.Time) (domain.ChallengeUpdate, error) {
	if index < 0 || index >= len(state.Answered) {
		return domain.ChallengeUpdate{}, domain.ErrInvalidIndex
	}

	awarded := 0
	if !state.Answered[index] {
		state.Answered[index] = true
		awarded = points
		state.Score += points
	}

	completed := state.AllAnswered()
	if completed && state.CompletedAt == nil {
		at := now.UTC()
		state.CompletedAt = &at
	}

	return domain.ChallengeUpdate{
		PointsAwarded: awarded,
		TotalScore:    state.Score,
		Completed:     completed,
		CompletedAt:   state.CompletedAt,
	}, nil
}
