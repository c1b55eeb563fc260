package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"animal-quiz-service/internal/domain"
	"animal-quiz-service/internal/progress"
)

// Store is an in-memory implementation of app.ProgressStore. The users map is
// guarded by one lock; each user record carries its own mutex so transactions
// on the same user serialize while different users proceed in parallel.
type Store struct {
	layout domain.Layout
	now    func() time.Time

	mu    sync.RWMutex
	users map[string]*userEntry
}

type userEntry struct {
	mu         sync.Mutex
	rec        *progress.Record
	challenges map[string]*domain.ChallengeState
}

func NewStore(layout domain.Layout) *Store {
	return NewStoreWithClock(layout, time.Now)
}

// NewStoreWithClock is test-only for deterministic streak dates.
func NewStoreWithClock(layout domain.Layout, now func() time.Time) *Store {
	return &Store{
		layout: layout,
		now:    now,
		users:  make(map[string]*userEntry),
	}
}

func (s *Store) CreateUser(_ context.Context, u domain.NewUser) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return domain.User{}, domain.ErrUserAlreadyExists
	}
	rec := progress.NewRecord(u, s.now(), s.layout)
	s.users[u.ID] = &userEntry{
		rec:        rec,
		challenges: make(map[string]*domain.ChallengeState),
	}
	return rec.User, nil
}

func (s *Store) GetUser(_ context.Context, uid string) (domain.User, error) {
	var user domain.User
	err := s.with(uid, func(e *userEntry) error {
		user = e.rec.User
		return nil
	})
	return user, err
}

func (s *Store) UpdateUser(_ context.Context, uid string, update domain.UserUpdate) (domain.User, error) {
	var user domain.User
	err := s.with(uid, func(e *userEntry) error {
		e.rec.Apply(update)
		user = e.rec.User
		return nil
	})
	return user, err
}

func (s *Store) GetAllUsers(_ context.Context) ([]domain.UserSummary, error) {
	s.mu.RLock()
	entries := make([]*userEntry, 0, len(s.users))
	for _, e := range s.users {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]domain.UserSummary, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.rec.Summary())
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].User.ID < out[j].User.ID })
	return out, nil
}

func (s *Store) EnsureProgress(_ context.Context, uid string) (domain.Progress, error) {
	var p domain.Progress
	err := s.with(uid, func(e *userEntry) error {
		p = progress.CloneProgress(e.rec.Progress)
		return nil
	})
	return p, err
}

func (s *Store) SubmitAnswerUpdate(_ context.Context, uid string, levelID, index, coinsPerCorrect, points int) (domain.AnswerUpdate, error) {
	var upd domain.AnswerUpdate
	err := s.with(uid, func(e *userEntry) error {
		var err error
		upd, err = e.rec.ApplyCorrectAnswer(levelID, index, coinsPerCorrect, points, s.now())
		return err
	})
	return upd, err
}

func (s *Store) BuyHint(_ context.Context, uid string, levelID, index int, costs []int) (domain.Purchase, error) {
	var p domain.Purchase
	err := s.with(uid, func(e *userEntry) error {
		var err error
		p, err = e.rec.BuyHint(levelID, index, costs)
		return err
	})
	return p, err
}

func (s *Store) RevealLetter(_ context.Context, uid string, levelID, index, cost, maxReveals int) (domain.Purchase, error) {
	var p domain.Purchase
	err := s.with(uid, func(e *userEntry) error {
		var err error
		p, err = e.rec.RevealLetter(levelID, index, cost, maxReveals)
		return err
	})
	return p, err
}

func (s *Store) RecordAnswer(_ context.Context, uid string, noAssistCorrect bool) (int, error) {
	var run int
	err := s.with(uid, func(e *userEntry) error {
		run = e.rec.RecordAnswer(noAssistCorrect)
		return nil
	})
	return run, err
}

func (s *Store) CompleteDailyChallenge(_ context.Context, uid string) (int, error) {
	var n int
	err := s.with(uid, func(e *userEntry) error {
		n = e.rec.CompleteDailyChallenge()
		return nil
	})
	return n, err
}

func (s *Store) GetCoins(_ context.Context, uid string) (int, error) {
	var coins int
	err := s.with(uid, func(e *userEntry) error {
		coins = e.rec.User.TotalCoins
		return nil
	})
	return coins, err
}

func (s *Store) GetPoints(_ context.Context, uid string) (int, error) {
	var points int
	err := s.with(uid, func(e *userEntry) error {
		points = e.rec.User.TotalPoints
		return nil
	})
	return points, err
}

func (s *Store) GetHints(_ context.Context, uid string) (domain.Counters, error) {
	var c domain.Counters
	err := s.with(uid, func(e *userEntry) error {
		c = progress.CloneCounters(e.rec.Hints)
		return nil
	})
	return c, err
}

func (s *Store) GetLetters(_ context.Context, uid string) (domain.Counters, error) {
	var c domain.Counters
	err := s.with(uid, func(e *userEntry) error {
		c = progress.CloneCounters(e.rec.Letters)
		return nil
	})
	return c, err
}

func (s *Store) CountCompleted(_ context.Context, uid string) (int, error) {
	var n int
	err := s.with(uid, func(e *userEntry) error {
		n = e.rec.Progress.Completed()
		return nil
	})
	return n, err
}

func (s *Store) GetDailyChallenge(_ context.Context, uid, date string, size int) (domain.ChallengeState, error) {
	var state domain.ChallengeState
	err := s.with(uid, func(e *userEntry) error {
		stored, ok := e.challenges[date]
		if !ok {
			state = progress.NewChallenge(size)
			return nil
		}
		state = copyChallenge(progress.ResizeChallenge(*stored, size))
		return nil
	})
	return state, err
}

func (s *Store) SubmitDailyChallengeAnswer(_ context.Context, uid, date string, index, points, size int) (domain.ChallengeUpdate, error) {
	var upd domain.ChallengeUpdate
	err := s.with(uid, func(e *userEntry) error {
		state := progress.NewChallenge(size)
		if stored, ok := e.challenges[date]; ok {
			state = copyChallenge(progress.ResizeChallenge(*stored, size))
		}
		var err error
		upd, err = progress.AnswerChallenge(&state, index, points, s.now())
		if err != nil {
			return err
		}
		e.challenges[date] = &state
		return nil
	})
	return upd, err
}

func (s *Store) GetDailyChallengeLeaderboard(_ context.Context, date string) ([]domain.ChallengeRow, error) {
	s.mu.RLock()
	entries := make([]*userEntry, 0, len(s.users))
	for _, e := range s.users {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	rows := make([]domain.ChallengeRow, 0)
	for _, e := range entries {
		e.mu.Lock()
		if state, ok := e.challenges[date]; ok {
			rows = append(rows, domain.ChallengeRow{
				UserID:      e.rec.User.ID,
				Score:       state.Score,
				CompletedAt: state.CompletedAt,
			})
		}
		e.mu.Unlock()
	}
	return rows, nil
}

func (s *Store) UnlockAchievement(_ context.Context, uid, id string) (bool, error) {
	var unlocked bool
	err := s.with(uid, func(e *userEntry) error {
		unlocked = e.rec.Unlock(id, s.now())
		return nil
	})
	return unlocked, err
}

func (s *Store) GetAchievements(_ context.Context, uid string) ([]domain.UnlockedAchievement, error) {
	var list []domain.UnlockedAchievement
	err := s.with(uid, func(e *userEntry) error {
		list = e.rec.AchievementList()
		return nil
	})
	return list, err
}

func (s *Store) GetAchievementsCount(_ context.Context, uid string) (int, error) {
	var n int
	err := s.with(uid, func(e *userEntry) error {
		n = len(e.rec.Achievements)
		return nil
	})
	return n, err
}

func (s *Store) ResetUserGameData(_ context.Context, uid string) (bool, error) {
	err := s.with(uid, func(e *userEntry) error {
		e.rec.Reset(s.layout)
		e.challenges = make(map[string]*domain.ChallengeState)
		return nil
	})
	if errors.Is(err, domain.ErrUserNotFound) {
		return false, nil
	}
	return err == nil, err
}

// with runs fn while holding the user's record lock.
func (s *Store) with(uid string, fn func(*userEntry) error) error {
	s.mu.RLock()
	e, ok := s.users[uid]
	s.mu.RUnlock()
	if !ok {
		return domain.ErrUserNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e)
}

func copyChallenge(state domain.ChallengeState) domain.ChallengeState {
	state.Answered = append([]bool(nil), state.Answered...)
	return state
}
