package redis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"animal-quiz-service/internal/domain"
	"animal-quiz-service/internal/progress"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultMaxRetries bounds optimistic transaction attempts per operation.
const DefaultMaxRetries = 5

// Store is the Redis implementation of app.ProgressStore.
// Layout:
//
//	quiz:users                      SET of user ids
//	quiz:user:{uid}                 JSON progress.Record
//	quiz:challenge:{date}:{uid}     JSON domain.ChallengeState
//	quiz:challenge-users:{date}     SET of user ids with state for date
//	quiz:user-challenges:{uid}      SET of dates the user has state for
//
// Every mutation runs under WATCH on the user's key and commits with MULTI/EXEC,
// so concurrent writers on the same user serialize. A lost race is retried up
// to maxRetries times before ErrTransactionConflict is returned.
type Store struct {
	client     *redis.Client
	layout     domain.Layout
	maxRetries int
	now        func() time.Time
	logger     *zap.Logger
}

func NewStore(client *redis.Client, layout domain.Layout, maxRetries int, logger *zap.Logger) *Store {
	return NewStoreWithClock(client, layout, maxRetries, logger, time.Now)
}

// NewStoreWithClock is test-only for deterministic streak dates.
func NewStoreWithClock(client *redis.Client, layout domain.Layout, maxRetries int, logger *zap.Logger, now func() time.Time) *Store {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client:     client,
		layout:     layout,
		maxRetries: maxRetries,
		now:        now,
		logger:     logger,
	}
}

func (s *Store) CreateUser(ctx context.Context, u domain.NewUser) (domain.User, error) {
	key := userKey(u.ID)
	var user domain.User
	err := s.transact(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrUserAlreadyExists
		}
		rec := progress.NewRecord(u, s.now(), s.layout)
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, usersKey, u.ID)
			return nil
		})
		user = rec.User
		return err
	}, key)
	return user, err
}

func (s *Store) GetUser(ctx context.Context, uid string) (domain.User, error) {
	rec, err := s.read(ctx, uid)
	if err != nil {
		return domain.User{}, err
	}
	return rec.User, nil
}

func (s *Store) UpdateUser(ctx context.Context, uid string, update domain.UserUpdate) (domain.User, error) {
	var user domain.User
	err := s.update(ctx, uid, func(rec *progress.Record) error {
		rec.Apply(update)
		user = rec.User
		return nil
	})
	return user, err
}

// GetAllUsers reads every user document with a single MGET.
func (s *Store) GetAllUsers(ctx context.Context) ([]domain.UserSummary, error) {
	ids, err := s.client.SMembers(ctx, usersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]domain.UserSummary, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var rec progress.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			s.logger.Warn("skipping unreadable user record", zap.String("user_id", ids[i]), zap.Error(err))
			continue
		}
		rec.Normalize(s.layout)
		out = append(out, rec.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].User.ID < out[j].User.ID })
	return out, nil
}

// EnsureProgress returns the healed progress map, persisting the heal when
// the stored shape no longer matches the catalog.
func (s *Store) EnsureProgress(ctx context.Context, uid string) (domain.Progress, error) {
	var p domain.Progress
	err := s.update(ctx, uid, func(rec *progress.Record) error {
		p = progress.CloneProgress(rec.Progress)
		return nil
	})
	return p, err
}

func (s *Store) SubmitAnswerUpdate(ctx context.Context, uid string, levelID, index, coinsPerCorrect, points int) (domain.AnswerUpdate, error) {
	var upd domain.AnswerUpdate
	err := s.update(ctx, uid, func(rec *progress.Record) error {
		var err error
		upd, err = rec.ApplyCorrectAnswer(levelID, index, coinsPerCorrect, points, s.now())
		return err
	})
	return upd, err
}

func (s *Store) BuyHint(ctx context.Context, uid string, levelID, index int, costs []int) (domain.Purchase, error) {
	var p domain.Purchase
	err := s.update(ctx, uid, func(rec *progress.Record) error {
		var err error
		p, err = rec.BuyHint(levelID, index, costs)
		return err
	})
	return p, err
}

func (s *Store) RevealLetter(ctx context.Context, uid string, levelID, index, cost, maxReveals int) (domain.Purchase, error) {
	var p domain.Purchase
	err := s.update(ctx, uid, func(rec *progress.Record) error {
		var err error
		p, err = rec.RevealLetter(levelID, index, cost, maxReveals)
		return err
	})
	return p, err
}

func (s *Store) RecordAnswer(ctx context.Context, uid string, noAssistCorrect bool) (int, error) {
	var run int
	err := s.update(ctx, uid, func(rec *progress.Record) error {
		run = rec.RecordAnswer(noAssistCorrect)
		return nil
	})
	return run, err
}

func (s *Store) CompleteDailyChallenge(ctx context.Context, uid string) (int, error) {
	var n int
	err := s.update(ctx, uid, func(rec *progress.Record) error {
		n = rec.CompleteDailyChallenge()
		return nil
	})
	return n, err
}

func (s *Store) GetCoins(ctx context.Context, uid string) (int, error) {
	rec, err := s.read(ctx, uid)
	if err != nil {
		return 0, err
	}
	return rec.User.TotalCoins, nil
}

func (s *Store) GetPoints(ctx context.Context, uid string) (int, error) {
	rec, err := s.read(ctx, uid)
	if err != nil {
		return 0, err
	}
	return rec.User.TotalPoints, nil
}

func (s *Store) GetHints(ctx context.Context, uid string) (domain.Counters, error) {
	rec, err := s.read(ctx, uid)
	if err != nil {
		return nil, err
	}
	return rec.Hints, nil
}

func (s *Store) GetLetters(ctx context.Context, uid string) (domain.Counters, error) {
	rec, err := s.read(ctx, uid)
	if err != nil {
		return nil, err
	}
	return rec.Letters, nil
}

func (s *Store) CountCompleted(ctx context.Context, uid string) (int, error) {
	rec, err := s.read(ctx, uid)
	if err != nil {
		return 0, err
	}
	return rec.Progress.Completed(), nil
}

func (s *Store) GetDailyChallenge(ctx context.Context, uid, date string, size int) (domain.ChallengeState, error) {
	n, err := s.client.Exists(ctx, userKey(uid)).Result()
	if err != nil {
		return domain.ChallengeState{}, err
	}
	if n == 0 {
		return domain.ChallengeState{}, domain.ErrUserNotFound
	}
	return loadChallenge(ctx, s.client, challengeKey(date, uid), size)
}

func (s *Store) SubmitDailyChallengeAnswer(ctx context.Context, uid, date string, index, points, size int) (domain.ChallengeUpdate, error) {
	ukey, ckey := userKey(uid), challengeKey(date, uid)
	var upd domain.ChallengeUpdate
	err := s.transact(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, ukey).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrUserNotFound
		}
		state, err := loadChallenge(ctx, tx, ckey, size)
		if err != nil {
			return err
		}
		upd, err = progress.AnswerChallenge(&state, index, points, s.now())
		if err != nil {
			return err
		}
		data, err := json.Marshal(state)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, ckey, data, 0)
			pipe.SAdd(ctx, challengeUsersKey(date), uid)
			pipe.SAdd(ctx, userChallengesKey(uid), date)
			return nil
		})
		return err
	}, ukey, ckey)
	return upd, err
}

func (s *Store) GetDailyChallengeLeaderboard(ctx context.Context, date string) ([]domain.ChallengeRow, error) {
	ids, err := s.client.SMembers(ctx, challengeUsersKey(date)).Result()
	if err != nil {
		return nil, fmt.Errorf("list challenge users: %w", err)
	}
	rows := make([]domain.ChallengeRow, 0, len(ids))
	if len(ids) == 0 {
		return rows, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = challengeKey(date, id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load challenge states: %w", err)
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var state domain.ChallengeState
		if err := json.Unmarshal([]byte(raw), &state); err != nil {
			s.logger.Warn("skipping unreadable challenge state", zap.String("user_id", ids[i]), zap.String("date", date), zap.Error(err))
			continue
		}
		rows = append(rows, domain.ChallengeRow{UserID: ids[i], Score: state.Score, CompletedAt: state.CompletedAt})
	}
	return rows, nil
}

func (s *Store) UnlockAchievement(ctx context.Context, uid, id string) (bool, error) {
	var unlocked bool
	err := s.update(ctx, uid, func(rec *progress.Record) error {
		unlocked = rec.Unlock(id, s.now())
		return nil
	})
	return unlocked, err
}

func (s *Store) GetAchievements(ctx context.Context, uid string) ([]domain.UnlockedAchievement, error) {
	rec, err := s.read(ctx, uid)
	if err != nil {
		return nil, err
	}
	return rec.AchievementList(), nil
}

func (s *Store) GetAchievementsCount(ctx context.Context, uid string) (int, error) {
	rec, err := s.read(ctx, uid)
	if err != nil {
		return 0, err
	}
	return len(rec.Achievements), nil
}

// ResetUserGameData zeroes the record and drops every challenge state the user owns.
func (s *Store) ResetUserGameData(ctx context.Context, uid string) (bool, error) {
	ukey, dkey := userKey(uid), userChallengesKey(uid)
	err := s.transact(ctx, func(tx *redis.Tx) error {
		rec, err := s.load(ctx, tx, uid)
		if err != nil {
			return err
		}
		dates, err := tx.SMembers(ctx, dkey).Result()
		if err != nil {
			return err
		}
		rec.Reset(s.layout)
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, ukey, data, 0)
			for _, date := range dates {
				pipe.Del(ctx, challengeKey(date, uid))
				pipe.SRem(ctx, challengeUsersKey(date), uid)
			}
			pipe.Del(ctx, dkey)
			return nil
		})
		return err
	}, ukey, dkey)
	if errors.Is(err, domain.ErrUserNotFound) {
		return false, nil
	}
	return err == nil, err
}

// update loads the user's record under WATCH, applies fn and commits the
// result. Nothing is written when fn fails or leaves the stored document
// unchanged, so read-only calls never EXEC and cannot lose a WATCH race.
func (s *Store) update(ctx context.Context, uid string, fn func(*progress.Record) error) error {
	key := userKey(uid)
	return s.transact(ctx, func(tx *redis.Tx) error {
		rec, raw, err := s.decode(ctx, tx, uid)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if bytes.Equal(data, raw) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)
}

func (s *Store) transact(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	s.logger.Warn("redis transaction retries exhausted", zap.Strings("keys", keys), zap.Int("attempts", s.maxRetries))
	return domain.ErrTransactionConflict
}

func (s *Store) read(ctx context.Context, uid string) (*progress.Record, error) {
	return s.load(ctx, s.client, uid)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Store) load(ctx context.Context, g getter, uid string) (*progress.Record, error) {
	rec, _, err := s.decode(ctx, g, uid)
	return rec, err
}

// decode returns the healed record together with the bytes as stored.
func (s *Store) decode(ctx context.Context, g getter, uid string) (*progress.Record, []byte, error) {
	raw, err := g.Get(ctx, userKey(uid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	var rec progress.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, nil, fmt.Errorf("decode user %s: %w", uid, err)
	}
	rec.Normalize(s.layout)
	return &rec, raw, nil
}

func loadChallenge(ctx context.Context, g getter, key string, size int) (domain.ChallengeState, error) {
	raw, err := g.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return progress.NewChallenge(size), nil
	}
	if err != nil {
		return domain.ChallengeState{}, err
	}
	var state domain.ChallengeState
	if err := json.Unmarshal(raw, &state); err != nil {
		return domain.ChallengeState{}, fmt.Errorf("decode challenge: %w", err)
	}
	return progress.ResizeChallenge(state, size), nil
}

const usersKey = "quiz:users"

func userKey(uid string) string {
	return "quiz:user:" + uid
}

func userChallengesKey(uid string) string {
	return "quiz:user-challenges:" + uid
}

func challengeKey(date, uid string) string {
	return "quiz:challenge:" + date + ":" + uid
}

func challengeUsersKey(date string) string {
	return "quiz:challenge-users:" + date
}
