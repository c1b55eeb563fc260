package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"animal-quiz-service/internal/domain"
)

var testLayout = domain.Layout{
	LevelIDs: []int{1, 2},
	Counts:   map[int]int{1: 2, 2: 3},
}

func newTestStore(now time.Time) *Store {
	return NewStoreWithClock(testLayout, func() time.Time { return now })
}

func TestCreateUserRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(time.Now())

	if _, err := store.CreateUser(ctx, domain.NewUser{ID: "u1", Username: "ada"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.CreateUser(ctx, domain.NewUser{ID: "u1", Username: "again"}); !errors.Is(err, domain.ErrUserAlreadyExists) {
		t.Fatalf("expected ErrUserAlreadyExists, got %v", err)
	}
	if _, err := store.GetUser(ctx, "nobody"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestConcurrentAnswersRewardOnce(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	if _, err := store.CreateUser(ctx, domain.NewUser{ID: "u1", Username: "ada"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	const workers = 16
	var wg sync.WaitGroup
	awarded := make(chan int, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			upd, err := store.SubmitAnswerUpdate(ctx, "u1", 1, 0, 10, 20)
			if err != nil {
				t.Errorf("submit: %v", err)
				return
			}
			awarded <- upd.CoinsAwarded
		}()
	}
	wg.Wait()
	close(awarded)

	winners := 0
	for coins := range awarded {
		if coins > 0 {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one rewarded submission, got %d", winners)
	}
	coins, _ := store.GetCoins(ctx, "u1")
	points, _ := store.GetPoints(ctx, "u1")
	if coins != 12 || points != 20 {
		t.Fatalf("expected 12 coins and 20 points, got %d/%d", coins, points)
	}
}

func TestPurchasesAndCounters(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(time.Now())
	_, _ = store.CreateUser(ctx, domain.NewUser{ID: "u1", Username: "ada"})

	if _, err := store.BuyHint(ctx, "u1", 1, 0, []int{5}); !errors.Is(err, domain.ErrInsufficientCoins) {
		t.Fatalf("expected ErrInsufficientCoins, got %v", err)
	}
	_, _ = store.SubmitAnswerUpdate(ctx, "u1", 2, 0, 10, 20)

	p, err := store.BuyHint(ctx, "u1", 2, 1, []int{5, 10})
	if err != nil {
		t.Fatalf("buy hint: %v", err)
	}
	if p.Revealed != 1 || p.TotalCoins != 7 {
		t.Fatalf("unexpected purchase %+v", p)
	}
	hints, _ := store.GetHints(ctx, "u1")
	if hints[2][1] != 1 {
		t.Fatalf("expected hint recorded, got %v", hints)
	}
	hints[2][1] = 99
	again, _ := store.GetHints(ctx, "u1")
	if again[2][1] != 1 {
		t.Fatalf("returned counters must be detached from the store")
	}
	if _, err := store.RevealLetter(ctx, "u1", 2, 9, 30, 3); !errors.Is(err, domain.ErrInvalidIndex) {
		t.Fatalf("expected ErrInvalidIndex, got %v", err)
	}
}

func TestDailyChallengeLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	_, _ = store.CreateUser(ctx, domain.NewUser{ID: "u1", Username: "ada"})
	_, _ = store.CreateUser(ctx, domain.NewUser{ID: "u2", Username: "bob"})

	state, err := store.GetDailyChallenge(ctx, "u1", "2024-05-01", 2)
	if err != nil || len(state.Answered) != 2 {
		t.Fatalf("unexpected initial state %+v (%v)", state, err)
	}

	_, _ = store.SubmitDailyChallengeAnswer(ctx, "u1", "2024-05-01", 0, 20, 2)
	upd, err := store.SubmitDailyChallengeAnswer(ctx, "u1", "2024-05-01", 1, 3, 2)
	if err != nil || !upd.Completed || upd.TotalScore != 23 {
		t.Fatalf("unexpected completion %+v (%v)", upd, err)
	}

	rows, _ := store.GetDailyChallengeLeaderboard(ctx, "2024-05-01")
	if len(rows) != 1 || rows[0].UserID != "u1" || rows[0].CompletedAt == nil {
		t.Fatalf("unexpected rows %+v", rows)
	}

	resized, _ := store.GetDailyChallenge(ctx, "u1", "2024-05-01", 3)
	if len(resized.Answered) != 3 || !resized.Answered[1] || resized.Answered[2] {
		t.Fatalf("expected padded state, got %+v", resized)
	}
}

func TestResetUserGameData(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(time.Now())
	_, _ = store.CreateUser(ctx, domain.NewUser{ID: "u1", Username: "ada"})
	_, _ = store.SubmitAnswerUpdate(ctx, "u1", 1, 0, 10, 20)
	_, _ = store.UnlockAchievement(ctx, "u1", "first_correct")
	_, _ = store.SubmitDailyChallengeAnswer(ctx, "u1", "2024-05-01", 0, 20, 2)

	ok, err := store.ResetUserGameData(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("reset: %v %v", ok, err)
	}
	user, _ := store.GetUser(ctx, "u1")
	if user.Username != "ada" || user.TotalCoins != 0 || user.TotalPoints != 0 {
		t.Fatalf("unexpected user after reset %+v", user)
	}
	if n, _ := store.GetAchievementsCount(ctx, "u1"); n != 0 {
		t.Fatalf("expected achievements cleared, got %d", n)
	}
	if rows, _ := store.GetDailyChallengeLeaderboard(ctx, "2024-05-01"); len(rows) != 0 {
		t.Fatalf("expected challenge state cleared, got %+v", rows)
	}

	ok, err = store.ResetUserGameData(ctx, "ghost")
	if err != nil || ok {
		t.Fatalf("expected false for unknown user, got %v %v", ok, err)
	}
}

func TestGetAllUsersIncludesTotals(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(time.Now())
	_, _ = store.CreateUser(ctx, domain.NewUser{ID: "u2", Username: "bob"})
	_, _ = store.CreateUser(ctx, domain.NewUser{ID: "u1", Username: "ada"})
	_, _ = store.SubmitAnswerUpdate(ctx, "u1", 1, 0, 10, 20)
	_, _ = store.SubmitAnswerUpdate(ctx, "u1", 1, 1, 10, 15)
	_, _ = store.UnlockAchievement(ctx, "u1", "first_correct")

	all, err := store.GetAllUsers(ctx)
	if err != nil {
		t.Fatalf("all users: %v", err)
	}
	if len(all) != 2 || all[0].User.ID != "u1" {
		t.Fatalf("unexpected summaries %+v", all)
	}
	if all[0].User.TotalPoints != 35 || all[0].Progress.Completed() != 1 || all[0].AchievementsCount != 1 {
		t.Fatalf("unexpected summary %+v", all[0])
	}
}
