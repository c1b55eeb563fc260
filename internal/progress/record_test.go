package progress

import (
	"errors"
	"testing"
	"time"

	"animal-quiz-service/internal/domain"
)

var testLayout = domain.Layout{
	LevelIDs: []int{1, 2},
	Counts:   map[int]int{1: 3, 2: 2},
}

func newTestRecord() *Record {
	return NewRecord(domain.NewUser{ID: "u1", Username: "ada"}, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), testLayout)
}

func TestNewRecordInitializesEveryLevel(t *testing.T) {
	r := newTestRecord()
	if len(r.Progress[1]) != 3 || len(r.Progress[2]) != 2 {
		t.Fatalf("unexpected progress shape %v", r.Progress)
	}
	if len(r.Hints[2]) != 2 || len(r.Letters[1]) != 3 {
		t.Fatalf("unexpected counters shape %v %v", r.Hints, r.Letters)
	}
	if r.User.TotalCoins != 0 || r.User.CurrentStreak != 0 {
		t.Fatalf("expected zeroed totals, got %+v", r.User)
	}
}

func TestNormalizeHealsLengthsAndKeepsFlags(t *testing.T) {
	r := &Record{
		Progress: domain.Progress{1: {true}, 9: {true, true}},
		Hints:    domain.Counters{1: {2, 0, 0, 0, 0}},
	}
	r.Normalize(testLayout)
	if got := r.Progress[1]; len(got) != 3 || !got[0] || got[1] {
		t.Fatalf("expected padded flags, got %v", got)
	}
	if _, ok := r.Progress[9]; ok {
		t.Fatalf("expected unknown level to be dropped")
	}
	if got := r.Hints[1]; len(got) != 3 || got[0] != 2 {
		t.Fatalf("expected truncated counters, got %v", got)
	}
	if r.Achievements == nil || r.Letters[2] == nil {
		t.Fatalf("expected sub-records to be initialized")
	}
}

func TestApplyCorrectAnswerAwardsOnce(t *testing.T) {
	r := newTestRecord()
	now := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)

	upd, err := r.ApplyCorrectAnswer(1, 0, 10, 20, now)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	// First activity: streak 1, bonus min(2, 20) = 2.
	if upd.CoinsAwarded != 12 || upd.StreakBonusCoins != 2 || upd.TotalCoins != 12 || upd.TotalPoints != 20 {
		t.Fatalf("unexpected first update %+v", upd)
	}
	if upd.CurrentStreak != 1 || upd.LastActivityDate != "2024-05-02" {
		t.Fatalf("unexpected streak %+v", upd)
	}

	again, err := r.ApplyCorrectAnswer(1, 0, 10, 20, now)
	if err != nil {
		t.Fatalf("apply again: %v", err)
	}
	if again.CoinsAwarded != 0 || again.TotalCoins != 12 || again.TotalPoints != 20 {
		t.Fatalf("expected idempotent re-answer, got %+v", again)
	}

	second, _ := r.ApplyCorrectAnswer(1, 1, 10, 15, now)
	if second.StreakBonusCoins != 0 || second.CoinsAwarded != 10 || second.TotalCoins != 22 {
		t.Fatalf("expected no second bonus the same day, got %+v", second)
	}
	if r.User.TotalCorrect != 2 {
		t.Fatalf("expected 2 correct, got %d", r.User.TotalCorrect)
	}
}

func TestApplyCorrectAnswerStreakAcrossDays(t *testing.T) {
	r := newTestRecord()
	day := time.Date(2024, 5, 2, 23, 0, 0, 0, time.UTC)
	_, _ = r.ApplyCorrectAnswer(1, 0, 10, 20, day)
	upd, _ := r.ApplyCorrectAnswer(1, 1, 10, 20, day.Add(2*time.Hour))
	if upd.CurrentStreak != 2 || upd.StreakBonusCoins != 4 {
		t.Fatalf("expected streak 2 with bonus 4, got %+v", upd)
	}
	upd, _ = r.ApplyCorrectAnswer(1, 2, 10, 20, day.Add(72*time.Hour))
	if upd.CurrentStreak != 1 || upd.StreakBonusCoins != 2 {
		t.Fatalf("expected reset streak, got %+v", upd)
	}
}

func TestApplyCorrectAnswerRejectsBadIndex(t *testing.T) {
	r := newTestRecord()
	for _, tc := range []struct{ level, index int }{{1, 3}, {1, -1}, {7, 0}} {
		if _, err := r.ApplyCorrectAnswer(tc.level, tc.index, 10, 20, time.Now()); !errors.Is(err, domain.ErrInvalidIndex) {
			t.Fatalf("level %d index %d: expected ErrInvalidIndex, got %v", tc.level, tc.index, err)
		}
	}
}

func TestBuyHintFollowsSchedule(t *testing.T) {
	r := newTestRecord()
	r.User.TotalCoins = 40
	costs := []int{5, 10, 20}

	for i, wantBalance := range []int{35, 25, 5} {
		p, err := r.BuyHint(1, 0, costs)
		if err != nil {
			t.Fatalf("hint %d: %v", i, err)
		}
		if p.Revealed != i+1 || p.TotalCoins != wantBalance {
			t.Fatalf("hint %d: unexpected purchase %+v", i, p)
		}
	}
	if _, err := r.BuyHint(1, 0, costs); !errors.Is(err, domain.ErrMaxHintsReached) {
		t.Fatalf("expected ErrMaxHintsReached, got %v", err)
	}
	if r.User.TotalHintsUsed != 3 {
		t.Fatalf("expected 3 hints used, got %d", r.User.TotalHintsUsed)
	}
}

func TestBuyHintInsufficientCoinsLeavesStateUntouched(t *testing.T) {
	r := newTestRecord()
	r.User.TotalCoins = 4
	if _, err := r.BuyHint(1, 1, []int{5}); !errors.Is(err, domain.ErrInsufficientCoins) {
		t.Fatalf("expected ErrInsufficientCoins, got %v", err)
	}
	if r.User.TotalCoins != 4 || r.Hints[1][1] != 0 || r.User.TotalHintsUsed != 0 {
		t.Fatalf("state changed on failure: %+v %v", r.User, r.Hints)
	}
}

func TestRevealLetterCap(t *testing.T) {
	r := newTestRecord()
	r.User.TotalCoins = 100
	for i := 0; i < 3; i++ {
		if _, err := r.RevealLetter(2, 1, 30, 3); err != nil {
			t.Fatalf("reveal %d: %v", i, err)
		}
	}
	if r.Letters[2][1] != 3 || r.User.TotalCoins != 10 {
		t.Fatalf("unexpected state %v coins=%d", r.Letters, r.User.TotalCoins)
	}
	if _, err := r.RevealLetter(2, 1, 30, 3); !errors.Is(err, domain.ErrMaxRevealsReached) {
		t.Fatalf("expected ErrMaxRevealsReached, got %v", err)
	}
	if _, err := r.RevealLetter(2, 0, 30, 3); !errors.Is(err, domain.ErrInsufficientCoins) {
		t.Fatalf("expected ErrInsufficientCoins, got %v", err)
	}
}

func TestRecordAnswerTracksNoAssistRun(t *testing.T) {
	r := newTestRecord()
	r.RecordAnswer(true)
	if got := r.RecordAnswer(true); got != 2 {
		t.Fatalf("expected run of 2, got %d", got)
	}
	if got := r.RecordAnswer(false); got != 0 {
		t.Fatalf("expected reset run, got %d", got)
	}
	if r.User.TotalAnswers != 3 {
		t.Fatalf("expected 3 answers, got %d", r.User.TotalAnswers)
	}
}

func TestUnlockAndList(t *testing.T) {
	r := newTestRecord()
	t0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	if !r.Unlock("streak_7", t0.Add(time.Minute)) || !r.Unlock("first_correct", t0) {
		t.Fatalf("expected first unlocks to succeed")
	}
	if r.Unlock("first_correct", t0.Add(time.Hour)) {
		t.Fatalf("expected duplicate unlock to be rejected")
	}
	list := r.AchievementList()
	if len(list) != 2 || list[0].ID != "first_correct" || !list[0].UnlockedAt.Equal(t0) {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestResetKeepsIdentity(t *testing.T) {
	r := newTestRecord()
	r.User.PhotoURL = "https://img"
	_, _ = r.ApplyCorrectAnswer(1, 0, 10, 20, time.Now())
	r.Unlock("first_correct", time.Now())
	r.CompleteDailyChallenge()

	r.Reset(testLayout)

	if r.User.ID != "u1" || r.User.Username != "ada" || r.User.PhotoURL != "https://img" {
		t.Fatalf("identity lost: %+v", r.User)
	}
	if r.User.TotalCoins != 0 || r.User.TotalPoints != 0 || r.User.DailyChallengesCompleted != 0 || r.User.LastActivityDate != "" {
		t.Fatalf("totals not reset: %+v", r.User)
	}
	if r.Progress.Guessed() != 0 || len(r.Achievements) != 0 {
		t.Fatalf("game state not reset")
	}
}

func TestApplyProfileUpdate(t *testing.T) {
	r := newTestRecord()
	name := "grace"
	r.Apply(domain.UserUpdate{Username: &name})
	if r.User.Username != "grace" || r.User.PhotoURL != "" {
		t.Fatalf("unexpected user %+v", r.User)
	}
}

func TestSummaryIsDetached(t *testing.T) {
	r := newTestRecord()
	s := r.Summary()
	s.Progress[1][0] = true
	if r.Progress[1][0] {
		t.Fatalf("summary must not alias record progress")
	}
}
