package app_test

import (
	"testing"
	"time"

	"animal-quiz-service/internal/app"
	"animal-quiz-service/internal/domain"
)

func TestFeedKeepsNewestEventForSlowSubscriber(t *testing.T) {
	feed := app.NewFeed()
	events, cancel := feed.Subscribe()
	defer cancel()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	feed.Publish(domain.LeaderboardEvent{UserID: "u1", At: base})
	feed.Publish(domain.LeaderboardEvent{UserID: "u2", At: base.Add(time.Second)})

	select {
	case ev := <-events:
		if ev.UserID != "u2" {
			t.Fatalf("expected newest event, got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for event")
	}
	select {
	case ev := <-events:
		t.Fatalf("expected a single pending event, got extra %+v", ev)
	default:
	}
}

func TestFeedRunsHooksBeforeFanOut(t *testing.T) {
	feed := app.NewFeed()
	var seen []string
	feed.OnPublish(func(ev domain.LeaderboardEvent) { seen = append(seen, ev.UserID) })

	events, cancel := feed.Subscribe()
	feed.Publish(domain.LeaderboardEvent{UserID: "u1"})
	if len(seen) != 1 || seen[0] != "u1" {
		t.Fatalf("hook not run: %v", seen)
	}
	<-events

	if feed.Subscribers() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", feed.Subscribers())
	}
	cancel()
	cancel()
	if feed.Subscribers() != 0 {
		t.Fatalf("expected no subscribers after cancel, got %d", feed.Subscribers())
	}
	if _, ok := <-events; ok {
		t.Fatalf("expected closed channel after cancel")
	}

	// Publishing with nobody listening still runs hooks.
	feed.Publish(domain.LeaderboardEvent{UserID: "u2"})
	if len(seen) != 2 {
		t.Fatalf("expected hook on second publish, got %v", seen)
	}
}
