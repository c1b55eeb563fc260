package app

import (
	"sync"

	"animal-quiz-service/internal/domain"
)

// Feed fans leaderboard events out to in-process subscribers. Hooks run
// synchronously before subscribers are notified, so a subscriber reacting to
// an event already sees invalidated caches.
type Feed struct {
	mu          sync.Mutex
	hooks       []func(domain.LeaderboardEvent)
	subscribers map[chan domain.LeaderboardEvent]struct{}
}

func NewFeed() *Feed {
	return &Feed{subscribers: make(map[chan domain.LeaderboardEvent]struct{})}
}

// OnPublish registers a hook run for every published event.
func (f *Feed) OnPublish(hook func(domain.LeaderboardEvent)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks = append(f.hooks, hook)
}

// Publish implements Publisher.
func (f *Feed) Publish(event domain.LeaderboardEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, hook := range f.hooks {
		hook(event)
	}
	for ch := range f.subscribers {
		select {
		case ch <- event:
		default:
			// Slow subscriber: replace the pending event with the newest one.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}

// Subscribe returns a channel of events. The caller must invoke the returned
// cancel function to avoid leaks.
func (f *Feed) Subscribe() (<-chan domain.LeaderboardEvent, func()) {
	ch := make(chan domain.LeaderboardEvent, 1)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Subscribers reports how many subscriptions are open.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}
