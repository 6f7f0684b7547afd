package app

import (
	"sync"

	"aptitude-service/internal/domain"
)

// LeaderboardFeed fans per-test leaderboard snapshots out to in-process subscribers.
type LeaderboardFeed struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan domain.TestLeaderboard]struct{}
}

func NewLeaderboardFeed() *LeaderboardFeed {
	return &LeaderboardFeed{
		subscribers: make(map[string]map[chan domain.TestLeaderboard]struct{}),
	}
}

// Subscribe registers a channel for testID and seeds it with initial.
// The caller must invoke the returned cancel function to avoid leaks.
func (f *LeaderboardFeed) Subscribe(testID string, initial domain.TestLeaderboard) (<-chan domain.TestLeaderboard, func()) {
	ch := make(chan domain.TestLeaderboard, 8)
	ch <- initial

	f.mu.Lock()
	subs, ok := f.subscribers[testID]
	if !ok {
		subs = make(map[chan domain.TestLeaderboard]struct{})
		f.subscribers[testID] = subs
	}
	subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		subs, ok := f.subscribers[testID]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(f.subscribers, testID)
		}
	}
	return ch, cancel
}

// HasSubscribers reports whether anyone is listening on testID.
func (f *LeaderboardFeed) HasSubscribers(testID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers[testID]) > 0
}

// Broadcast delivers lb to every subscriber of its test without blocking.
// A subscriber that has fallen behind loses its oldest pending snapshot.
func (f *LeaderboardFeed) Broadcast(lb domain.TestLeaderboard) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers[lb.TestID] {
		select {
		case ch <- lb:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}
