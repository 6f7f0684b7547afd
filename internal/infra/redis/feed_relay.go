package redis

import (
	"context"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "leaderboard:test:"

// FeedRelay carries "test standings changed" signals between instances over
// Redis pub/sub. Every instance, including the publisher, receives the signal
// and refreshes its own subscribers.
type FeedRelay struct {
	client *redis.Client
}

func NewFeedRelay(client *redis.Client) *FeedRelay {
	return &FeedRelay{client: client}
}

// PublishTestUpdated implements app.UpdatePublisher.
func (r *FeedRelay) PublishTestUpdated(ctx context.Context, testID string) error {
	return r.client.Publish(ctx, channelPrefix+testID, testID).Err()
}

// Run listens until ctx is done, calling refresh for every signal received.
// ready is closed once the subscription is confirmed.
func (r *FeedRelay) Run(ctx context.Context, ready chan<- struct{}, refresh func(ctx context.Context, testID string) error) error {
	sub := r.client.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	if ready != nil {
		close(ready)
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			testID := strings.TrimPrefix(msg.Channel, channelPrefix)
			if err := refresh(ctx, testID); err != nil {
				slog.Warn("relay refresh failed", "test_id", testID, "error", err)
			}
		}
	}
}
