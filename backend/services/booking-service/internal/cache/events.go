package cache

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Event announces that availability of a station on a date changed.
type Event struct {
	StationID int64  `json:"chargerId"`
	Date      string `json:"date"`
}

// EventBus publishes and consumes availability events over Redis pub/sub.
type EventBus struct {
	client *redis.Client
	logger *zap.Logger
}

// NewEventBus builds a bus on client.
func NewEventBus(client *redis.Client, logger *zap.Logger) *EventBus {
	return &EventBus{client: client, logger: logger}
}

// Publish sends ev to every subscriber.
func (b *EventBus) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, EventsChannel, data).Err()
}

// Subscribe calls handle for each event until ctx is done. The subscription is
// established before Subscribe returns.
func (b *EventBus) Subscribe(ctx context.Context, handle func(Event)) error {
	sub := b.client.Subscribe(ctx, EventsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.logger.Warn("discarding malformed availability event", zap.Error(err))
					continue
				}
				handle(ev)
			}
		}
	}()
	return nil
}
