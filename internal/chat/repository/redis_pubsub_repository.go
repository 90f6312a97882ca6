package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"campus_chat_service/internal/chat/domain"
	"campus_chat_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// PubSub fan-out contract. Delivery is best-effort per subscriber: events
// published while nobody listens on a channel are simply dropped; there is no
// replay log. Events published from one call are delivered to a given
// subscriber in publish order.
type PubSub interface {
	Publish(channel string, event domain.ServerEvent) error
	Subscribe(ctx context.Context, channel string, handler func(event domain.ServerEvent)) error
}

// RedisPubSub definition redis pub/sub
type RedisPubSub struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{
		client: client,
		ctx:    context.Background(),
	}
}

// Publish serialize the event and publish it to the channel
func (r *RedisPubSub) Publish(channel string, event domain.ServerEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(r.ctx, channel, data).Err()
}

// Subscribe listen on channel until ctx is cancelled, handing every decoded
// event to handler
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string, handler func(event domain.ServerEvent)) error {
	sub := r.client.Subscribe(r.ctx, channel)
	go func() {
		ch := sub.Channel()

		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}

				var event domain.ServerEvent
				if err := json.Unmarshal([]byte(m.Payload), &event); err != nil {
					logger.Log.Error("pubsub decode err",
						zap.String("channel", channel),
						zap.String("err", fmt.Sprintf("%v", err)))
					continue
				}
				handler(event)
			case <-ctx.Done():
				logger.Log.Info(fmt.Sprintf("%s , sub close", channel))
				sub.Close()
				return
			}
		}
	}()
	return nil
}
