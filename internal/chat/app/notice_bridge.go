package app

import (
	"context"
	"encoding/json"

	"campus_chat_service/internal/chat/domain"
	"campus_chat_service/internal/chat/repository"
	"campus_chat_service/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NoticeSource is where notice events come from; *kafka.Reader satisfies it.
type NoticeSource interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// NoticeBridge consumes notices published by the notice service and fans them
// out to connected clients on channels derived from department/year/batch.
// Delivery is at-least-once; clients dedup by notice id.
type NoticeBridge struct {
	source NoticeSource
	pubsub repository.PubSub
}

// NewNoticeBridge create NoticeBridge
func NewNoticeBridge(source NoticeSource, pubsub repository.PubSub) *NoticeBridge {
	return &NoticeBridge{
		source: source,
		pubsub: pubsub,
	}
}

// Run consume until ctx is cancelled. Malformed records are logged and
// skipped, read errors end the loop.
func (b *NoticeBridge) Run(ctx context.Context) error {
	for {
		m, err := b.source.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Log.Errorf("notice read err:", err)
			return err
		}

		var notice domain.Notice
		if err := json.Unmarshal(m.Value, &notice); err != nil {
			logger.Log.Errorf("notice decode err:", err, zap.String("key", string(m.Key)))
			continue
		}

		if err := b.pubsub.Publish(notice.Channel(), domain.ServerEvent{
			Event:   domain.EventNoticeBroadcast,
			Payload: map[string]interface{}{"notice": notice},
		}); err != nil {
			logger.Log.Errorf("notice fanout err:", err, zap.String("NoticeID", notice.ID))
		}
	}
}
