// Package events publishes domain events for downstream consumers such
// as notification and matchmaking services.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/openarcade/playerbase/internal/mq"
)

const (
	ChannelScoreRecorded   = "score.recorded"
	ChannelFriendRequested = "friend.requested"
	ChannelFriendAccepted  = "friend.accepted"
)

// ScoreRecorded is emitted when a submitted score replaced the stored
// high score.
type ScoreRecorded struct {
	Username   string    `json:"username"`
	HighScore  int64     `json:"high_score"`
	RecordedAt time.Time `json:"recorded_at"`
}

// FriendRequested is emitted when a friend request is created.
type FriendRequested struct {
	Initiator string    `json:"initiator"`
	Recipient string    `json:"recipient"`
	SentAt    time.Time `json:"sent_at"`
}

// FriendAccepted is emitted when a pending request is accepted.
type FriendAccepted struct {
	Accepter   string    `json:"accepter"`
	Initiator  string    `json:"initiator"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// Publisher sends domain events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, channel string, event any) error
}

// MQPublisher publishes events as JSON through the message queue.
type MQPublisher struct {
	mq *mq.MQ
}

func NewMQPublisher(queue *mq.MQ) *MQPublisher {
	return &MQPublisher{mq: queue}
}

func (p *MQPublisher) Publish(ctx context.Context, channel string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.mq.Publish(ctx, channel, data, map[string]string{
		"content-type": "application/json",
	})
	return err
}

// NopPublisher discards events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
