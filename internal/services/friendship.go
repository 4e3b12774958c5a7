package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openarcade/playerbase/internal/events"
	"github.com/openarcade/playerbase/internal/store"
	"github.com/openarcade/playerbase/types"
)

// FriendshipRepository defines persistence operations for friendships.
type FriendshipRepository interface {
	CreateRequest(ctx context.Context, initiator, recipient string) error
	Get(ctx context.Context, userA, userB string) (types.Friendship, error)
	Accept(ctx context.Context, actor, counterpart string) error
	Decline(ctx context.Context, actor, counterpart string) error
	AreFriends(ctx context.Context, userA, userB string) (bool, error)
	ListFriends(ctx context.Context, user string) ([]string, error)
	ListPending(ctx context.Context, user string, incoming bool) ([]string, error)
}

// FriendshipService encapsulates the friendship lifecycle.
type FriendshipService struct {
	repo      FriendshipRepository
	publisher events.Publisher
}

func NewFriendshipService(repo FriendshipRepository, publisher events.Publisher) *FriendshipService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &FriendshipService{repo: repo, publisher: publisher}
}

// SendRequest creates a pending friendship from initiator to recipient.
func (s *FriendshipService) SendRequest(ctx context.Context, initiator, recipient string) error {
	initiator = strings.TrimSpace(initiator)
	recipient = strings.TrimSpace(recipient)
	if initiator == "" || recipient == "" {
		return fmt.Errorf("%w: both usernames are required", store.ErrValidation)
	}
	if initiator == recipient {
		return fmt.Errorf("%w: cannot befriend yourself", store.ErrValidation)
	}

	if err := s.repo.CreateRequest(ctx, initiator, recipient); err != nil {
		return err
	}
	_ = s.publisher.Publish(ctx, events.ChannelFriendRequested, events.FriendRequested{
		Initiator: initiator,
		Recipient: recipient,
		SentAt:    time.Now(),
	})
	return nil
}

// Accept moves the pending request with counterpart into the accepted
// state on behalf of actor.
func (s *FriendshipService) Accept(ctx context.Context, actor, counterpart string) error {
	if err := s.repo.Accept(ctx, actor, counterpart); err != nil {
		return err
	}
	_ = s.publisher.Publish(ctx, events.ChannelFriendAccepted, events.FriendAccepted{
		Accepter:   actor,
		Initiator:  counterpart,
		AcceptedAt: time.Now(),
	})
	return nil
}

// Decline moves the pending request with counterpart into the declined
// state on behalf of actor. Declined is terminal: the pair cannot be
// re-requested.
func (s *FriendshipService) Decline(ctx context.Context, actor, counterpart string) error {
	return s.repo.Decline(ctx, actor, counterpart)
}

func (s *FriendshipService) AreFriends(ctx context.Context, userA, userB string) (bool, error) {
	return s.repo.AreFriends(ctx, userA, userB)
}

func (s *FriendshipService) ListFriends(ctx context.Context, user string) ([]string, error) {
	return s.repo.ListFriends(ctx, user)
}

func (s *FriendshipService) ListPendingIncoming(ctx context.Context, user string) ([]string, error) {
	return s.repo.ListPending(ctx, user, true)
}

func (s *FriendshipService) ListPendingOutgoing(ctx context.Context, user string) ([]string, error) {
	return s.repo.ListPending(ctx, user, false)
}
