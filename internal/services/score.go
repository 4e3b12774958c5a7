package services

import (
	"context"
	"time"

	"github.com/openarcade/playerbase/internal/events"
	"github.com/openarcade/playerbase/types"
)

const (
	defaultLeaderboardLimit = 50
	maxLeaderboardLimit     = 500
)

// ScoreRepository defines persistence operations for scores.
type ScoreRepository interface {
	GetHighScore(ctx context.Context, username string) (int64, error)
	SetHighScore(ctx context.Context, username string, score int64) error
	IncrementGamesPlayed(ctx context.Context, username string) error
	RecordIfHigher(ctx context.Context, username string, latestScore int64) (bool, error)
	Leaderboard(ctx context.Context, limit int) ([]types.ScoreEntry, error)
}

// ScoreService encapsulates score use-cases.
type ScoreService struct {
	repo      ScoreRepository
	publisher events.Publisher
}

func NewScoreService(repo ScoreRepository, publisher events.Publisher) *ScoreService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ScoreService{repo: repo, publisher: publisher}
}

func (s *ScoreService) GetHighScore(ctx context.Context, username string) (int64, error) {
	return s.repo.GetHighScore(ctx, username)
}

func (s *ScoreService) SetHighScore(ctx context.Context, username string, score int64) error {
	return s.repo.SetHighScore(ctx, username, score)
}

func (s *ScoreService) IncrementGamesPlayed(ctx context.Context, username string) error {
	return s.repo.IncrementGamesPlayed(ctx, username)
}

// RecordIfHigher stores latestScore when it meets or beats the current
// high score, and announces the new record when it did.
func (s *ScoreService) RecordIfHigher(ctx context.Context, username string, latestScore int64) (bool, error) {
	recorded, err := s.repo.RecordIfHigher(ctx, username, latestScore)
	if err != nil {
		return false, err
	}
	if recorded {
		// Publication is best-effort; a broker outage must not fail the
		// score write that already happened.
		_ = s.publisher.Publish(ctx, events.ChannelScoreRecorded, events.ScoreRecorded{
			Username:   username,
			HighScore:  latestScore,
			RecordedAt: time.Now(),
		})
	}
	return recorded, nil
}

func (s *ScoreService) Leaderboard(ctx context.Context, limit int) ([]types.ScoreEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	return s.repo.Leaderboard(ctx, limit)
}
