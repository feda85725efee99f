package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
)

const recentMatchesKey = "matches:recent"

var ErrMatchNotFound = errors.New("match not found")

type MatchRepository interface {
	Record(ctx context.Context, result entity.MatchResult) error
	GetByID(ctx context.Context, sessionID string, round int) (*entity.MatchResult, error)
	Recent(ctx context.Context, limit int64) ([]entity.MatchResult, error)
}

type dbMatch struct {
	client      *redis.Client
	ttl         time.Duration
	recentLimit int64
}

// NewMatchRepository keeps finished rounds for ttl and the latest recentLimit
// of them in a capped list.
func NewMatchRepository(client *redis.Client, ttl time.Duration, recentLimit int64) MatchRepository {
	return &dbMatch{
		client:      client,
		ttl:         ttl,
		recentLimit: recentLimit,
	}
}

func matchKey(sessionID string, round int) string {
	return "match:" + sessionID + ":" + strconv.Itoa(round)
}

func (that *dbMatch) Record(ctx context.Context, result entity.MatchResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("could not marshal match: %w", err)
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, matchKey(result.SessionID, result.Round), resultJSON, that.ttl)
		pipe.LPush(ctx, recentMatchesKey, resultJSON)
		pipe.LTrim(ctx, recentMatchesKey, 0, that.recentLimit-1)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record match: %w", err)
	}

	return nil
}

func (that *dbMatch) GetByID(ctx context.Context, sessionID string, round int) (*entity.MatchResult, error) {
	response, err := that.client.Get(ctx, matchKey(sessionID, round)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, ErrMatchNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}

	var result entity.MatchResult
	if err = json.Unmarshal([]byte(response), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match: %w", err)
	}

	return &result, nil
}

func (that *dbMatch) Recent(ctx context.Context, limit int64) ([]entity.MatchResult, error) {
	if limit <= 0 || limit > that.recentLimit {
		limit = that.recentLimit
	}

	items, err := that.client.LRange(ctx, recentMatchesKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	results := make([]entity.MatchResult, 0, len(items))
	for _, item := range items {
		var result entity.MatchResult
		if err = json.Unmarshal([]byte(item), &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal match: %w", err)
		}

		results = append(results, result)
	}

	return results, nil
}

// NopMatchRepository is used when Redis is disabled; results are dropped.
type NopMatchRepository struct{}

func (NopMatchRepository) Record(context.Context, entity.MatchResult) error {
	return nil
}

func (NopMatchRepository) GetByID(context.Context, string, int) (*entity.MatchResult, error) {
	return nil, ErrMatchNotFound
}

func (NopMatchRepository) Recent(context.Context, int64) ([]entity.MatchResult, error) {
	return []entity.MatchResult{}, nil
}
