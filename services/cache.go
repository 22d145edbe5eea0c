package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const quizCacheTTL = 10 * time.Minute

// QuizCache is a read-through redis cache for the public quiz projections.
// Every method is a no-op on a nil cache or nil client, so the service runs
// without redis.
type QuizCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewQuizCache(client *redis.Client) *QuizCache {
	return &QuizCache{client: client, ttl: quizCacheTTL}
}

func quizCacheKey(quizID uint) string {
	return fmt.Sprintf("quiz:public:%d", quizID)
}

const quizListCacheKey = "quiz:public:list"

func (c *QuizCache) GetQuiz(ctx context.Context, quizID uint) (*PublicQuiz, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, quizCacheKey(quizID)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Redis error getting quiz %d: %v", quizID, err)
		}
		return nil, false
	}
	var view PublicQuiz
	if err := json.Unmarshal([]byte(data), &view); err != nil {
		log.Printf("Failed to decode cached quiz %d: %v", quizID, err)
		return nil, false
	}
	return &view, true
}

func (c *QuizCache) SetQuiz(ctx context.Context, view *PublicQuiz) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(view)
	if err != nil {
		log.Printf("Failed to encode quiz %d for cache: %v", view.ID, err)
		return
	}
	if err := c.client.Set(ctx, quizCacheKey(view.ID), data, c.ttl).Err(); err != nil {
		log.Printf("Failed to cache quiz %d: %v", view.ID, err)
	}
}

func (c *QuizCache) GetList(ctx context.Context) ([]PublicQuizSummary, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, quizListCacheKey).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Redis error getting quiz list: %v", err)
		}
		return nil, false
	}
	var views []PublicQuizSummary
	if err := json.Unmarshal([]byte(data), &views); err != nil {
		log.Printf("Failed to decode cached quiz list: %v", err)
		return nil, false
	}
	return views, true
}

func (c *QuizCache) SetList(ctx context.Context, views []PublicQuizSummary) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(views)
	if err != nil {
		log.Printf("Failed to encode quiz list for cache: %v", err)
		return
	}
	if err := c.client.Set(ctx, quizListCacheKey, data, c.ttl).Err(); err != nil {
		log.Printf("Failed to cache quiz list: %v", err)
	}
}

// Invalidate drops the cached projection of one quiz and the list. Called
// after every admin write so participants never see stale content.
func (c *QuizCache) Invalidate(ctx context.Context, quizID uint) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, quizCacheKey(quizID), quizListCacheKey).Err(); err != nil {
		log.Printf("Failed to invalidate quiz %d cache: %v", quizID, err)
	}
}
