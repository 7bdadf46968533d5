package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"culturax-service/internal/domain"
	"culturax-service/internal/metrics"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuizLoader fetches a quiz and its questions from the backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizCatalog caches whole quizzes in Redis and falls back to a loader on miss.
// Each quiz is stored as one JSON document: SET catalog:quiz:{quizID} {json} EX ttl
type QuizCatalog struct {
	client  *redis.Client
	loader  QuizLoader
	ttl     time.Duration
	sf      singleflight.Group
	metrics *metrics.Metrics

	mu   sync.Mutex
	rnd  *rand.Rand
	gens map[string]uint64
}

func NewQuizCatalog(client *redis.Client, loader QuizLoader, ttl time.Duration, m *metrics.Metrics) *QuizCatalog {
	return &QuizCatalog{
		client:  client,
		loader:  loader,
		ttl:     ttl,
		metrics: m,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		gens:    make(map[string]uint64),
	}
}

func (c *QuizCatalog) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := c.lookup(ctx, quizID); ok {
		c.metrics.CacheLookup(true)
		return quiz, nil
	}
	c.metrics.CacheLookup(false)

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another instance filled it.
		if quiz, ok := c.lookup(ctx, quizID); ok {
			return quiz, nil
		}

		gen := c.generation(quizID)
		quiz, err := c.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		if ttl := c.ttlWithJitter(); ttl > 0 && c.generation(quizID) == gen {
			if payload, err := json.Marshal(quiz); err == nil {
				_ = c.client.Set(ctx, c.key(quizID), payload, ttl).Err()
				// An Invalidate that ran during the SET may not have seen the key.
				if c.generation(quizID) != gen {
					_ = c.client.Del(ctx, c.key(quizID)).Err()
				}
			}
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate drops the cached document so the next read reloads it.
func (c *QuizCatalog) Invalidate(ctx context.Context, quizID string) {
	c.mu.Lock()
	c.gens[quizID]++
	c.mu.Unlock()
	_ = c.client.Del(ctx, c.key(quizID)).Err()
	c.sf.Forget(quizID)
}

func (c *QuizCatalog) lookup(ctx context.Context, quizID string) (domain.Quiz, bool) {
	payload, err := c.client.Get(ctx, c.key(quizID)).Bytes()
	if err != nil {
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(payload, &quiz); err != nil {
		// corrupt entry, reload
		_ = c.client.Del(ctx, c.key(quizID)).Err()
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (c *QuizCatalog) generation(quizID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[quizID]
}

func (c *QuizCatalog) key(quizID string) string {
	return "catalog:quiz:" + quizID
}

func (c *QuizCatalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
