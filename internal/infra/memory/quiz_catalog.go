package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"culturax-service/internal/domain"
	"culturax-service/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// QuizLoader fetches a quiz and its questions from the backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizCatalog caches quizzes with TTL to avoid repeated gateway hits.
type QuizCatalog struct {
	loader  QuizLoader
	ttl     time.Duration
	clock   func() time.Time
	sf      singleflight.Group
	metrics *metrics.Metrics

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedQuiz
	// gens is bumped by Invalidate; a load started under an older
	// generation is returned but not stored.
	gens map[string]uint64
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizCatalog(loader QuizLoader, ttl time.Duration, m *metrics.Metrics) *QuizCatalog {
	return &QuizCatalog{
		loader:  loader,
		ttl:     ttl,
		clock:   time.Now,
		metrics: m,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:   make(map[string]cachedQuiz),
		gens:    make(map[string]uint64),
	}
}

func (c *QuizCatalog) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := c.lookup(quizID); ok {
		c.metrics.CacheLookup(true)
		return quiz, nil
	}
	c.metrics.CacheLookup(false)

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		if quiz, ok := c.lookup(quizID); ok {
			return quiz, nil
		}

		c.mu.RLock()
		gen := c.gens[quizID]
		c.mu.RUnlock()

		quiz, err := c.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		ttl := c.ttlWithJitter()
		if ttl > 0 {
			c.mu.Lock()
			if c.gens[quizID] == gen {
				c.cache[quizID] = cachedQuiz{quiz: quiz, expiresAt: c.clock().Add(ttl)}
			}
			c.mu.Unlock()
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate drops a cached quiz so the next read reloads it.
func (c *QuizCatalog) Invalidate(_ context.Context, quizID string) {
	c.mu.Lock()
	delete(c.cache, quizID)
	c.gens[quizID]++
	c.mu.Unlock()
	c.sf.Forget(quizID)
}

func (c *QuizCatalog) lookup(quizID string) (domain.Quiz, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[quizID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.Quiz{}, false
	}
	return entry.quiz, true
}

func (c *QuizCatalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
