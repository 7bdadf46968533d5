package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"culturax-service/internal/domain"
	"github.com/google/uuid"
)

// Gateway is an in-process stand-in for the remote tables. It backs demo mode and tests.
type Gateway struct {
	mu    sync.RWMutex
	clock func() time.Time

	quizzes   []domain.Quiz
	questions []domain.Question
	attempts  []domain.QuizAttempt
	profiles  map[string]domain.Profile
	monuments []domain.Monument
	feedback  []domain.Feedback
	roles     map[string]domain.Role
	users     map[string]credential
}

type credential struct {
	user domain.User
	hash string
}

func NewGateway() *Gateway {
	return &Gateway{
		clock:    time.Now,
		profiles: make(map[string]domain.Profile),
		roles:    make(map[string]domain.Role),
		users:    make(map[string]credential),
	}
}

// SetRole assigns a user_roles row.
func (g *Gateway) SetRole(userID string, role domain.Role) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roles[userID] = role
}

// Attempts returns a copy of every stored attempt in insertion order.
func (g *Gateway) Attempts() []domain.QuizAttempt {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]domain.QuizAttempt, len(g.attempts))
	copy(out, g.attempts)
	return out
}

// Monuments returns a copy of every stored monument.
func (g *Gateway) Monuments() []domain.Monument {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]domain.Monument, len(g.monuments))
	copy(out, g.monuments)
	return out
}

// Feedback returns a copy of every stored feedback row.
func (g *Gateway) Feedback() []domain.Feedback {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]domain.Feedback, len(g.feedback))
	copy(out, g.feedback)
	return out
}

func (g *Gateway) ListActiveQuizzes(_ context.Context) ([]domain.Quiz, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]domain.Quiz, 0, len(g.quizzes))
	for _, q := range newestFirst(g.quizzes) {
		if q.IsActive {
			out = append(out, q)
		}
	}
	return out, nil
}

func (g *Gateway) ListQuizzes(_ context.Context) ([]domain.Quiz, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return newestFirst(g.quizzes), nil
}

func (g *Gateway) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, q := range g.quizzes {
		if q.ID == quizID {
			return q, nil
		}
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func (g *Gateway) InsertQuiz(_ context.Context, quiz domain.Quiz) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = g.clock()
	}
	quiz.Questions = nil
	g.quizzes = append(g.quizzes, quiz)
	return quiz.ID, nil
}

func (g *Gateway) UpdateQuiz(_ context.Context, quiz domain.Quiz) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, q := range g.quizzes {
		if q.ID == quiz.ID {
			quiz.CreatedAt = q.CreatedAt
			quiz.Questions = nil
			g.quizzes[i] = quiz
			return nil
		}
	}
	return domain.ErrQuizNotFound
}

func (g *Gateway) DeleteQuiz(_ context.Context, quizID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	kept := g.quizzes[:0]
	for _, q := range g.quizzes {
		if q.ID != quizID {
			kept = append(kept, q)
		}
	}
	g.quizzes = kept
	return nil
}

func (g *Gateway) ListQuestions(_ context.Context, quizID string) ([]domain.Question, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]domain.Question, 0)
	for _, q := range g.questions {
		if q.QuizID == quizID {
			out = append(out, q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (g *Gateway) InsertQuestions(_ context.Context, questions []domain.Question) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, q := range questions {
		if _, ok := domain.ParseOptionKey(string(q.CorrectAnswer)); !ok {
			return domain.Invalid("invalid correct_answer %q", q.CorrectAnswer)
		}
	}
	for _, q := range questions {
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		g.questions = append(g.questions, q)
	}
	return nil
}

func (g *Gateway) DeleteQuestions(_ context.Context, quizID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	kept := g.questions[:0]
	for _, q := range g.questions {
		if q.QuizID != quizID {
			kept = append(kept, q)
		}
	}
	g.questions = kept
	return nil
}

func (g *Gateway) InsertAttempt(_ context.Context, attempt domain.QuizAttempt) error {
	if attempt.CorrectAnswers > attempt.TotalQuestions {
		return domain.Invalid("correct_answers exceeds total_questions")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.CompletedAt.IsZero() {
		attempt.CompletedAt = g.clock()
	}
	attempt.QuizTitle = ""
	attempt.Username = ""
	g.attempts = append(g.attempts, attempt)
	return nil
}

func (g *Gateway) TopAttempts(_ context.Context, limit int) ([]domain.QuizAttempt, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]domain.QuizAttempt, len(g.attempts))
	copy(out, g.attempts)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Username = g.profiles[out[i].UserID].Username
	}
	return out, nil
}

func (g *Gateway) UserAttempts(_ context.Context, userID string) ([]domain.QuizAttempt, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]domain.QuizAttempt, 0)
	for i := len(g.attempts) - 1; i >= 0; i-- {
		if a := g.attempts[i]; a.UserID == userID {
			for _, q := range g.quizzes {
				if q.ID == a.QuizID {
					a.QuizTitle = q.Title
					break
				}
			}
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	return out, nil
}

func (g *Gateway) ListAttempts(_ context.Context) ([]domain.QuizAttempt, error) {
	return g.Attempts(), nil
}

func (g *Gateway) GetProfile(_ context.Context, userID string) (domain.Profile, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.profiles[userID]
	if !ok {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	return p, nil
}

// InsertProfile stores a profile without credentials, for fixtures.
func (g *Gateway) InsertProfile(_ context.Context, profile domain.Profile) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = g.clock()
	}
	g.profiles[profile.ID] = profile
	return nil
}

func (g *Gateway) InsertMonument(_ context.Context, monument domain.Monument) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if monument.ID == "" {
		monument.ID = uuid.NewString()
	}
	if monument.Status == "" {
		monument.Status = domain.MonumentDraft
	}
	monument.CreatedAt = g.clock()
	g.monuments = append(g.monuments, monument)
	return monument.ID, nil
}

func (g *Gateway) InsertFeedback(_ context.Context, feedback domain.Feedback) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if feedback.ID == "" {
		feedback.ID = uuid.NewString()
	}
	feedback.CreatedAt = g.clock()
	g.feedback = append(g.feedback, feedback)
	return nil
}

func (g *Gateway) GetRole(_ context.Context, userID string) (domain.Role, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.roles[userID], nil
}

func (g *Gateway) CountRows(_ context.Context, table domain.Table) (int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	switch table {
	case domain.TableQuizzes:
		return len(g.quizzes), nil
	case domain.TableQuestions:
		return len(g.questions), nil
	case domain.TableQuizAttempts:
		return len(g.attempts), nil
	case domain.TableProfiles:
		return len(g.profiles), nil
	case domain.TableMonuments:
		return len(g.monuments), nil
	case domain.TableFeedback:
		return len(g.feedback), nil
	case domain.TableUserRoles:
		return len(g.roles), nil
	}
	return 0, domain.Invalid("unknown table %q", table)
}

// CreateUser stores credentials and the profile for a new email.
func (g *Gateway) CreateUser(_ context.Context, email, passwordHash, username string) (domain.User, error) {
	key := strings.ToLower(email)
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.users[key]; ok {
		return domain.User{}, domain.ErrEmailTaken
	}
	user := domain.User{ID: uuid.NewString(), Email: email}
	g.users[key] = credential{user: user, hash: passwordHash}
	g.profiles[user.ID] = domain.Profile{ID: user.ID, Username: username, Email: email, CreatedAt: g.clock()}
	return user, nil
}

// FindCredentials returns the user and password hash registered for email.
func (g *Gateway) FindCredentials(_ context.Context, email string) (domain.User, string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.users[strings.ToLower(email)]
	if !ok {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}
	return c.user, c.hash, nil
}

func newestFirst(quizzes []domain.Quiz) []domain.Quiz {
	out := make([]domain.Quiz, 0, len(quizzes))
	for i := len(quizzes) - 1; i >= 0; i-- {
		out = append(out, quizzes[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
