package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"culturax-service/internal/domain"
	"culturax-service/internal/metrics"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PlaySessionStore abstracts where live play sessions are kept (in-memory, Redis, etc).
type PlaySessionStore interface {
	Put(session *PlaySession)
	Get(sessionID string) (*PlaySession, bool)
	Delete(sessionID string)
}

// PlayService runs timed quiz plays and records one attempt per play.
type PlayService struct {
	catalog  QuizCatalog
	attempts AttemptStore
	sessions PlaySessionStore
	log      logrus.FieldLogger
	metrics  *metrics.Metrics

	now          func() time.Time
	tick         time.Duration
	maxDuration  time.Duration
	writeTimeout time.Duration
}

type PlayOption func(*PlayService)

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) PlayOption {
	return func(s *PlayService) { s.now = now }
}

// WithTickInterval sets how long one countdown second lasts.
func WithTickInterval(d time.Duration) PlayOption {
	return func(s *PlayService) { s.tick = d }
}

// WithMaxDuration bounds sessions without a time limit.
func WithMaxDuration(d time.Duration) PlayOption {
	return func(s *PlayService) { s.maxDuration = d }
}

func WithWriteTimeout(d time.Duration) PlayOption {
	return func(s *PlayService) { s.writeTimeout = d }
}

func WithPlayMetrics(m *metrics.Metrics) PlayOption {
	return func(s *PlayService) { s.metrics = m }
}

func NewPlayService(catalog QuizCatalog, attempts AttemptStore, sessions PlaySessionStore, log logrus.FieldLogger, opts ...PlayOption) *PlayService {
	s := &PlayService{
		catalog:      catalog,
		attempts:     attempts,
		sessions:     sessions,
		log:          log,
		now:          time.Now,
		tick:         time.Second,
		maxDuration:  2 * time.Hour,
		writeTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens a play session for userID on quizID.
func (p *PlayService) Start(ctx context.Context, quizID, userID string) (PlayView, error) {
	if userID == "" {
		return PlayView{}, domain.ErrUnauthenticated
	}
	quiz, err := p.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return PlayView{}, err
	}
	if len(quiz.Questions) == 0 {
		return PlayView{}, domain.ErrNoQuestions
	}

	session := newPlaySession(uuid.NewString(), userID, quiz, p.now())
	p.sessions.Put(session)
	p.metrics.SessionStarted()
	go p.runTimer(session)

	p.log.WithFields(logrus.Fields{"session_id": session.id, "quiz_id": quizID, "user_id": userID}).Debug("play session started")
	return session.View(), nil
}

// View returns the current state of a session.
func (p *PlayService) View(_ context.Context, sessionID, userID string) (PlayView, error) {
	session, err := p.owned(sessionID, userID)
	if err != nil {
		return PlayView{}, err
	}
	return session.View(), nil
}

// Select records option as the answer of question index.
func (p *PlayService) Select(_ context.Context, sessionID, userID string, index int, option string) (PlayView, error) {
	session, err := p.owned(sessionID, userID)
	if err != nil {
		return PlayView{}, err
	}
	key, ok := domain.ParseOptionKey(option)
	if !ok {
		return PlayView{}, domain.ErrInvalidOption
	}
	return session.selectAnswer(index, key)
}

// SelectCurrent records option as the answer of the question on screen.
func (p *PlayService) SelectCurrent(ctx context.Context, sessionID, userID, option string) (PlayView, error) {
	session, err := p.owned(sessionID, userID)
	if err != nil {
		return PlayView{}, err
	}
	return p.Select(ctx, sessionID, userID, session.currentIndex(), option)
}

func (p *PlayService) Next(_ context.Context, sessionID, userID string) (PlayView, error) {
	session, err := p.owned(sessionID, userID)
	if err != nil {
		return PlayView{}, err
	}
	return session.move(1)
}

func (p *PlayService) Previous(_ context.Context, sessionID, userID string) (PlayView, error) {
	session, err := p.owned(sessionID, userID)
	if err != nil {
		return PlayView{}, err
	}
	return session.move(-1)
}

// Submit scores the session and writes the attempt. A failed write is
// returned together with the result; it is not retried.
func (p *PlayService) Submit(ctx context.Context, sessionID, userID string) (PlayResult, error) {
	session, err := p.owned(sessionID, userID)
	if err != nil {
		return PlayResult{}, err
	}
	return p.finish(ctx, session, metrics.TriggerManual)
}

// Subscribe returns a channel that receives session updates, starting with
// the current state. The caller must invoke the returned cancel function to avoid leaks.
func (p *PlayService) Subscribe(_ context.Context, sessionID, userID string) (<-chan PlayView, func(), error) {
	session, err := p.owned(sessionID, userID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Close tears a session down without recording an attempt.
func (p *PlayService) Close(_ context.Context, sessionID, userID string) error {
	session, err := p.owned(sessionID, userID)
	if err != nil {
		return err
	}
	p.release(session)
	return nil
}

func (p *PlayService) owned(sessionID, userID string) (*PlaySession, error) {
	session, ok := p.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if session.userID != userID {
		return nil, domain.ErrForbidden
	}
	return session, nil
}

func (p *PlayService) finish(ctx context.Context, session *PlaySession, trigger string) (PlayResult, error) {
	attempt, res, err := session.begin(trigger, p.now())
	if err != nil {
		return PlayResult{}, err
	}
	session.stopTimer()

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.writeTimeout)
	defer cancel()
	werr := p.attempts.InsertAttempt(writeCtx, attempt)
	p.metrics.AttemptSubmitted(trigger, werr)

	res = session.complete(res, werr)
	p.release(session)

	entry := p.log.WithFields(logrus.Fields{
		"session_id": session.id,
		"quiz_id":    attempt.QuizID,
		"user_id":    attempt.UserID,
		"score":      attempt.Score,
		"trigger":    trigger,
	})
	if werr != nil {
		entry.WithError(werr).Error("attempt write failed")
		return res, fmt.Errorf("save attempt: %w", werr)
	}
	entry.Info("attempt recorded")
	return res, nil
}

func (p *PlayService) release(session *PlaySession) {
	session.releaseOnce.Do(func() {
		session.stopTimer()
		session.closeSubscribers()
		p.sessions.Delete(session.id)
		p.metrics.SessionEnded()
	})
}

func (p *PlayService) runTimer(session *PlaySession) {
	var ticks <-chan time.Time
	var abandon <-chan time.Time
	if session.quiz.TimeLimit > 0 {
		ticker := time.NewTicker(p.tick)
		defer ticker.Stop()
		ticks = ticker.C
	} else if p.maxDuration > 0 {
		timer := time.NewTimer(p.maxDuration)
		defer timer.Stop()
		abandon = timer.C
	}

	for {
		select {
		case <-session.stop:
			return
		case <-abandon:
			p.log.WithField("session_id", session.id).Info("play session abandoned")
			p.release(session)
			return
		case <-ticks:
			if session.tick() {
				_, _ = p.finish(context.Background(), session, metrics.TriggerTimeout)
				return
			}
		}
	}
}

// OptionView is one selectable answer.
type OptionView struct {
	Key  domain.OptionKey `json:"key"`
	Text string           `json:"text"`
}

// QuestionView is a question without its correct answer.
type QuestionView struct {
	Index   int          `json:"index"`
	Text    string       `json:"text"`
	Options []OptionView `json:"options"`
	Points  int          `json:"points"`
}

// PlayResult is the outcome of a submitted session.
type PlayResult struct {
	ScoreResult
	TimeTaken int    `json:"timeTaken"`
	Trigger   string `json:"trigger"`
	Saved     bool   `json:"saved"`
	Error     string `json:"error,omitempty"`
	// RedirectTo is set once the attempt is stored.
	RedirectTo string `json:"redirectTo,omitempty"`
}

// PlayView is the player-facing state of a session.
type PlayView struct {
	SessionID string                   `json:"sessionId"`
	QuizID    string                   `json:"quizId"`
	QuizTitle string                   `json:"quizTitle"`
	Current   int                      `json:"current"`
	Total     int                      `json:"total"`
	Progress  int                      `json:"progress"`
	Question  QuestionView             `json:"question"`
	Selected  domain.OptionKey         `json:"selected,omitempty"`
	Answers   map[int]domain.OptionKey `json:"answers"`
	TimeLeft  int                      `json:"timeLeft"`
	Finished  bool                     `json:"finished"`
	Result    *PlayResult              `json:"result,omitempty"`
}

// PlaySession is the in-memory state of one user playing one quiz.
type PlaySession struct {
	id        string
	userID    string
	quiz      domain.Quiz
	startedAt time.Time

	mu          sync.Mutex
	current     int
	answers     map[int]domain.OptionKey
	timeLeft    int
	finished    bool
	closed      bool
	result      *PlayResult
	subscribers map[chan PlayView]struct{}

	stop        chan struct{}
	stopOnce    sync.Once
	releaseOnce sync.Once
}

// NewPlaySession is exported for infrastructure layers and tests that need to seed sessions.
func NewPlaySession(id, userID string, quiz domain.Quiz, startedAt time.Time) *PlaySession {
	return newPlaySession(id, userID, quiz, startedAt)
}

func newPlaySession(id, userID string, quiz domain.Quiz, now time.Time) *PlaySession {
	return &PlaySession{
		id:          id,
		userID:      userID,
		quiz:        quiz,
		startedAt:   now,
		answers:     make(map[int]domain.OptionKey),
		timeLeft:    quiz.TimeLimit,
		subscribers: make(map[chan PlayView]struct{}),
		stop:        make(chan struct{}),
	}
}

func (s *PlaySession) ID() string     { return s.id }
func (s *PlaySession) UserID() string { return s.userID }
func (s *PlaySession) QuizID() string { return s.quiz.ID }

// View returns a snapshot of the session.
func (s *PlaySession) View() PlayView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *PlaySession) currentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *PlaySession) selectAnswer(index int, key domain.OptionKey) (PlayView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return PlayView{}, domain.ErrSessionFinished
	}
	if index < 0 || index >= len(s.quiz.Questions) {
		return PlayView{}, domain.ErrQuestionIndex
	}
	s.answers[index] = key
	return s.broadcastLocked(), nil
}

func (s *PlaySession) move(delta int) (PlayView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return PlayView{}, domain.ErrSessionFinished
	}
	next := s.current + delta
	if next < 0 {
		next = 0
	}
	if last := len(s.quiz.Questions) - 1; next > last {
		next = last
	}
	s.current = next
	return s.broadcastLocked(), nil
}

// tick counts one second down and reports whether time ran out.
func (s *PlaySession) tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return false
	}
	if s.timeLeft <= 1 {
		s.timeLeft = 0
		return true
	}
	s.timeLeft--
	s.broadcastLocked()
	return false
}

// begin marks the session finished and scores it. Only the first caller wins.
func (s *PlaySession) begin(trigger string, now time.Time) (domain.QuizAttempt, PlayResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return domain.QuizAttempt{}, PlayResult{}, domain.ErrSessionFinished
	}
	s.finished = true

	score := Score(s.quiz.Questions, s.answers)
	elapsed := int(now.Sub(s.startedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	attempt := domain.QuizAttempt{
		UserID:         s.userID,
		QuizID:         s.quiz.ID,
		Score:          score.Score,
		TotalQuestions: score.TotalQuestions,
		CorrectAnswers: score.CorrectAnswers,
		TimeTaken:      elapsed,
		CompletedAt:    now,
	}
	return attempt, PlayResult{ScoreResult: score, TimeTaken: elapsed, Trigger: trigger}, nil
}

func (s *PlaySession) complete(res PlayResult, werr error) PlayResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if werr != nil {
		res.Error = werr.Error()
	} else {
		res.Saved = true
		res.RedirectTo = "/profile"
	}
	s.result = &res
	s.broadcastLocked()
	return res
}

func (s *PlaySession) stopTimer() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *PlaySession) subscribe() (<-chan PlayView, func()) {
	ch := make(chan PlayView, 8)

	s.mu.Lock()
	// ch is empty and unregistered here, so the send cannot block or race a close.
	ch <- s.snapshotLocked()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *PlaySession) closeSubscribers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *PlaySession) broadcastLocked() PlayView {
	view := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- view:
		default:
			// slow reader: drop its oldest update
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
	return view
}

func (s *PlaySession) snapshotLocked() PlayView {
	total := len(s.quiz.Questions)
	answers := make(map[int]domain.OptionKey, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}

	view := PlayView{
		SessionID: s.id,
		QuizID:    s.quiz.ID,
		QuizTitle: s.quiz.Title,
		Current:   s.current,
		Total:     total,
		Answers:   answers,
		Selected:  s.answers[s.current],
		TimeLeft:  s.timeLeft,
		Finished:  s.finished,
	}
	if total > 0 {
		view.Progress = (s.current + 1) * 100 / total
		q := s.quiz.Questions[s.current]
		opts := make([]OptionView, 0, len(domain.OptionKeys))
		for _, key := range domain.OptionKeys {
			opts = append(opts, OptionView{Key: key, Text: q.Option(key)})
		}
		view.Question = QuestionView{Index: s.current, Text: q.QuestionText, Options: opts, Points: q.EffectivePoints()}
	}
	if s.result != nil {
		res := *s.result
		view.Result = &res
	}
	return view
}
