package domain

import (
	"strings"
	"time"
)

// DefaultPoints is awarded for a question whose points are unset.
const DefaultPoints = 10

// Difficulty grades a quiz.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty returns the difficulty for raw or false when it is unknown.
func ParseDifficulty(raw string) (Difficulty, bool) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(raw))); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, true
	}
	return "", false
}

// OptionKey names one of the four answer slots of a question.
type OptionKey string

const (
	OptionA OptionKey = "A"
	OptionB OptionKey = "B"
	OptionC OptionKey = "C"
	OptionD OptionKey = "D"
)

// OptionKeys lists the answer slots in display order.
var OptionKeys = []OptionKey{OptionA, OptionB, OptionC, OptionD}

// ParseOptionKey trims and upper-cases raw before matching it against A-D.
func ParseOptionKey(raw string) (OptionKey, bool) {
	key := OptionKey(strings.ToUpper(strings.TrimSpace(raw)))
	switch key {
	case OptionA, OptionB, OptionC, OptionD:
		return key, true
	}
	return "", false
}

// MonumentStatus tracks the publication state of a monument.
type MonumentStatus string

const (
	MonumentDraft     MonumentStatus = "draft"
	MonumentPublished MonumentStatus = "published"
)

// Role is the value stored in user_roles.role.
type Role string

const RoleAdmin Role = "admin"

// Table names a remote table for head-count queries.
type Table string

const (
	TableQuizzes      Table = "quizzes"
	TableQuestions    Table = "questions"
	TableQuizAttempts Table = "quiz_attempts"
	TableProfiles     Table = "profiles"
	TableMonuments    Table = "monuments"
	TableFeedback     Table = "feedback"
	TableUserRoles    Table = "user_roles"
)

// Quiz is a titled collection of questions. Questions is only populated when
// the quiz was loaded together with its content.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Difficulty  Difficulty `json:"difficulty"`
	TimeLimit   int        `json:"timeLimit"` // seconds, 0 disables the countdown
	IsActive    bool       `json:"isActive"`
	CreatedBy   string     `json:"createdBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	Questions   []Question `json:"questions,omitempty"`
}

// Question is a four-option multiple choice question of a quiz.
type Question struct {
	ID            string    `json:"id"`
	QuizID        string    `json:"quizId"`
	QuestionText  string    `json:"questionText"`
	OptionA       string    `json:"optionA"`
	OptionB       string    `json:"optionB"`
	OptionC       string    `json:"optionC"`
	OptionD       string    `json:"optionD"`
	CorrectAnswer OptionKey `json:"correctAnswer"`
	Points        int       `json:"points"` // 0 means DefaultPoints
	OrderIndex    int       `json:"orderIndex"`
}

// EffectivePoints returns the points awarded for the question.
func (q Question) EffectivePoints() int {
	if q.Points == 0 {
		return DefaultPoints
	}
	return q.Points
}

// Option returns the text of the given answer slot.
func (q Question) Option(key OptionKey) string {
	switch key {
	case OptionA:
		return q.OptionA
	case OptionB:
		return q.OptionB
	case OptionC:
		return q.OptionC
	case OptionD:
		return q.OptionD
	}
	return ""
}

// QuizAttempt is the immutable record of one completed play.
type QuizAttempt struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	QuizID         string    `json:"quizId"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	CorrectAnswers int       `json:"correctAnswers"`
	TimeTaken      int       `json:"timeTaken"` // whole seconds
	CompletedAt    time.Time `json:"completedAt"`

	// Joined columns, filled by read queries only.
	QuizTitle string `json:"quizTitle,omitempty"`
	Username  string `json:"username,omitempty"`
}

// Accuracy returns the percentage of correct answers, 0 when the attempt had no questions.
func (a QuizAttempt) Accuracy() float64 {
	if a.TotalQuestions == 0 {
		return 0
	}
	return float64(a.CorrectAnswers) / float64(a.TotalQuestions) * 100
}

// Profile is the public identity of a user.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Monument is a heritage site record curated by admins.
type Monument struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Location     string         `json:"location,omitempty"`
	Era          string         `json:"era,omitempty"`
	Description  string         `json:"description,omitempty"`
	Significance string         `json:"significance,omitempty"`
	ARMarkerURL  string         `json:"arMarkerUrl,omitempty"`
	Tags         []string       `json:"tags"`
	Status       MonumentStatus `json:"status"`
	CreatedBy    string         `json:"createdBy,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// Feedback is a free-form message left by a signed-in user.
type Feedback struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// User is an authenticated identity.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is an issued authentication session.
type Session struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthEvent is published by the auth gateway on session changes.
type AuthEvent string

const (
	EventSignedIn  AuthEvent = "SIGNED_IN"
	EventSignedOut AuthEvent = "SIGNED_OUT"
)

// QuestionOptions holds the four answer texts of a parsed question.
type QuestionOptions struct {
	A string `json:"A"`
	B string `json:"B"`
	C string `json:"C"`
	D string `json:"D"`
}

// Get returns the text stored under key.
func (o QuestionOptions) Get(key OptionKey) string {
	switch key {
	case OptionA:
		return o.A
	case OptionB:
		return o.B
	case OptionC:
		return o.C
	case OptionD:
		return o.D
	}
	return ""
}

// ParsedQuestion is the normalized form of an imported or previewed question.
type ParsedQuestion struct {
	Prompt        string          `json:"prompt"`
	Options       QuestionOptions `json:"options"`
	CorrectAnswer OptionKey       `json:"correctAnswer"`
	Points        *int            `json:"points,omitempty"`
}

// LeaderboardEntry aggregates the attempts of one user.
type LeaderboardEntry struct {
	UserID     string `json:"userId"`
	Username   string `json:"username"`
	TotalScore int    `json:"totalScore"`
	Attempts   int    `json:"attempts"`
}

// ProfileStats summarizes a user's attempt history.
type ProfileStats struct {
	TotalAttempts   int `json:"totalAttempts"`
	AverageScore    int `json:"averageScore"`
	AverageAccuracy int `json:"averageAccuracy"`
}

// Analytics are the admin console head counts and averages.
type Analytics struct {
	Quizzes         int `json:"quizzes"`
	Monuments       int `json:"monuments"`
	Profiles        int `json:"profiles"`
	Feedback        int `json:"feedback"`
	Attempts        int `json:"attempts"`
	AverageScore    int `json:"averageScore"`
	AverageAccuracy int `json:"averageAccuracy"`
}
