package postgres

import (
	"time"

	"culturax-service/internal/domain"
	"github.com/uptrace/bun"
)

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes,alias:q"`

	ID          string    `bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()"`
	Title       string    `bun:"title,notnull"`
	Description string    `bun:"description"`
	Category    string    `bun:"category"`
	Difficulty  string    `bun:"difficulty"`
	TimeLimit   int       `bun:"time_limit"`
	IsActive    bool      `bun:"is_active"`
	CreatedBy   string    `bun:"created_by,type:uuid,nullzero"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`

	Questions []questionRow `bun:"rel:has-many,join:id=quiz_id"`
}

func newQuizRow(q domain.Quiz) quizRow {
	return quizRow{
		ID:          q.ID,
		Title:       q.Title,
		Description: q.Description,
		Category:    q.Category,
		Difficulty:  string(q.Difficulty),
		TimeLimit:   q.TimeLimit,
		IsActive:    q.IsActive,
		CreatedBy:   q.CreatedBy,
		CreatedAt:   q.CreatedAt,
	}
}

func (r quizRow) toDomain() domain.Quiz {
	return domain.Quiz{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Difficulty:  domain.Difficulty(r.Difficulty),
		TimeLimit:   r.TimeLimit,
		IsActive:    r.IsActive,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
	}
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:qs"`

	ID            string `bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()"`
	QuizID        string `bun:"quiz_id,type:uuid,notnull"`
	QuestionText  string `bun:"question_text,notnull"`
	OptionA       string `bun:"option_a"`
	OptionB       string `bun:"option_b"`
	OptionC       string `bun:"option_c"`
	OptionD       string `bun:"option_d"`
	CorrectAnswer string `bun:"correct_answer"`
	Points        int    `bun:"points"`
	OrderIndex    int    `bun:"order_index"`
}

func newQuestionRow(q domain.Question) questionRow {
	return questionRow{
		ID:            q.ID,
		QuizID:        q.QuizID,
		QuestionText:  q.QuestionText,
		OptionA:       q.OptionA,
		OptionB:       q.OptionB,
		OptionC:       q.OptionC,
		OptionD:       q.OptionD,
		CorrectAnswer: string(q.CorrectAnswer),
		Points:        q.EffectivePoints(),
		OrderIndex:    q.OrderIndex,
	}
}

func (r questionRow) toDomain() domain.Question {
	return domain.Question{
		ID:            r.ID,
		QuizID:        r.QuizID,
		QuestionText:  r.QuestionText,
		OptionA:       r.OptionA,
		OptionB:       r.OptionB,
		OptionC:       r.OptionC,
		OptionD:       r.OptionD,
		CorrectAnswer: domain.OptionKey(r.CorrectAnswer),
		Points:        r.Points,
		OrderIndex:    r.OrderIndex,
	}
}

type attemptRow struct {
	bun.BaseModel `bun:"table:quiz_attempts,alias:a"`

	ID             string    `bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()"`
	UserID         string    `bun:"user_id,type:uuid,notnull"`
	QuizID         string    `bun:"quiz_id,type:uuid,notnull"`
	Score          int       `bun:"score"`
	TotalQuestions int       `bun:"total_questions"`
	CorrectAnswers int       `bun:"correct_answers"`
	TimeTaken      int       `bun:"time_taken"`
	CompletedAt    time.Time `bun:"completed_at,nullzero,notnull,default:current_timestamp"`
}

// attemptView is an attempt joined with its quiz title or its player's username.
type attemptView struct {
	ID             string    `bun:"id"`
	UserID         string    `bun:"user_id"`
	QuizID         string    `bun:"quiz_id"`
	Score          int       `bun:"score"`
	TotalQuestions int       `bun:"total_questions"`
	CorrectAnswers int       `bun:"correct_answers"`
	TimeTaken      int       `bun:"time_taken"`
	CompletedAt    time.Time `bun:"completed_at"`
	QuizTitle      string    `bun:"quiz_title"`
	Username       string    `bun:"username"`
}

func (v attemptView) toDomain() domain.QuizAttempt {
	return domain.QuizAttempt{
		ID:             v.ID,
		UserID:         v.UserID,
		QuizID:         v.QuizID,
		Score:          v.Score,
		TotalQuestions: v.TotalQuestions,
		CorrectAnswers: v.CorrectAnswers,
		TimeTaken:      v.TimeTaken,
		CompletedAt:    v.CompletedAt,
		QuizTitle:      v.QuizTitle,
		Username:       v.Username,
	}
}

type profileRow struct {
	bun.BaseModel `bun:"table:profiles,alias:p"`

	ID        string    `bun:"id,pk,type:uuid"`
	Username  string    `bun:"username"`
	Email     string    `bun:"email,nullzero"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type monumentRow struct {
	bun.BaseModel `bun:"table:monuments,alias:m"`

	ID           string    `bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()"`
	Name         string    `bun:"name,notnull"`
	Location     string    `bun:"location,nullzero"`
	Era          string    `bun:"era,nullzero"`
	Description  string    `bun:"description,nullzero"`
	Significance string    `bun:"significance,nullzero"`
	ARMarkerURL  string    `bun:"ar_marker_url,nullzero"`
	Tags         []string  `bun:"tags,array"`
	Status       string    `bun:"status"`
	CreatedBy    string    `bun:"created_by,type:uuid,nullzero"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type feedbackRow struct {
	bun.BaseModel `bun:"table:feedback,alias:f"`

	ID        string    `bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()"`
	UserID    string    `bun:"user_id,type:uuid,notnull"`
	Subject   string    `bun:"subject,notnull"`
	Message   string    `bun:"message,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string    `bun:"id,pk,type:uuid,nullzero,default:gen_random_uuid()"`
	Email        string    `bun:"email,notnull"`
	PasswordHash string    `bun:"password_hash,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
