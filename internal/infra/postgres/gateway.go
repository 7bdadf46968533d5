package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"culturax-service/internal/domain"
	"github.com/jackc/pgconn"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

// Open connects bun to Postgres through the pgx database/sql driver.
func Open(ctx context.Context, url string) (*bun.DB, error) {
	sqldb, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sqldb.SetMaxOpenConns(20)
	sqldb.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqldb.PingContext(pingCtx); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

// Gateway implements the remote data gateway on the CulturaX Postgres schema.
type Gateway struct {
	db bun.IDB
}

func NewGateway(db bun.IDB) *Gateway {
	return &Gateway{db: db}
}

func (g *Gateway) ListActiveQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	var rows []quizRow
	err := g.db.NewSelect().Model(&rows).
		Where("q.is_active = ?", true).
		OrderExpr("q.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active quizzes: %w", err)
	}
	return quizzesFromRows(rows), nil
}

func (g *Gateway) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	var rows []quizRow
	if err := g.db.NewSelect().Model(&rows).OrderExpr("q.created_at DESC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return quizzesFromRows(rows), nil
}

func (g *Gateway) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var row quizRow
	err := g.db.NewSelect().Model(&row).Where("q.id = ?", quizID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("get quiz: %w", err)
	}
	return row.toDomain(), nil
}

func (g *Gateway) InsertQuiz(ctx context.Context, quiz domain.Quiz) (string, error) {
	row := newQuizRow(quiz)
	if _, err := g.db.NewInsert().Model(&row).Returning("id").Exec(ctx); err != nil {
		return "", fmt.Errorf("insert quiz: %w", translate(err))
	}
	return row.ID, nil
}

func (g *Gateway) UpdateQuiz(ctx context.Context, quiz domain.Quiz) error {
	row := newQuizRow(quiz)
	res, err := g.db.NewUpdate().Model(&row).
		Column("title", "description", "category", "difficulty", "time_limit", "is_active").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update quiz: %w", translate(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (g *Gateway) DeleteQuiz(ctx context.Context, quizID string) error {
	_, err := g.db.NewDelete().Model((*quizRow)(nil)).Where("id = ?", quizID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	return nil
}

func (g *Gateway) ListQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	var rows []questionRow
	err := g.db.NewSelect().Model(&rows).
		Where("qs.quiz_id = ?", quizID).
		OrderExpr("qs.order_index ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	out := make([]domain.Question, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// InsertQuestions writes all rows in one statement.
func (g *Gateway) InsertQuestions(ctx context.Context, questions []domain.Question) error {
	if len(questions) == 0 {
		return nil
	}
	rows := make([]questionRow, 0, len(questions))
	for _, q := range questions {
		rows = append(rows, newQuestionRow(q))
	}
	if _, err := g.db.NewInsert().Model(&rows).Returning("NULL").Exec(ctx); err != nil {
		return fmt.Errorf("insert questions: %w", translate(err))
	}
	return nil
}

func (g *Gateway) DeleteQuestions(ctx context.Context, quizID string) error {
	_, err := g.db.NewDelete().Model((*questionRow)(nil)).Where("quiz_id = ?", quizID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete questions: %w", err)
	}
	return nil
}

func (g *Gateway) InsertAttempt(ctx context.Context, attempt domain.QuizAttempt) error {
	row := attemptRow{
		ID:             attempt.ID,
		UserID:         attempt.UserID,
		QuizID:         attempt.QuizID,
		Score:          attempt.Score,
		TotalQuestions: attempt.TotalQuestions,
		CorrectAnswers: attempt.CorrectAnswers,
		TimeTaken:      attempt.TimeTaken,
		CompletedAt:    attempt.CompletedAt,
	}
	if _, err := g.db.NewInsert().Model(&row).Returning("NULL").Exec(ctx); err != nil {
		return fmt.Errorf("insert attempt: %w", translate(err))
	}
	return nil
}

func (g *Gateway) TopAttempts(ctx context.Context, limit int) ([]domain.QuizAttempt, error) {
	var rows []attemptView
	q := g.db.NewSelect().
		TableExpr("quiz_attempts AS a").
		ColumnExpr("a.id, a.user_id, a.quiz_id, a.score, a.total_questions, a.correct_answers, a.time_taken, a.completed_at").
		ColumnExpr("COALESCE(p.username, '') AS username").
		Join("LEFT JOIN profiles AS p ON p.id = a.user_id").
		OrderExpr("a.score DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("top attempts: %w", err)
	}
	return attemptsFromViews(rows), nil
}

func (g *Gateway) UserAttempts(ctx context.Context, userID string) ([]domain.QuizAttempt, error) {
	var rows []attemptView
	err := g.db.NewSelect().
		TableExpr("quiz_attempts AS a").
		ColumnExpr("a.id, a.user_id, a.quiz_id, a.score, a.total_questions, a.correct_answers, a.time_taken, a.completed_at").
		ColumnExpr("COALESCE(q.title, '') AS quiz_title").
		Join("LEFT JOIN quizzes AS q ON q.id = a.quiz_id").
		Where("a.user_id = ?", userID).
		OrderExpr("a.completed_at DESC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("user attempts: %w", err)
	}
	return attemptsFromViews(rows), nil
}

func (g *Gateway) ListAttempts(ctx context.Context) ([]domain.QuizAttempt, error) {
	var rows []attemptView
	err := g.db.NewSelect().
		TableExpr("quiz_attempts AS a").
		ColumnExpr("a.score, a.correct_answers, a.total_questions").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return attemptsFromViews(rows), nil
}

func (g *Gateway) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	var row profileRow
	err := g.db.NewSelect().Model(&row).Where("p.id = ?", userID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return domain.Profile{ID: row.ID, Username: row.Username, Email: row.Email, CreatedAt: row.CreatedAt}, nil
}

func insertProfile(ctx context.Context, db bun.IDB, profile domain.Profile) error {
	row := profileRow{ID: profile.ID, Username: profile.Username, Email: profile.Email, CreatedAt: profile.CreatedAt}
	if _, err := db.NewInsert().Model(&row).Returning("NULL").Exec(ctx); err != nil {
		return fmt.Errorf("insert profile: %w", translate(err))
	}
	return nil
}

func (g *Gateway) InsertMonument(ctx context.Context, monument domain.Monument) (string, error) {
	status := monument.Status
	if status == "" {
		status = domain.MonumentDraft
	}
	tags := monument.Tags
	if tags == nil {
		tags = []string{}
	}
	row := monumentRow{
		Name:         monument.Name,
		Location:     monument.Location,
		Era:          monument.Era,
		Description:  monument.Description,
		Significance: monument.Significance,
		ARMarkerURL:  monument.ARMarkerURL,
		Tags:         tags,
		Status:       string(status),
		CreatedBy:    monument.CreatedBy,
		CreatedAt:    monument.CreatedAt,
	}
	if _, err := g.db.NewInsert().Model(&row).Returning("id").Exec(ctx); err != nil {
		return "", fmt.Errorf("insert monument: %w", translate(err))
	}
	return row.ID, nil
}

func (g *Gateway) InsertFeedback(ctx context.Context, feedback domain.Feedback) error {
	row := feedbackRow{
		UserID:    feedback.UserID,
		Subject:   feedback.Subject,
		Message:   feedback.Message,
		CreatedAt: feedback.CreatedAt,
	}
	if _, err := g.db.NewInsert().Model(&row).Returning("NULL").Exec(ctx); err != nil {
		return fmt.Errorf("insert feedback: %w", translate(err))
	}
	return nil
}

func (g *Gateway) GetRole(ctx context.Context, userID string) (domain.Role, error) {
	var role string
	err := g.db.NewSelect().
		Table("user_roles").
		Column("role").
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get role: %w", err)
	}
	return domain.Role(role), nil
}

// SetRole grants role to a user, replacing nothing.
func (g *Gateway) SetRole(ctx context.Context, userID string, role domain.Role) error {
	_, err := g.db.NewRaw(
		"INSERT INTO user_roles (user_id, role) VALUES (?, ?) ON CONFLICT DO NOTHING",
		userID, string(role),
	).Exec(ctx)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return nil
}

func (g *Gateway) CountRows(ctx context.Context, table domain.Table) (int, error) {
	switch table {
	case domain.TableQuizzes, domain.TableQuestions, domain.TableQuizAttempts, domain.TableProfiles,
		domain.TableMonuments, domain.TableFeedback, domain.TableUserRoles:
	default:
		return 0, fmt.Errorf("count rows: unknown table %q", table)
	}
	n, err := g.db.NewSelect().Table(string(table)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// CreateUser inserts the credential row and the user's profile in one transaction.
func (g *Gateway) CreateUser(ctx context.Context, email, passwordHash, username string) (domain.User, error) {
	row := userRow{Email: email, PasswordHash: passwordHash}
	err := g.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&row).Returning("id").Exec(ctx); err != nil {
			return err
		}
		return insertProfile(ctx, tx, domain.Profile{ID: row.ID, Username: username, Email: email})
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.User{}, domain.ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return domain.User{ID: row.ID, Email: email}, nil
}

func (g *Gateway) FindCredentials(ctx context.Context, email string) (domain.User, string, error) {
	var row userRow
	err := g.db.NewSelect().Model(&row).Where("lower(u.email) = lower(?)", email).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, "", fmt.Errorf("find credentials: %w", err)
	}
	return domain.User{ID: row.ID, Email: row.Email}, row.PasswordHash, nil
}

// translate maps constraint violations onto validation errors.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation {
		return domain.Invalid("%s", pgErr.Message)
	}
	return err
}

func quizzesFromRows(rows []quizRow) []domain.Quiz {
	out := make([]domain.Quiz, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}

func attemptsFromViews(rows []attemptView) []domain.QuizAttempt {
	out := make([]domain.QuizAttempt, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}
