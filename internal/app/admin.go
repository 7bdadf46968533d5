package app

import (
	"context"
	"fmt"
	"math"
	"strings"

	"culturax-service/internal/domain"
	"culturax-service/internal/metrics"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

const (
	defaultCategory  = "Heritage"
	defaultTimeLimit = 600
)

// QuizForm is the quiz metadata edited in the admin console.
type QuizForm struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Category    string `json:"category"`
	Difficulty  string `json:"difficulty" validate:"required,oneof=easy medium hard"`
	TimeLimit   int    `json:"timeLimit" validate:"gte=60"`
}

func DefaultQuizForm() QuizForm {
	return QuizForm{Difficulty: string(domain.DifficultyEasy), TimeLimit: defaultTimeLimit}
}

// Completion is the rounded percentage of non-empty form fields.
func (f QuizForm) Completion() int {
	filled := 0
	for _, v := range []string{f.Title, f.Description, f.Category, f.Difficulty} {
		if v != "" {
			filled++
		}
	}
	if f.TimeLimit != 0 {
		filled++
	}
	return percent(filled, 5)
}

// MonumentForm is the monument card editor.
type MonumentForm struct {
	Name         string `json:"name" validate:"required"`
	Location     string `json:"location"`
	Era          string `json:"era"`
	Description  string `json:"description"`
	Significance string `json:"significance"`
	ARMarkerURL  string `json:"arMarkerUrl" validate:"omitempty,url"`
	Tags         string `json:"tags"`
}

// Completion is the rounded percentage of non-blank form fields.
func (f MonumentForm) Completion() int {
	filled := 0
	for _, v := range []string{f.Name, f.Location, f.Era, f.Description, f.Significance, f.ARMarkerURL, f.Tags} {
		if strings.TrimSpace(v) != "" {
			filled++
		}
	}
	return percent(filled, 7)
}

// SplitTags splits a comma separated tag list, dropping blanks. It returns nil when no tag remains.
func SplitTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// AdminDraft is the quiz being composed by one admin. Nothing in it is
// persisted until it is submitted.
type AdminDraft struct {
	Form          QuizForm                `json:"form"`
	EditingQuizID string                  `json:"editingQuizId,omitempty"`
	Questions     []domain.ParsedQuestion `json:"questions"`
	FileName      string                  `json:"fileName,omitempty"`
	JSONError     string                  `json:"jsonError,omitempty"`
}

func NewAdminDraft() AdminDraft {
	return AdminDraft{Form: DefaultQuizForm(), Questions: []domain.ParsedQuestion{}}
}

// ImportJSON replaces the preview with the parsed file. On failure the
// preview is cleared and the message kept in JSONError.
func (d *AdminDraft) ImportJSON(fileName string, data []byte) error {
	questions, err := ParseQuestionSet(data)
	if err != nil {
		d.Questions = []domain.ParsedQuestion{}
		d.FileName = ""
		d.JSONError = err.Error()
		return err
	}
	d.Questions = questions
	d.FileName = fileName
	d.JSONError = ""
	return nil
}

func (d *AdminDraft) Reset() {
	*d = NewAdminDraft()
}

// Completion reports the quiz form completion.
func (d AdminDraft) Completion() int {
	return d.Form.Completion()
}

// DraftRepository keeps one draft per admin.
type DraftRepository interface {
	Load(adminID string) AdminDraft
	// Update applies fn to the admin's draft atomically and stores the result
	// when fn returns nil.
	Update(adminID string, fn func(*AdminDraft) error) (AdminDraft, error)
}

// QuizPreview is the read-only preview of a stored quiz.
type QuizPreview struct {
	QuizID    string                  `json:"quizId"`
	Title     string                  `json:"title"`
	Questions []domain.ParsedQuestion `json:"questions"`
}

// AdminService implements the admin console operations.
type AdminService struct {
	gateway  Gateway
	catalog  QuizCatalog
	drafts   DraftRepository
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
	validate *validator.Validate
}

func NewAdminService(gateway Gateway, catalog QuizCatalog, drafts DraftRepository, log logrus.FieldLogger, m *metrics.Metrics) *AdminService {
	return &AdminService{
		gateway:  gateway,
		catalog:  catalog,
		drafts:   drafts,
		log:      log,
		metrics:  m,
		validate: validator.New(),
	}
}

func (s *AdminService) Draft(adminID string) AdminDraft {
	return s.drafts.Load(adminID)
}

// ImportDraft parses an uploaded question file into the admin's preview.
func (s *AdminService) ImportDraft(adminID, fileName string, data []byte) (AdminDraft, error) {
	var importErr error
	draft, err := s.drafts.Update(adminID, func(d *AdminDraft) error {
		importErr = d.ImportJSON(fileName, data)
		return nil
	})
	s.metrics.QuestionImport(importErr)
	if err != nil {
		return draft, err
	}
	if importErr != nil {
		s.log.WithFields(logrus.Fields{"admin_id": adminID, "file": fileName}).WithError(importErr).Warn("question import rejected")
		return draft, importErr
	}
	s.log.WithFields(logrus.Fields{"admin_id": adminID, "file": fileName, "questions": len(draft.Questions)}).Info("question set imported")
	return draft, nil
}

// UpdateDraftForm replaces the quiz form of the admin's draft.
func (s *AdminService) UpdateDraftForm(adminID string, form QuizForm) (AdminDraft, error) {
	return s.drafts.Update(adminID, func(d *AdminDraft) error {
		d.Form = form
		return nil
	})
}

func (s *AdminService) ResetDraft(adminID string) AdminDraft {
	draft, _ := s.drafts.Update(adminID, func(d *AdminDraft) error {
		d.Reset()
		return nil
	})
	return draft
}

// EditQuiz loads a stored quiz into the admin's draft for editing.
func (s *AdminService) EditQuiz(ctx context.Context, adminID, quizID string) (AdminDraft, error) {
	quiz, err := s.gateway.GetQuiz(ctx, quizID)
	if err != nil {
		return AdminDraft{}, err
	}
	rows, err := s.gateway.ListQuestions(ctx, quizID)
	if err != nil {
		return AdminDraft{}, fmt.Errorf("load questions: %w", err)
	}
	return s.drafts.Update(adminID, func(d *AdminDraft) error {
		d.Form = FormFromQuiz(quiz)
		d.EditingQuizID = quiz.ID
		d.FileName = ""
		d.JSONError = ""
		d.Questions = ParsedFromRows(rows)
		return nil
	})
}

// FormFromQuiz fills a quiz form from a stored quiz.
func FormFromQuiz(quiz domain.Quiz) QuizForm {
	form := QuizForm{
		Title:       quiz.Title,
		Description: quiz.Description,
		Category:    quiz.Category,
		Difficulty:  string(quiz.Difficulty),
		TimeLimit:   quiz.TimeLimit,
	}
	if form.Difficulty == "" {
		form.Difficulty = string(domain.DifficultyEasy)
	}
	if form.TimeLimit == 0 {
		form.TimeLimit = defaultTimeLimit
	}
	return form
}

// SubmitDraft saves the admin's draft and resets it on success.
func (s *AdminService) SubmitDraft(ctx context.Context, adminID string) (string, error) {
	draft := s.drafts.Load(adminID)
	quizID, err := s.SaveQuiz(ctx, adminID, draft)
	if err != nil {
		return "", err
	}
	s.ResetDraft(adminID)
	return quizID, nil
}

// SaveQuiz upserts the quiz row and replaces its questions with the preview.
// The steps are not atomic: when inserting questions fails after the old ones
// were deleted, the quiz is left without questions and the error is returned.
func (s *AdminService) SaveQuiz(ctx context.Context, adminID string, draft AdminDraft) (string, error) {
	if len(draft.Questions) == 0 {
		return "", domain.Invalid("Please import a JSON file that contains quiz questions.")
	}
	if err := s.validate.Struct(draft.Form); err != nil {
		return "", formError(err, map[string]string{
			"Title.required":       "Title is required",
			"Description.required": "Description is required",
			"Difficulty.required":  "Difficulty must be easy, medium or hard",
			"Difficulty.oneof":     "Difficulty must be easy, medium or hard",
			"TimeLimit.gte":        "Time limit must be at least 60 seconds",
		})
	}

	category := strings.TrimSpace(draft.Form.Category)
	if category == "" {
		category = defaultCategory
	}
	quiz := domain.Quiz{
		ID:          draft.EditingQuizID,
		Title:       draft.Form.Title,
		Description: draft.Form.Description,
		Category:    category,
		Difficulty:  domain.Difficulty(draft.Form.Difficulty),
		TimeLimit:   draft.Form.TimeLimit,
		IsActive:    true,
		CreatedBy:   adminID,
	}

	quizID := quiz.ID
	if quizID != "" {
		if err := s.gateway.UpdateQuiz(ctx, quiz); err != nil {
			return "", fmt.Errorf("update quiz: %w", err)
		}
		defer s.catalog.Invalidate(ctx, quizID)
		if err := s.gateway.DeleteQuestions(ctx, quizID); err != nil {
			return "", fmt.Errorf("delete questions: %w", err)
		}
	} else {
		id, err := s.gateway.InsertQuiz(ctx, quiz)
		if err != nil {
			return "", fmt.Errorf("insert quiz: %w", err)
		}
		quizID = id
	}

	if err := s.gateway.InsertQuestions(ctx, QuestionRows(quizID, draft.Questions)); err != nil {
		s.log.WithField("quiz_id", quizID).WithError(err).Error("question insert failed after quiz upsert")
		return "", fmt.Errorf("insert questions: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"quiz_id":   quizID,
		"admin_id":  adminID,
		"questions": len(draft.Questions),
		"edited":    draft.EditingQuizID != "",
	}).Info("quiz saved")
	return quizID, nil
}

// PreviewQuiz returns a stored quiz's questions in preview form.
func (s *AdminService) PreviewQuiz(ctx context.Context, quizID string) (QuizPreview, error) {
	quiz, err := s.gateway.GetQuiz(ctx, quizID)
	if err != nil {
		return QuizPreview{}, err
	}
	rows, err := s.gateway.ListQuestions(ctx, quizID)
	if err != nil {
		return QuizPreview{}, fmt.Errorf("load questions: %w", err)
	}
	return QuizPreview{QuizID: quiz.ID, Title: quiz.Title, Questions: ParsedFromRows(rows)}, nil
}

// ListQuizzes returns every quiz, newest first.
func (s *AdminService) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	quizzes, err := s.gateway.ListQuizzes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return quizzes, nil
}

// DeleteQuiz removes a quiz and its questions. An admin draft that is
// editing a quiz is reset afterwards.
func (s *AdminService) DeleteQuiz(ctx context.Context, adminID, quizID string) error {
	defer s.catalog.Invalidate(ctx, quizID)
	if err := s.gateway.DeleteQuestions(ctx, quizID); err != nil {
		return fmt.Errorf("delete questions: %w", err)
	}
	if err := s.gateway.DeleteQuiz(ctx, quizID); err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	_, _ = s.drafts.Update(adminID, func(d *AdminDraft) error {
		if d.EditingQuizID != "" {
			d.Reset()
		}
		return nil
	})
	s.log.WithFields(logrus.Fields{"quiz_id": quizID, "admin_id": adminID}).Info("quiz deleted")
	return nil
}

// CreateMonument stores a draft monument card.
func (s *AdminService) CreateMonument(ctx context.Context, adminID string, form MonumentForm) (domain.Monument, error) {
	form.Name = strings.TrimSpace(form.Name)
	form.ARMarkerURL = strings.TrimSpace(form.ARMarkerURL)
	if err := s.validate.Struct(form); err != nil {
		return domain.Monument{}, formError(err, map[string]string{
			"Name.required":   "Name is required",
			"ARMarkerURL.url": "AR marker must be a valid URL",
		})
	}
	monument := domain.Monument{
		Name:         form.Name,
		Location:     form.Location,
		Era:          form.Era,
		Description:  form.Description,
		Significance: form.Significance,
		ARMarkerURL:  form.ARMarkerURL,
		Tags:         SplitTags(form.Tags),
		Status:       domain.MonumentDraft,
		CreatedBy:    adminID,
	}
	id, err := s.gateway.InsertMonument(ctx, monument)
	if err != nil {
		return domain.Monument{}, fmt.Errorf("save monument: %w", err)
	}
	monument.ID = id
	s.log.WithFields(logrus.Fields{"monument_id": id, "admin_id": adminID}).Info("monument added")
	return monument, nil
}

// Analytics gathers head counts and attempt averages.
func (s *AdminService) Analytics(ctx context.Context) (domain.Analytics, error) {
	var out domain.Analytics
	counts := []struct {
		table domain.Table
		dst   *int
	}{
		{domain.TableQuizzes, &out.Quizzes},
		{domain.TableMonuments, &out.Monuments},
		{domain.TableProfiles, &out.Profiles},
		{domain.TableFeedback, &out.Feedback},
	}
	for _, c := range counts {
		n, err := s.gateway.CountRows(ctx, c.table)
		if err != nil {
			return domain.Analytics{}, fmt.Errorf("count %s: %w", c.table, err)
		}
		*c.dst = n
	}

	attempts, err := s.gateway.ListAttempts(ctx)
	if err != nil {
		return domain.Analytics{}, fmt.Errorf("load attempts: %w", err)
	}
	stats := AttemptStats(attempts)
	out.Attempts = stats.TotalAttempts
	out.AverageScore = stats.AverageScore
	out.AverageAccuracy = stats.AverageAccuracy
	return out, nil
}

func percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}
