package app

import (
	"context"
	"fmt"
	"strings"

	"culturax-service/internal/domain"
	"github.com/go-playground/validator/v10"
)

// FeedbackForm is the feedback page submission.
type FeedbackForm struct {
	Subject string `json:"subject" form:"subject" validate:"required,max=200"`
	Message string `json:"message" form:"message" validate:"required,max=1000"`
}

type FeedbackService struct {
	store    FeedbackStore
	validate *validator.Validate
}

func NewFeedbackService(store FeedbackStore) *FeedbackService {
	return &FeedbackService{store: store, validate: validator.New()}
}

// Submit stores trimmed feedback from userID.
func (s *FeedbackService) Submit(ctx context.Context, userID string, form FeedbackForm) error {
	if userID == "" {
		return domain.ErrUnauthenticated
	}
	form.Subject = strings.TrimSpace(form.Subject)
	form.Message = strings.TrimSpace(form.Message)
	if err := s.validate.Struct(form); err != nil {
		return formError(err, map[string]string{
			"Subject.required": "Subject is required",
			"Subject.max":      "Subject must be less than 200 characters",
			"Message.required": "Message is required",
			"Message.max":      "Message must be less than 1000 characters",
		})
	}
	if err := s.store.InsertFeedback(ctx, domain.Feedback{UserID: userID, Subject: form.Subject, Message: form.Message}); err != nil {
		return fmt.Errorf("save feedback: %w", err)
	}
	return nil
}

// formError turns the first validator failure into a ValidationError using
// messages keyed by "Field.tag".
func formError(err error, messages map[string]string) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return domain.Invalid("%v", err)
	}
	fe := verrs[0]
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return domain.Invalid("%s", msg)
	}
	return domain.Invalid("%s is invalid", fe.Field())
}
