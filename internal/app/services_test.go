package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"culturax-service/internal/app"
	"culturax-service/internal/domain"
	"culturax-service/internal/infra/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileOverview(t *testing.T) {
	gw := memory.NewGateway()
	ctx := context.Background()
	base := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	quizID, err := gw.InsertQuiz(ctx, domain.Quiz{Title: "Forts of Rajasthan", IsActive: true})
	require.NoError(t, err)
	require.NoError(t, gw.InsertProfile(ctx, domain.Profile{ID: "u1", Username: "meera"}))
	for i := 0; i < 12; i++ {
		require.NoError(t, gw.InsertAttempt(ctx, domain.QuizAttempt{
			UserID: "u1", QuizID: quizID, Score: i, CorrectAnswers: 1, TotalQuestions: 2,
			CompletedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	profiles := app.NewProfileService(gw, gw)
	overview, err := profiles.Overview(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "meera", overview.Profile.Username)
	assert.Equal(t, 12, overview.Stats.TotalAttempts)
	assert.Equal(t, 6, overview.Stats.AverageScore)
	assert.Equal(t, 50, overview.Stats.AverageAccuracy)
	require.Len(t, overview.Recent, 10)
	assert.Equal(t, 11, overview.Recent[0].Score)
	assert.Equal(t, "Forts of Rajasthan", overview.Recent[0].QuizTitle)

	// a user without a profile row still gets stats
	bare, err := profiles.Overview(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, bare.Profile.Username)
	assert.Equal(t, 0, bare.Stats.TotalAttempts)

	_, err = profiles.Overview(ctx, "")
	assert.True(t, errors.Is(err, domain.ErrUnauthenticated))
}

func TestLeaderboardServiceLimit(t *testing.T) {
	gw := memory.NewGateway()
	ctx := context.Background()
	for i, user := range []string{"u1", "u2", "u3"} {
		require.NoError(t, gw.InsertAttempt(ctx, domain.QuizAttempt{UserID: user, QuizID: "q", Score: 10 * (i + 1), TotalQuestions: 1}))
	}

	entries, err := app.NewLeaderboardService(gw, 2).Top(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "u3", entries[0].UserID)
	assert.Equal(t, app.UnknownExplorer, entries[0].Username)
	assert.Equal(t, "u2", entries[1].UserID)
}

func TestFeedbackSubmit(t *testing.T) {
	gw := memory.NewGateway()
	feedback := app.NewFeedbackService(gw)
	ctx := context.Background()

	err := feedback.Submit(ctx, "", app.FeedbackForm{Subject: "Hi", Message: "Hello"})
	assert.True(t, errors.Is(err, domain.ErrUnauthenticated))

	cases := []struct {
		form app.FeedbackForm
		want string
	}{
		{app.FeedbackForm{Subject: " ", Message: "Hello"}, "Subject is required"},
		{app.FeedbackForm{Subject: "Hi", Message: "\n\t"}, "Message is required"},
		{app.FeedbackForm{Subject: strings.Repeat("s", 201), Message: "Hello"}, "Subject must be less than 200 characters"},
		{app.FeedbackForm{Subject: "Hi", Message: strings.Repeat("m", 1001)}, "Message must be less than 1000 characters"},
	}
	for _, tc := range cases {
		err := feedback.Submit(ctx, "u1", tc.form)
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))
		assert.Equal(t, tc.want, err.Error())
	}
	assert.Empty(t, gw.Feedback())

	require.NoError(t, feedback.Submit(ctx, "u1", app.FeedbackForm{Subject: " Forts ", Message: " More forts please "}))
	stored := gw.Feedback()
	require.Len(t, stored, 1)
	assert.Equal(t, "Forts", stored[0].Subject)
	assert.Equal(t, "More forts please", stored[0].Message)
	assert.Equal(t, "u1", stored[0].UserID)
}

func TestCatalogServiceListsActiveNewestFirst(t *testing.T) {
	gw := memory.NewGateway()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := gw.InsertQuiz(ctx, domain.Quiz{Title: "older", IsActive: true, CreatedAt: base})
	require.NoError(t, err)
	_, err = gw.InsertQuiz(ctx, domain.Quiz{Title: "draft", CreatedAt: base.Add(time.Hour)})
	require.NoError(t, err)
	newest, err := gw.InsertQuiz(ctx, domain.Quiz{Title: "newer", IsActive: true, CreatedAt: base.Add(2 * time.Hour)})
	require.NoError(t, err)
	require.NoError(t, gw.InsertQuestions(ctx, app.QuestionRows(newest, app.SampleQuestions())))

	catalog := app.NewCatalogService(gw, memory.NewQuizCatalog(app.NewContentLoader(gw, gw), time.Minute, nil))
	quizzes, err := catalog.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, quizzes, 2)
	assert.Equal(t, "newer", quizzes[0].Title)

	quiz, err := catalog.Quiz(ctx, newest)
	require.NoError(t, err)
	require.Len(t, quiz.Questions, 2)
	assert.Equal(t, domain.OptionB, quiz.Questions[0].CorrectAnswer)
}
