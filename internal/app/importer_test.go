package app

import (
	"testing"

	"culturax-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuestionSetAliases(t *testing.T) {
	data := []byte(`[
		{"question": " Who built it? ", "options": {"A": "x", "b": "y", "C": "z", "d": "w"}, "answer": " b ", "points": 15},
		{"prompt": "P2", "optionA": "1", "option_b": "2", "optionC": "3", "option_d": "4", "correctAnswer": "d"},
		{"question_text": "P3", "options": {"a": "1", "b": "2", "c": "3", "d": "4"}, "correct_answer": "C", "points": 2.9},
		{"title": "P4", "options": {"A": "1", "B": "2", "C": "3", "D": "4"}, "solution": "a", "points": "5"}
	]`)

	got, err := ParseQuestionSet(data)
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, "Who built it?", got[0].Prompt)
	assert.Equal(t, domain.QuestionOptions{A: "x", B: "y", C: "z", D: "w"}, got[0].Options)
	assert.Equal(t, domain.OptionB, got[0].CorrectAnswer)
	require.NotNil(t, got[0].Points)
	assert.Equal(t, 15, *got[0].Points)

	assert.Equal(t, domain.QuestionOptions{A: "1", B: "2", C: "3", D: "4"}, got[1].Options)
	assert.Equal(t, domain.OptionD, got[1].CorrectAnswer)
	assert.Nil(t, got[1].Points)

	assert.Equal(t, domain.OptionC, got[2].CorrectAnswer)
	require.NotNil(t, got[2].Points)
	assert.Equal(t, 2, *got[2].Points)

	assert.Equal(t, "P4", got[3].Prompt)
	assert.Nil(t, got[3].Points, "non-numeric points are dropped")
}

func TestParseQuestionSetRejects(t *testing.T) {
	cases := []struct {
		name string
		data string
		msg  string
	}{
		{"object", `{"question": "x"}`, "JSON must be an array of question objects."},
		{"empty", `[]`, "JSON must be an array of question objects."},
		{"missing prompt", `[{"options": {"A":"1","B":"2","C":"3","D":"4"}, "answer": "A"}]`, `Question #1 is missing a "question" field.`},
		{"blank prompt", `[{"question": "   ", "options": {"A":"1","B":"2","C":"3","D":"4"}, "answer": "A"}]`, `Question #1 is missing a "question" field.`},
		{"missing option", `[
			{"question": "ok", "options": {"A":"1","B":"2","C":"3","D":"4"}, "answer": "A"},
			{"question": "q", "options": {"A":"1","B":"2","D":"4"}, "answer": "A"}
		]`, "Question #2 is missing option C."},
		{"nested options shadow flat", `[{"question": "q", "options": {"A":"1"}, "optionB": "2", "optionC": "3", "optionD": "4", "answer": "A"}]`, "Question #1 is missing option B."},
		{"answer out of range", `[{"question": "q", "options": {"A":"1","B":"2","C":"3","D":"4"}, "answer": "E"}]`, "Question #1 has an invalid correct answer."},
		{"answer not string", `[{"question": "q", "options": {"A":"1","B":"2","C":"3","D":"4"}, "answer": 1}]`, "Question #1 has an invalid correct answer."},
		{"entry not object", `["just text"]`, `Question #1 is missing a "question" field.`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseQuestionSet([]byte(tc.data))
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, domain.IsValidation(err))
			assert.Equal(t, tc.msg, err.Error())
		})
	}
}

func TestParseQuestionSetMalformedJSON(t *testing.T) {
	_, err := ParseQuestionSet([]byte(`[{"question": `))
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestParseQuestionSetTrailingData(t *testing.T) {
	valid := `[{"question": "q", "options": {"A":"1","B":"2","C":"3","D":"4"}, "answer": "A"}]`

	_, err := ParseQuestionSet([]byte(valid + " garbage"))
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	_, err = ParseQuestionSet([]byte(valid + ` []`))
	assert.True(t, domain.IsValidation(err))

	got, err := ParseQuestionSet([]byte(valid + "\n\t "))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestTemplateAndExportReimport(t *testing.T) {
	tmpl, err := SampleTemplate()
	require.NoError(t, err)
	parsed, err := ParseQuestionSet(tmpl)
	require.NoError(t, err)
	assert.Equal(t, SampleQuestions(), parsed)

	exported, err := ExportQuestionSet(parsed)
	require.NoError(t, err)
	again, err := ParseQuestionSet(exported)
	require.NoError(t, err)
	assert.Equal(t, parsed, again)
}

func TestQuestionRowsRoundTrip(t *testing.T) {
	five := 5
	preview := []domain.ParsedQuestion{
		{Prompt: "one", Options: domain.QuestionOptions{A: "a", B: "b", C: "c", D: "d"}, CorrectAnswer: domain.OptionC, Points: &five},
		{Prompt: "two", Options: domain.QuestionOptions{A: "e", B: "f", C: "g", D: "h"}, CorrectAnswer: domain.OptionA},
	}
	rows := QuestionRows("quiz-1", preview)
	require.Len(t, rows, 2)
	assert.Equal(t, 0, rows[0].OrderIndex)
	assert.Equal(t, 1, rows[1].OrderIndex)
	assert.Equal(t, domain.DefaultPoints, rows[1].Points)

	// storage order must not matter
	rows[0], rows[1] = rows[1], rows[0]
	back := ParsedFromRows(rows)
	assert.Equal(t, "one", back[0].Prompt)
	assert.Equal(t, preview[0], back[0])
	require.NotNil(t, back[1].Points)
	assert.Equal(t, domain.DefaultPoints, *back[1].Points)
}
