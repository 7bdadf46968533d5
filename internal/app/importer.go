package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"culturax-service/internal/domain"
)

// Field aliases accepted by ParseQuestionSet. The first alias holding a
// non-null value wins.
var (
	PromptAliases = []string{"question", "prompt", "question_text", "title"}
	AnswerAliases = []string{"answer", "correctAnswer", "correct_answer", "solution"}
	// FlatOptionAliases is used when an entry has no nested "options" object.
	FlatOptionAliases = map[domain.OptionKey][]string{
		domain.OptionA: {"optionA", "option_a"},
		domain.OptionB: {"optionB", "option_b"},
		domain.OptionC: {"optionC", "option_c"},
		domain.OptionD: {"optionD", "option_d"},
	}
)

const (
	// TemplateFileName is the download name of the sample question set.
	TemplateFileName = "culturax-quiz-template.json"
	// PreviewFileName is the download name of an exported preview.
	PreviewFileName = "quiz-preview.json"
)

// ParseQuestionSet validates an uploaded JSON document and normalizes every
// entry. Any invalid entry rejects the whole document.
func ParseQuestionSet(data []byte) ([]domain.ParsedQuestion, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, domain.Invalid("Invalid JSON: %v", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, domain.Invalid("Invalid JSON: unexpected data after the top-level value")
	}
	entries, ok := raw.([]any)
	if !ok || len(entries) == 0 {
		return nil, domain.Invalid("JSON must be an array of question objects.")
	}

	out := make([]domain.ParsedQuestion, 0, len(entries))
	for i, entry := range entries {
		q, err := parseEntry(i+1, entry)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func parseEntry(n int, entry any) (domain.ParsedQuestion, error) {
	candidate, _ := entry.(map[string]any)

	prompt, ok := firstValue(candidate, PromptAliases).(string)
	prompt = strings.TrimSpace(prompt)
	if !ok || prompt == "" {
		return domain.ParsedQuestion{}, domain.Invalid("Question #%d is missing a \"question\" field.", n)
	}

	var source func(key domain.OptionKey) any
	if nested, present := candidate["options"]; present && nested != nil {
		obj, _ := nested.(map[string]any)
		source = func(key domain.OptionKey) any {
			if v := obj[string(key)]; v != nil {
				return v
			}
			return obj[strings.ToLower(string(key))]
		}
	} else {
		source = func(key domain.OptionKey) any {
			return firstValue(candidate, FlatOptionAliases[key])
		}
	}

	var opts domain.QuestionOptions
	for _, key := range domain.OptionKeys {
		text, ok := source(key).(string)
		text = strings.TrimSpace(text)
		if !ok || text == "" {
			return domain.ParsedQuestion{}, domain.Invalid("Question #%d is missing option %s.", n, key)
		}
		switch key {
		case domain.OptionA:
			opts.A = text
		case domain.OptionB:
			opts.B = text
		case domain.OptionC:
			opts.C = text
		case domain.OptionD:
			opts.D = text
		}
	}

	answerRaw, _ := firstValue(candidate, AnswerAliases).(string)
	answer, ok := domain.ParseOptionKey(answerRaw)
	if !ok {
		return domain.ParsedQuestion{}, domain.Invalid("Question #%d has an invalid correct answer.", n)
	}

	q := domain.ParsedQuestion{Prompt: prompt, Options: opts, CorrectAnswer: answer}
	if num, ok := candidate["points"].(json.Number); ok {
		if f, err := num.Float64(); err == nil {
			p := int(f)
			q.Points = &p
		}
	}
	return q, nil
}

func firstValue(obj map[string]any, keys []string) any {
	for _, k := range keys {
		if v := obj[k]; v != nil {
			return v
		}
	}
	return nil
}

type templateEntry struct {
	Question string                 `json:"question"`
	Options  domain.QuestionOptions `json:"options"`
	Answer   domain.OptionKey       `json:"answer"`
	Points   int                    `json:"points"`
}

var sampleQuestionSet = []templateEntry{
	{
		Question: "Who commissioned the Taj Mahal?",
		Options:  domain.QuestionOptions{A: "Akbar", B: "Shah Jahan", C: "Aurangzeb", D: "Humayun"},
		Answer:   domain.OptionB,
		Points:   10,
	},
	{
		Question: "Ellora caves are famous for which blend of faiths?",
		Options:  domain.QuestionOptions{A: "Hindu, Buddhist, Jain", B: "Christian & Islamic", C: "Sikh & Buddhist", D: "Hindu & Christian"},
		Answer:   domain.OptionA,
		Points:   10,
	},
}

// SampleTemplate renders the downloadable example question set.
func SampleTemplate() ([]byte, error) {
	return json.MarshalIndent(sampleQuestionSet, "", "  ")
}

// SampleQuestions returns the sample question set in normalized form.
func SampleQuestions() []domain.ParsedQuestion {
	out := make([]domain.ParsedQuestion, 0, len(sampleQuestionSet))
	for _, e := range sampleQuestionSet {
		points := e.Points
		out = append(out, domain.ParsedQuestion{
			Prompt:        e.Question,
			Options:       e.Options,
			CorrectAnswer: e.Answer,
			Points:        &points,
		})
	}
	return out
}

// ExportQuestionSet renders a preview as indented JSON that ParseQuestionSet accepts.
func ExportQuestionSet(questions []domain.ParsedQuestion) ([]byte, error) {
	if questions == nil {
		questions = []domain.ParsedQuestion{}
	}
	data, err := json.MarshalIndent(questions, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export questions: %w", err)
	}
	return data, nil
}

// QuestionRows converts a preview into question rows of quizID with 0-based order.
func QuestionRows(quizID string, questions []domain.ParsedQuestion) []domain.Question {
	rows := make([]domain.Question, 0, len(questions))
	for i, q := range questions {
		points := domain.DefaultPoints
		if q.Points != nil {
			points = *q.Points
		}
		rows = append(rows, domain.Question{
			QuizID:        quizID,
			QuestionText:  q.Prompt,
			OptionA:       q.Options.A,
			OptionB:       q.Options.B,
			OptionC:       q.Options.C,
			OptionD:       q.Options.D,
			CorrectAnswer: q.CorrectAnswer,
			Points:        points,
			OrderIndex:    i,
		})
	}
	return rows
}

// ParsedFromRows maps stored question rows back to the preview form, ordered by order_index.
func ParsedFromRows(rows []domain.Question) []domain.ParsedQuestion {
	sorted := make([]domain.Question, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].OrderIndex < sorted[j].OrderIndex })

	out := make([]domain.ParsedQuestion, 0, len(sorted))
	for _, row := range sorted {
		answer := row.CorrectAnswer
		if answer == "" {
			answer = domain.OptionA
		}
		q := domain.ParsedQuestion{
			Prompt: row.QuestionText,
			Options: domain.QuestionOptions{
				A: row.OptionA,
				B: row.OptionB,
				C: row.OptionC,
				D: row.OptionD,
			},
			CorrectAnswer: answer,
		}
		if row.Points != 0 {
			p := row.Points
			q.Points = &p
		}
		out = append(out, q)
	}
	return out
}
