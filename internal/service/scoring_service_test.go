package service

import (
	"math"
	"reflect"
	"testing"
	"time"

	"exam_platform_backend/internal/config"
	"exam_platform_backend/internal/model"
)

func intPtr(v int) *int { return &v }

func f64Ptr(v float64) *float64 { return &v }

func defaultScoring() config.ScoringConfig {
	return config.ScoringConfig{
		DefaultPositiveMarks: 4,
		DefaultNegativeMarks: 1,
		NumericalTolerance:   0.01,
	}
}

func choiceQuestion(id uint, order int, subject string, correct int) model.Question {
	q := model.Question{
		Order:         order,
		Subject:       subject,
		QuestionType:  model.QuestionChoice,
		Content:       "q",
		CorrectOption: intPtr(correct),
	}
	q.ID = id
	return q
}

func numericalQuestion(id uint, order int, subject string, value float64, tolerance *float64) model.Question {
	q := model.Question{
		Order:        order,
		Subject:      subject,
		QuestionType: model.QuestionNumerical,
		Content:      "q",
		CorrectValue: f64Ptr(value),
		Tolerance:    tolerance,
	}
	q.ID = id
	return q
}

func TestGradeSubmission(t *testing.T) {
	tests := []struct {
		name            string
		questions       []model.Question
		answers         []SubmittedAnswer
		wantObtained    float64
		wantTotal       float64
		wantCorrect     int
		wantIncorrect   int
		wantUnattempted int
	}{
		{
			name: "one correct one incorrect nets plus three",
			questions: []model.Question{
				choiceQuestion(1, 1, "Math", 0),
				choiceQuestion(2, 2, "Math", 1),
			},
			answers: []SubmittedAnswer{
				{QuestionID: 1, SelectedOption: intPtr(0)},
				{QuestionID: 2, SelectedOption: intPtr(0)},
			},
			wantObtained:  3,
			wantTotal:     8,
			wantCorrect:   1,
			wantIncorrect: 1,
		},
		{
			name: "both answer fields absent means unattempted",
			questions: []model.Question{
				choiceQuestion(1, 1, "Math", 0),
				choiceQuestion(2, 2, "Math", 1),
			},
			answers: []SubmittedAnswer{
				{QuestionID: 1},
				{QuestionID: 2},
			},
			wantObtained:    0,
			wantTotal:       8,
			wantUnattempted: 2,
		},
		{
			name: "numerical answer inside tolerance is correct",
			questions: []model.Question{
				numericalQuestion(1, 1, "Physics", 3.14, f64Ptr(0.01)),
			},
			answers: []SubmittedAnswer{
				{QuestionID: 1, NumericalAnswer: f64Ptr(3.145)},
			},
			wantObtained: 4,
			wantTotal:    4,
			wantCorrect:  1,
		},
		{
			name: "numerical answer outside tolerance is incorrect",
			questions: []model.Question{
				numericalQuestion(1, 1, "Physics", 3.14, f64Ptr(0.01)),
			},
			answers: []SubmittedAnswer{
				{QuestionID: 1, NumericalAnswer: f64Ptr(3.16)},
			},
			wantObtained:  -1,
			wantTotal:     4,
			wantIncorrect: 1,
		},
		{
			name: "selected option zero is a valid answer not unattempted",
			questions: []model.Question{
				choiceQuestion(1, 1, "Math", 0),
			},
			answers: []SubmittedAnswer{
				{QuestionID: 1, SelectedOption: intPtr(0)},
			},
			wantObtained: 4,
			wantTotal:    4,
			wantCorrect:  1,
		},
		{
			name: "numerical zero is a valid answer not unattempted",
			questions: []model.Question{
				numericalQuestion(1, 1, "Math", 0, nil),
			},
			answers: []SubmittedAnswer{
				{QuestionID: 1, NumericalAnswer: f64Ptr(0)},
			},
			wantObtained: 4,
			wantTotal:    4,
			wantCorrect:  1,
		},
		{
			name: "all incorrect total goes negative and stays negative",
			questions: []model.Question{
				choiceQuestion(1, 1, "Math", 0),
				choiceQuestion(2, 2, "Math", 0),
				choiceQuestion(3, 3, "Math", 0),
			},
			answers: []SubmittedAnswer{
				{QuestionID: 1, SelectedOption: intPtr(1)},
				{QuestionID: 2, SelectedOption: intPtr(1)},
				{QuestionID: 3, SelectedOption: intPtr(1)},
			},
			wantObtained:  -3,
			wantTotal:     12,
			wantIncorrect: 3,
		},
		{
			name: "answers without ids fall back to positional alignment",
			questions: []model.Question{
				choiceQuestion(1, 1, "Math", 0),
				choiceQuestion(2, 2, "Math", 1),
			},
			answers: []SubmittedAnswer{
				{SelectedOption: intPtr(0)},
				{SelectedOption: intPtr(1)},
			},
			wantObtained: 8,
			wantTotal:    8,
			wantCorrect:  2,
		},
		{
			name: "missing answer slot counts as unattempted",
			questions: []model.Question{
				choiceQuestion(1, 1, "Math", 0),
				choiceQuestion(2, 2, "Math", 1),
			},
			answers: []SubmittedAnswer{
				{QuestionID: 1, SelectedOption: intPtr(0)},
			},
			wantObtained:    4,
			wantTotal:       8,
			wantCorrect:     1,
			wantUnattempted: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			test := &model.Test{Questions: tt.questions}
			got := GradeSubmission(test, tt.answers, defaultScoring())

			if got.Obtained != tt.wantObtained {
				t.Errorf("Obtained = %v, want %v", got.Obtained, tt.wantObtained)
			}
			if got.Total != tt.wantTotal {
				t.Errorf("Total = %v, want %v", got.Total, tt.wantTotal)
			}
			if got.Correct != tt.wantCorrect {
				t.Errorf("Correct = %d, want %d", got.Correct, tt.wantCorrect)
			}
			if got.Incorrect != tt.wantIncorrect {
				t.Errorf("Incorrect = %d, want %d", got.Incorrect, tt.wantIncorrect)
			}
			if got.Unattempted != tt.wantUnattempted {
				t.Errorf("Unattempted = %d, want %d", got.Unattempted, tt.wantUnattempted)
			}
		})
	}
}

func TestGradeSubmissionPerQuestionMarksOverride(t *testing.T) {
	q1 := choiceQuestion(1, 1, "Math", 0)
	q1.PositiveMarks = f64Ptr(6)
	q1.NegativeMarks = f64Ptr(2)
	q2 := choiceQuestion(2, 2, "Math", 0)
	q2.PositiveMarks = f64Ptr(6)
	q2.NegativeMarks = f64Ptr(2)

	test := &model.Test{Questions: []model.Question{q1, q2}}
	got := GradeSubmission(test, []SubmittedAnswer{
		{QuestionID: 1, SelectedOption: intPtr(0)},
		{QuestionID: 2, SelectedOption: intPtr(1)},
	}, defaultScoring())

	if got.Obtained != 4 {
		t.Errorf("Obtained = %v, want 4 (6 - 2)", got.Obtained)
	}
	if got.Total != 12 {
		t.Errorf("Total = %v, want 12", got.Total)
	}
}

func TestGradeSubmissionDeclaredTotalWins(t *testing.T) {
	test := &model.Test{
		TotalMarks: 100,
		Questions:  []model.Question{choiceQuestion(1, 1, "Math", 0)},
	}
	got := GradeSubmission(test, []SubmittedAnswer{
		{QuestionID: 1, SelectedOption: intPtr(0)},
	}, defaultScoring())

	if got.Total != 100 {
		t.Errorf("Total = %v, want declared 100", got.Total)
	}
	if got.Percentage != 4 {
		t.Errorf("Percentage = %v, want 4", got.Percentage)
	}
}

func TestGradeSubmissionDeterministic(t *testing.T) {
	test := &model.Test{Questions: []model.Question{
		choiceQuestion(1, 1, "Math", 0),
		numericalQuestion(2, 2, "Physics", 9.8, nil),
		choiceQuestion(3, 3, "Math", 2),
	}}
	answers := []SubmittedAnswer{
		{QuestionID: 1, SelectedOption: intPtr(0)},
		{QuestionID: 2, NumericalAnswer: f64Ptr(9.81)},
		{QuestionID: 3},
	}

	first := GradeSubmission(test, answers, defaultScoring())
	for i := 0; i < 5; i++ {
		again := GradeSubmission(test, answers, defaultScoring())
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs from first run", i+1)
		}
	}
}

func TestResolveTimeSpent(t *testing.T) {
	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	ended := started.Add(95 * time.Second)

	tests := []struct {
		name   string
		client *float64
		want   int
	}{
		{"positive client value is trusted", f64Ptr(120), 120},
		{"nil client derives from timestamps", nil, 95},
		{"zero falls back to timestamps", f64Ptr(0), 95},
		{"negative falls back to timestamps", f64Ptr(-30), 95},
		{"NaN falls back to timestamps", f64Ptr(math.NaN()), 95},
		{"Inf falls back to timestamps", f64Ptr(math.Inf(1)), 95},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveTimeSpent(tt.client, started, ended); got != tt.want {
				t.Errorf("ResolveTimeSpent() = %d, want %d", got, tt.want)
			}
		})
	}

	t.Run("clock skew never yields negative duration", func(t *testing.T) {
		if got := ResolveTimeSpent(nil, ended, started); got != 0 {
			t.Errorf("ResolveTimeSpent() = %d, want 0", got)
		}
	})
}

func TestRemainingSeconds(t *testing.T) {
	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	if got := RemainingSeconds(60, started, started.Add(10*time.Minute)); got != 3000 {
		t.Errorf("RemainingSeconds() = %d, want 3000", got)
	}
	if got := RemainingSeconds(60, started, started.Add(2*time.Hour)); got != 0 {
		t.Errorf("past deadline: %d, want 0", got)
	}
}

func TestGradingTimeout(t *testing.T) {
	tests := []struct {
		name    string
		seconds int
		want    time.Duration
	}{
		{"configured value", 30, 30 * time.Second},
		{"zero falls back to default", 0, 10 * time.Second},
		{"negative falls back to default", -5, 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gradingTimeout(tt.seconds); got != tt.want {
				t.Errorf("gradingTimeout(%d) = %v, want %v", tt.seconds, got, tt.want)
			}
		})
	}
}
