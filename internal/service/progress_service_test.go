package service

import (
	"testing"
	"time"

	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/repository"
)

func gradedAttempt(id uint, percentage float64, createdAt time.Time) model.Attempt {
	a := model.Attempt{
		Status:     model.AttemptCompleted,
		Percentage: percentage,
	}
	a.ID = id
	a.CreatedAt = createdAt
	return a
}

func TestBuildProgress(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("rising then dipping still trends improving", func(t *testing.T) {
		attempts := []model.Attempt{
			gradedAttempt(1, 60, base),
			gradedAttempt(2, 75, base.AddDate(0, 0, 1)),
			gradedAttempt(3, 68, base.AddDate(0, 0, 2)),
		}
		items, summary := BuildProgress(attempts)

		if summary.Trend != "improving" {
			t.Errorf("Trend = %q, want improving (68 > 60)", summary.Trend)
		}
		if summary.LatestImprovement != -7 {
			t.Errorf("LatestImprovement = %v, want -7", summary.LatestImprovement)
		}
		if summary.OverallImprovement != 8 {
			t.Errorf("OverallImprovement = %v, want 8", summary.OverallImprovement)
		}
		if !summary.HasImprovement {
			t.Error("HasImprovement = false, want true")
		}
		if summary.BestScore != 75 || summary.BestAttemptID != 2 {
			t.Errorf("best = %v (attempt %d), want 75 (attempt 2)", summary.BestScore, summary.BestAttemptID)
		}
		if summary.WorstScore != 60 {
			t.Errorf("WorstScore = %v, want 60", summary.WorstScore)
		}

		if len(items) != 3 {
			t.Fatalf("items = %d, want 3", len(items))
		}
		if !items[0].IsFirst || items[0].Improvement != nil {
			t.Error("first attempt must have no improvement delta")
		}
		if items[1].Improvement == nil || *items[1].Improvement != 15 {
			t.Errorf("second delta = %v, want 15", items[1].Improvement)
		}
		if items[1].ImprovementKind != "improved" {
			t.Errorf("second kind = %q, want improved", items[1].ImprovementKind)
		}
		if items[2].Improvement == nil || *items[2].Improvement != -7 {
			t.Errorf("third delta = %v, want -7", items[2].Improvement)
		}
		if items[2].ImprovementKind != "declined" {
			t.Errorf("third kind = %q, want declined", items[2].ImprovementKind)
		}
		if !items[1].IsBest {
			t.Error("second attempt should be flagged best")
		}
	})

	t.Run("attempt numbers follow chronological order", func(t *testing.T) {
		attempts := []model.Attempt{
			gradedAttempt(7, 50, base),
			gradedAttempt(3, 55, base.Add(time.Hour)),
			gradedAttempt(9, 52, base.Add(2*time.Hour)),
		}
		items, _ := BuildProgress(attempts)
		for i, item := range items {
			if item.AttemptNumber != i+1 {
				t.Errorf("AttemptNumber[%d] = %d, want %d", i, item.AttemptNumber, i+1)
			}
		}
	})

	t.Run("single attempt is stable with no deltas", func(t *testing.T) {
		items, summary := BuildProgress([]model.Attempt{gradedAttempt(1, 42, base)})
		if summary.Trend != "stable" {
			t.Errorf("Trend = %q, want stable", summary.Trend)
		}
		if summary.LatestImprovement != 0 || summary.HasImprovement {
			t.Errorf("improvement = %v/%v, want 0/false", summary.LatestImprovement, summary.HasImprovement)
		}
		if !items[0].IsBest || !items[0].IsFirst {
			t.Error("single attempt is both first and best")
		}
	})

	t.Run("declining series", func(t *testing.T) {
		attempts := []model.Attempt{
			gradedAttempt(1, 80, base),
			gradedAttempt(2, 70, base.Add(time.Hour)),
		}
		_, summary := BuildProgress(attempts)
		if summary.Trend != "declining" {
			t.Errorf("Trend = %q, want declining", summary.Trend)
		}
		if summary.HasImprovement {
			t.Error("HasImprovement = true on a declining series")
		}
	})

	t.Run("empty series", func(t *testing.T) {
		items, summary := BuildProgress(nil)
		if items == nil || len(items) != 0 {
			t.Errorf("items = %v, want non-nil empty slice", items)
		}
		if summary.TotalAttempts != 0 || summary.Trend != "stable" {
			t.Errorf("summary = %+v, want empty stable", summary)
		}
	})

	t.Run("tied best keeps the earliest attempt", func(t *testing.T) {
		attempts := []model.Attempt{
			gradedAttempt(1, 90, base),
			gradedAttempt(2, 90, base.Add(time.Hour)),
		}
		items, summary := BuildProgress(attempts)
		if summary.BestAttemptID != 1 {
			t.Errorf("BestAttemptID = %d, want earliest 1", summary.BestAttemptID)
		}
		if items[1].ImprovementKind != "stable" {
			t.Errorf("kind = %q, want stable on zero delta", items[1].ImprovementKind)
		}
	})
}

func TestReconcileTime(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	a := gradedAttempt(1, 50, base)
	a.TimeSpentSeconds = 600
	if got := reconcileTime(&a); got != 600 {
		t.Errorf("no answers: %d, want attempt-level 600", got)
	}

	a.Answers = []model.AttemptAnswer{
		{TimeTakenSeconds: 100},
		{TimeTakenSeconds: 250},
	}
	if got := reconcileTime(&a); got != 350 {
		t.Errorf("with per-question times: %d, want 350", got)
	}

	a.Answers = []model.AttemptAnswer{{}, {}}
	if got := reconcileTime(&a); got != 600 {
		t.Errorf("zeroed per-question times: %d, want fallback 600", got)
	}
}

func studentRow(attemptID, testID uint, title string, percentage float64, createdAt time.Time) repository.GradedStudentRow {
	row := repository.GradedStudentRow{TestTitle: title}
	row.Attempt.ID = attemptID
	row.TestID = testID
	row.Percentage = percentage
	row.CreatedAt = createdAt
	return row
}

func TestBuildTrend(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("retakes keyed by test id not title", func(t *testing.T) {
		rows := []repository.GradedStudentRow{
			studentRow(1, 10, "Algebra Mock", 60, base),
			studentRow(2, 11, "Algebra Mock", 70, base.AddDate(0, 0, 1)), // 同名不同卷
			studentRow(3, 10, "Algebra Mock", 80, base.AddDate(0, 0, 2)),
		}
		points := BuildTrend(rows)
		if len(points) != 3 {
			t.Fatalf("points = %d, want 3", len(points))
		}
		if points[0].IsRetake || points[1].IsRetake {
			t.Error("first attempts on distinct tests flagged as retakes")
		}
		if !points[2].IsRetake || points[2].AttemptNumber != 2 {
			t.Errorf("points[2] retake/number = %v/%d, want true/2", points[2].IsRetake, points[2].AttemptNumber)
		}
	})

	t.Run("zero test id falls back to title grouping", func(t *testing.T) {
		rows := []repository.GradedStudentRow{
			studentRow(1, 0, "Legacy Import", 50, base),
			studentRow(2, 0, "Legacy Import", 55, base.Add(time.Hour)),
			studentRow(3, 0, "Other Import", 60, base.Add(2*time.Hour)),
		}
		points := BuildTrend(rows)
		if !points[1].IsRetake {
			t.Error("same-title legacy rows should group as retake")
		}
		if points[2].IsRetake {
			t.Error("different-title legacy row wrongly flagged as retake")
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if points := BuildTrend(nil); len(points) != 0 {
			t.Errorf("points = %d, want 0", len(points))
		}
	})
}
