package service

import (
	"testing"
	"time"

	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/repository"
)

func gradedRow(attemptID, studentID uint, name string, marks float64, timeSec int, createdAt time.Time) repository.GradedAttemptRow {
	row := repository.GradedAttemptRow{StudentName: name}
	row.Attempt.ID = attemptID
	row.StudentID = studentID
	row.ObtainedMarks = marks
	row.TimeSpentSeconds = timeSec
	row.CreatedAt = createdAt
	row.Status = model.AttemptCompleted
	return row
}

func TestRankAttempts(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("score desc then time asc with inclusive percentiles", func(t *testing.T) {
		rows := []repository.GradedAttemptRow{
			gradedRow(1, 101, "Alice", 85, 3600, base),
			gradedRow(2, 102, "Bob", 85, 3000, base),
			gradedRow(3, 103, "Carol", 40, 2000, base),
		}
		entries := RankAttempts(rows)
		if len(entries) != 3 {
			t.Fatalf("entries = %d, want 3", len(entries))
		}

		// 同分 85 按用时排序，Bob 更快居前
		if entries[0].StudentName != "Bob" || entries[0].Rank != 1 {
			t.Errorf("first = %s rank %d, want Bob rank 1", entries[0].StudentName, entries[0].Rank)
		}
		if entries[1].StudentName != "Alice" || entries[1].Rank != 2 {
			t.Errorf("second = %s rank %d, want Alice rank 2", entries[1].StudentName, entries[1].Rank)
		}
		if entries[2].Rank != 3 {
			t.Errorf("third rank = %d, want 3", entries[2].Rank)
		}

		// 含自身的百分位：同分两人都是 100，末位 1/3
		wantPercentiles := []float64{100, 100, 33.33}
		for i, want := range wantPercentiles {
			if entries[i].Percentile != want {
				t.Errorf("percentile[%d] = %v, want %v", i, entries[i].Percentile, want)
			}
		}
	})

	t.Run("only latest attempt per student counts", func(t *testing.T) {
		rows := []repository.GradedAttemptRow{
			gradedRow(1, 101, "Alice", 90, 3000, base),
			gradedRow(2, 101, "Alice", 60, 3000, base.Add(time.Hour)),
			gradedRow(3, 102, "Bob", 70, 3000, base),
		}
		entries := RankAttempts(rows)
		if len(entries) != 2 {
			t.Fatalf("entries = %d, want 2 after dedup", len(entries))
		}
		// Alice 的最近一次是 60 分，排在 Bob 之后
		if entries[0].StudentName != "Bob" {
			t.Errorf("first = %s, want Bob", entries[0].StudentName)
		}
		if entries[1].AttemptID != 2 {
			t.Errorf("Alice attemptId = %d, want latest attempt 2", entries[1].AttemptID)
		}
	})

	t.Run("ranks stay positional on full tie", func(t *testing.T) {
		rows := []repository.GradedAttemptRow{
			gradedRow(1, 101, "Alice", 50, 1000, base),
			gradedRow(2, 102, "Bob", 50, 1000, base),
		}
		entries := RankAttempts(rows)
		if entries[0].Rank != 1 || entries[1].Rank != 2 {
			t.Errorf("ranks = %d,%d, want 1,2 (no shared ranks)", entries[0].Rank, entries[1].Rank)
		}
		if entries[0].Percentile != 100 || entries[1].Percentile != 100 {
			t.Errorf("percentiles = %v,%v, want both 100", entries[0].Percentile, entries[1].Percentile)
		}
	})

	t.Run("single student is rank one percentile hundred", func(t *testing.T) {
		entries := RankAttempts([]repository.GradedAttemptRow{
			gradedRow(1, 101, "Alice", -3, 600, base),
		})
		if len(entries) != 1 {
			t.Fatalf("entries = %d, want 1", len(entries))
		}
		if entries[0].Rank != 1 || entries[0].Percentile != 100 {
			t.Errorf("rank/percentile = %d/%v, want 1/100", entries[0].Rank, entries[0].Percentile)
		}
		if entries[0].ObtainedMarks != -3 {
			t.Errorf("negative score altered: %v", entries[0].ObtainedMarks)
		}
	})

	t.Run("empty input yields empty board", func(t *testing.T) {
		entries := RankAttempts(nil)
		if len(entries) != 0 {
			t.Errorf("entries = %d, want 0", len(entries))
		}
	})

	t.Run("total students recorded on every entry", func(t *testing.T) {
		rows := []repository.GradedAttemptRow{
			gradedRow(1, 101, "Alice", 10, 100, base),
			gradedRow(2, 102, "Bob", 20, 100, base),
			gradedRow(3, 103, "Carol", 30, 100, base),
		}
		for _, e := range RankAttempts(rows) {
			if e.TotalStudents != 3 {
				t.Errorf("TotalStudents = %d, want 3", e.TotalStudents)
			}
		}
	})
}

func TestWindowResult(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	entries := RankAttempts([]repository.GradedAttemptRow{
		gradedRow(1, 101, "Alice", 90, 100, base),
		gradedRow(2, 102, "Bob", 80, 100, base),
		gradedRow(3, 103, "Carol", 70, 100, base),
		gradedRow(4, 104, "Dave", 60, 100, base),
	})

	t.Run("limit trims the board", func(t *testing.T) {
		result := windowResult(entries, 2, 0)
		if len(result.Leaderboard) != 2 {
			t.Fatalf("window = %d, want 2", len(result.Leaderboard))
		}
		if result.Stats.TotalStudents != 4 {
			t.Errorf("stats must cover the full board, TotalStudents = %d, want 4", result.Stats.TotalStudents)
		}
		if result.TargetStudent != nil {
			t.Error("no target requested, TargetStudent should be nil")
		}
	})

	t.Run("off-window target appended with real rank", func(t *testing.T) {
		result := windowResult(entries, 2, 104)
		if result.TargetStudent == nil {
			t.Fatal("TargetStudent = nil, want Dave")
		}
		if result.TargetStudent.Rank != 4 {
			t.Errorf("target rank = %d, want 4", result.TargetStudent.Rank)
		}
	})

	t.Run("in-window target not duplicated", func(t *testing.T) {
		result := windowResult(entries, 2, 101)
		if result.TargetStudent != nil {
			t.Error("target inside window must not be duplicated")
		}
	})

	t.Run("unknown target silently omitted", func(t *testing.T) {
		result := windowResult(entries, 2, 999)
		if result.TargetStudent != nil {
			t.Error("unknown student should not produce a target entry")
		}
	})
}

func TestSummarize(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	entries := RankAttempts([]repository.GradedAttemptRow{
		gradedRow(1, 101, "Alice", 80, 1000, base),
		gradedRow(2, 102, "Bob", 40, 2000, base),
	})

	stats := summarize(entries)
	if stats.TotalStudents != 2 {
		t.Errorf("TotalStudents = %d, want 2", stats.TotalStudents)
	}
	if stats.AverageScore != 60 {
		t.Errorf("AverageScore = %v, want 60", stats.AverageScore)
	}
	if stats.TopScore != 80 {
		t.Errorf("TopScore = %v, want 80", stats.TopScore)
	}
	if stats.AverageTimeSec != 1500 {
		t.Errorf("AverageTimeSec = %v, want 1500", stats.AverageTimeSec)
	}

	empty := summarize(nil)
	if empty.TotalStudents != 0 || empty.AverageScore != 0 {
		t.Errorf("empty summary = %+v, want zero values", empty)
	}
}
