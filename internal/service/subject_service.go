package service

import (
	"encoding/json"
	"exam_platform_backend/internal/config"
	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/repository"
	"exam_platform_backend/internal/util"
	"exam_platform_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SubjectService struct {
	TestRepo    *repository.TestRepository
	AttemptRepo *repository.AttemptRepository
	Cfg         *config.Config
}

func NewSubjectService(testRepo *repository.TestRepository, attemptRepo *repository.AttemptRepository, cfg *config.Config) *SubjectService {
	return &SubjectService{
		TestRepo:    testRepo,
		AttemptRepo: attemptRepo,
		Cfg:         cfg,
	}
}

// finishSubjectStat 补齐两种百分比。
// 得分比基于满分（可为负），正确率只看已作答的题，语义不能混用。
func finishSubjectStat(stat *model.SubjectStat) {
	if stat.MaxScore > 0 {
		stat.ScorePercentage = util.Round2(stat.Score / stat.MaxScore * 100)
	}
	attempted := stat.Correct + stat.Incorrect
	if attempted > 0 {
		stat.AccuracyPercentage = util.Round2(float64(stat.Correct) / float64(attempted) * 100)
	}
}

// ParseSubjectStats 反序列化作答记录里的科目快照，坏数据按空处理并告警
func ParseSubjectStats(raw string) []model.SubjectStat {
	if raw == "" {
		return nil
	}
	var stats []model.SubjectStat
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		logger.Log.Warn("malformed subject snapshot", zap.Error(err))
		return nil
	}
	return stats
}

// BuildSubjectReport 跨作答聚合科目均值。
// questionCounts 来自卷面定义；只出现在作答快照里的科目也保留（防御性默认桶），
// 此时题量按快照内的计数推导。
func BuildSubjectReport(questionCounts map[string]int, subjectOrder []string, perAttempt [][]model.SubjectStat, gapThreshold float64) []model.SubjectReportRow {
	type acc struct {
		scoreSum    float64
		accuracySum float64
		timeSum     float64
		slotSum     int
		samples     int
	}

	accs := make(map[string]*acc)
	order := append([]string(nil), subjectOrder...)
	seen := make(map[string]bool, len(order))
	for _, s := range order {
		seen[s] = true
		accs[s] = &acc{}
	}

	for _, stats := range perAttempt {
		for _, stat := range stats {
			if !seen[stat.Subject] {
				seen[stat.Subject] = true
				order = append(order, stat.Subject)
				accs[stat.Subject] = &acc{}
			}
			a := accs[stat.Subject]
			a.scoreSum += stat.ScorePercentage
			a.accuracySum += stat.AccuracyPercentage
			a.timeSum += float64(stat.TimeSpentSeconds)
			a.slotSum += stat.Correct + stat.Incorrect + stat.Unattempted
			a.samples++
		}
	}

	rows := make([]model.SubjectReportRow, 0, len(order))
	for _, subject := range order {
		a := accs[subject]
		row := model.SubjectReportRow{
			Subject:        subject,
			TotalQuestions: questionCounts[subject],
		}
		if a.samples > 0 {
			row.AverageScorePercentage = util.Round2(a.scoreSum / float64(a.samples))
			row.AverageAccuracyPercentage = util.Round2(a.accuracySum / float64(a.samples))
			row.IsLearningGap = row.AverageScorePercentage < gapThreshold
		}
		if a.slotSum > 0 {
			row.AverageTimePerQuestionSec = util.Round2(a.timeSum / float64(a.slotSum))
		}
		rows = append(rows, row)
	}
	return rows
}

// SubjectQuestionCounts 卷面各科目的题量，保持卷面首次出现的科目顺序
func SubjectQuestionCounts(test *model.Test) (map[string]int, []string) {
	counts := make(map[string]int)
	var order []string
	for i := range test.Questions {
		subject := test.Questions[i].SubjectOrDefault()
		if _, ok := counts[subject]; !ok {
			order = append(order, subject)
		}
		counts[subject]++
	}
	return counts, order
}

type TestSubjectReport struct {
	TestID       uint                     `json:"testId"`
	TestTitle    string                   `json:"testTitle"`
	AttemptsUsed int                      `json:"attemptsUsed"`
	Subjects     []model.SubjectReportRow `json:"subjects"`
	GapThreshold float64                  `json:"gapThreshold"`
}

// GetTestReport 整卷维度的科目报表（管理端）
func (s *SubjectService) GetTestReport(testID uint) (*TestSubjectReport, error) {
	test, err := s.TestRepo.FindByIDWithQuestions(testID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}

	rows, err := s.AttemptRepo.FindGradedByTest(testID)
	if err != nil {
		return nil, err
	}

	perAttempt := make([][]model.SubjectStat, 0, len(rows))
	for i := range rows {
		if stats := ParseSubjectStats(rows[i].SubjectWise); stats != nil {
			perAttempt = append(perAttempt, stats)
		}
	}

	counts, order := SubjectQuestionCounts(test)
	scoring := s.Cfg.ScoringSnapshot()
	report := BuildSubjectReport(counts, order, perAttempt, scoring.LearningGapThreshold)

	return &TestSubjectReport{
		TestID:       test.ID,
		TestTitle:    test.Title,
		AttemptsUsed: len(perAttempt),
		Subjects:     report,
		GapThreshold: scoring.LearningGapThreshold,
	}, nil
}
