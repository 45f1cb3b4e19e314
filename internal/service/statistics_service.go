package service

import (
	"time"

	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/repository"
	"exam_platform_backend/internal/util"
	"exam_platform_backend/pkg/logger"
	"exam_platform_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type StatisticsService struct {
	StatsRepo   *repository.StatisticsRepository
	AttemptRepo *repository.AttemptRepository
}

func NewStatisticsService(statsRepo *repository.StatisticsRepository, attemptRepo *repository.AttemptRepository) *StatisticsService {
	return &StatisticsService{
		StatsRepo:   statsRepo,
		AttemptRepo: attemptRepo,
	}
}

// RecomputeAsync 提交链路之外异步重算试卷统计。
// 失败只记日志，不回传提交接口，成绩落库不受统计影响。
func (s *StatisticsService) RecomputeAsync(testID uint) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Log.Error("statistics recompute panic",
					zap.Uint("test_id", testID), zap.Any("panic", r))
				monitoring.StatisticsRecomputeCounter.WithLabelValues("panic").Inc()
			}
		}()
		if err := s.Recompute(testID); err != nil {
			logger.Log.Error("statistics recompute failed",
				zap.Uint("test_id", testID), zap.Error(err))
			monitoring.StatisticsRecomputeCounter.WithLabelValues("error").Inc()
			return
		}
		monitoring.StatisticsRecomputeCounter.WithLabelValues("ok").Inc()
	}()
}

// Recompute 从全量已评分作答重算并整体换入快照
func (s *StatisticsService) Recompute(testID uint) error {
	rows, err := s.AttemptRepo.FindGradedByTest(testID)
	if err != nil {
		return err
	}

	stats := &model.TestStatistics{
		TestID:     testID,
		Version:    1,
		ComputedAt: time.Now(),
	}

	if len(rows) > 0 {
		students := make(map[uint]bool, len(rows))
		var scoreSum, pctSum, timeSum float64
		top := rows[0].ObtainedMarks
		for i := range rows {
			a := &rows[i].Attempt
			students[a.StudentID] = true
			scoreSum += a.ObtainedMarks
			pctSum += a.Percentage
			timeSum += float64(a.TimeSpentSeconds)
			if a.ObtainedMarks > top {
				top = a.ObtainedMarks
			}
		}
		n := float64(len(rows))
		stats.TotalAttempts = len(rows)
		stats.TotalStudents = len(students)
		stats.AverageScore = util.Round2(scoreSum / n)
		stats.AveragePercentage = util.Round2(pctSum / n)
		stats.TopScore = top
		stats.AverageTimeSec = util.Round2(timeSum / n)
	}

	return s.StatsRepo.Swap(stats)
}

// Get 读取当前快照，缺失时返回 nil 而非错误（新卷尚无作答属正常态）
func (s *StatisticsService) Get(testID uint) (*model.TestStatistics, error) {
	stats, err := s.StatsRepo.FindByTestID(testID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return stats, nil
}
