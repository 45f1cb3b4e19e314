package repository

import (
	"exam_platform_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StatisticsRepository struct {
	DB *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) *StatisticsRepository {
	return &StatisticsRepository{DB: db}
}

func (r *StatisticsRepository) FindByTestID(testID uint) (*model.TestStatistics, error) {
	var stats model.TestStatistics
	err := r.DB.Where("test_id = ?", testID).First(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// Swap 整行换入新快照并递增版本号。按 test_id 幂等 upsert，
// 并发重算时后写的版本胜出，不会撕裂半旧半新的数据。
func (r *StatisticsRepository) Swap(stats *model.TestStatistics) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "test_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"version":            gorm.Expr("version + 1"),
			"total_attempts":     stats.TotalAttempts,
			"total_students":     stats.TotalStudents,
			"average_score":      stats.AverageScore,
			"average_percentage": stats.AveragePercentage,
			"top_score":          stats.TopScore,
			"average_time_sec":   stats.AverageTimeSec,
			"computed_at":        stats.ComputedAt,
		}),
	}).Create(stats).Error
}
