package model

import "time"

// TestStatistics 试卷聚合统计快照。提交后异步重算整卷数据并整行换入，
// 不参与提交事务，允许短暂滞后。
type TestStatistics struct {
	BaseModel
	TestID            uint      `gorm:"uniqueIndex;type:bigint unsigned" json:"testId"`
	Version           int64     `gorm:"default:0" json:"version"`
	TotalAttempts     int       `gorm:"default:0" json:"totalAttempts"`
	TotalStudents     int       `gorm:"default:0" json:"totalStudents"`
	AverageScore      float64   `gorm:"default:0" json:"averageScore"`
	AveragePercentage float64   `gorm:"default:0" json:"averagePercentage"`
	TopScore          float64   `gorm:"default:0" json:"topScore"`
	AverageTimeSec    float64   `gorm:"default:0" json:"averageTimeSec"`
	ComputedAt        time.Time `json:"computedAt"`
}

func (TestStatistics) TableName() string {
	return "test_statistics"
}
