package model

import "time"

// SubjectStat 单次作答的科目明细。
// scorePercentage 按得分比（可为负），accuracyPercentage 按作答正确率
// （未作答不计入分母），两者语义不同，字段上显式区分。
type SubjectStat struct {
	Subject            string  `json:"subject"`
	Correct            int     `json:"correct"`
	Incorrect          int     `json:"incorrect"`
	Unattempted        int     `json:"unattempted"`
	Score              float64 `json:"score"`
	MaxScore           float64 `json:"maxScore"`
	ScorePercentage    float64 `json:"scorePercentage"`
	AccuracyPercentage float64 `json:"accuracyPercentage"`
	TimeSpentSeconds   int     `json:"timeSpentSeconds"`
}

// SubjectReportRow 跨作答的科目均值报表行
type SubjectReportRow struct {
	Subject                   string  `json:"subject"`
	TotalQuestions            int     `json:"totalQuestions"`
	AverageScorePercentage    float64 `json:"averageScorePercentage"`
	AverageAccuracyPercentage float64 `json:"averageAccuracyPercentage"`
	AverageTimePerQuestionSec float64 `json:"averageTimePerQuestionSec"`
	IsLearningGap             bool    `json:"isLearningGap"`
}

// LeaderboardEntry 按请求即时计算，不落库
type LeaderboardEntry struct {
	Rank             int           `json:"rank"`
	Percentile       float64       `json:"percentile"`
	TotalStudents    int           `json:"totalStudents"`
	StudentID        uint          `json:"studentId"`
	StudentName      string        `json:"studentName"`
	AttemptID        uint          `json:"attemptId"`
	ObtainedMarks    float64       `json:"obtainedMarks"`
	Percentage       float64       `json:"percentage"`
	TotalTimeSeconds int           `json:"totalTimeSeconds"`
	SubmittedAt      time.Time     `json:"submittedAt"`
	SubjectWise      []SubjectStat `json:"subjectWise,omitempty"`
}

type LeaderboardStats struct {
	TotalStudents  int     `json:"totalStudents"`
	AverageScore   float64 `json:"averageScore"`
	TopScore       float64 `json:"topScore"`
	AverageTimeSec float64 `json:"averageTimeSec"`
}

type LeaderboardResult struct {
	Leaderboard   []LeaderboardEntry `json:"leaderboard"`
	Stats         LeaderboardStats   `json:"stats"`
	TargetStudent *LeaderboardEntry  `json:"targetStudent,omitempty"`
}

// AttemptProgress 同一试卷的历次作答序列项，按 createdAt 升序编号
type AttemptProgress struct {
	AttemptID        uint      `json:"attemptId"`
	AttemptNumber    int       `json:"attemptNumber"`
	CreatedAt        time.Time `json:"createdAt"`
	ObtainedMarks    float64   `json:"obtainedMarks"`
	Percentage       float64   `json:"percentage"`
	TimeSpentSeconds int       `json:"timeSpentSeconds"`
	IsFirst          bool      `json:"isFirst"`
	IsBest           bool      `json:"isBest"`
	Improvement      *float64  `json:"improvement,omitempty"` // 相对上一次的百分比差值
	ImprovementKind  string    `json:"improvementKind,omitempty"`
}

type ProgressSummary struct {
	HasImprovement     bool    `json:"hasImprovement"`
	LatestImprovement  float64 `json:"latestImprovement"`
	OverallImprovement float64 `json:"overallImprovement"`
	BestScore          float64 `json:"bestScore"`
	WorstScore         float64 `json:"worstScore"`
	BestAttemptID      uint    `json:"bestAttemptId"`
	TotalAttempts      int     `json:"totalAttempts"`
	Trend              string  `json:"trend"` // improving | declining | stable
}

type ProgressResult struct {
	Attempts    []AttemptProgress `json:"attempts"`
	Improvement ProgressSummary   `json:"improvement"`
	Stats       *TestStatistics   `json:"stats,omitempty"`
}

// TrendPoint 跨试卷的成绩走势点，重考按稳定的试卷ID识别
type TrendPoint struct {
	TestID        uint      `json:"testId"`
	TestTitle     string    `json:"testTitle"`
	AttemptID     uint      `json:"attemptId"`
	AttemptNumber int       `json:"attemptNumber"` // 同一试卷内的第几次作答
	IsRetake      bool      `json:"isRetake"`
	Percentage    float64   `json:"percentage"`
	CreatedAt     time.Time `json:"createdAt"`
}
