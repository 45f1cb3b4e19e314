package model

import "time"

type AttemptStatus string

const (
	AttemptInProgress    AttemptStatus = "in_progress"
	AttemptCompleted     AttemptStatus = "completed"
	AttemptAutoSubmitted AttemptStatus = "auto_submitted"
	AttemptAbandoned     AttemptStatus = "abandoned"
)

// IsGraded 已评分的终态（弃考不评分）
func (s AttemptStatus) IsGraded() bool {
	return s == AttemptCompleted || s == AttemptAutoSubmitted
}

// swagger:model Attempt
type Attempt struct {
	BaseModel
	TestID    uint          `gorm:"index;type:bigint unsigned" json:"testId"`
	StudentID uint          `gorm:"index;type:bigint unsigned" json:"studentId"`
	Status    AttemptStatus `gorm:"size:20;default:'in_progress'" json:"status"`

	StartedAt        time.Time  `json:"startedAt"`
	EndedAt          *time.Time `json:"endedAt,omitempty"`
	TimeSpentSeconds int        `gorm:"default:0" json:"timeSpentSeconds"`

	// Score：obtained 允许为负（负分不抬零），percentage 仅在总分大于零时计算
	ObtainedMarks float64 `gorm:"default:0" json:"obtainedMarks"`
	TotalMarks    float64 `gorm:"default:0" json:"totalMarks"`
	Percentage    float64 `gorm:"default:0" json:"percentage"`

	// Analysis 汇总，科目明细以 JSON 快照随评分一并写入
	CorrectCount     int    `gorm:"default:0" json:"correctCount"`
	IncorrectCount   int    `gorm:"default:0" json:"incorrectCount"`
	UnattemptedCount int    `gorm:"default:0" json:"unattemptedCount"`
	SubjectWise      string `gorm:"type:json" json:"subjectWise"`

	Answers []AttemptAnswer `gorm:"foreignKey:AttemptID" json:"answers,omitempty"`
}

func (Attempt) TableName() string {
	return "attempts"
}

// swagger:model AttemptAnswer
type AttemptAnswer struct {
	BaseModel
	AttemptID     uint `gorm:"index;type:bigint unsigned" json:"attemptId"`
	QuestionID    uint `gorm:"index;type:bigint unsigned" json:"questionId"`
	QuestionOrder int  `gorm:"default:0" json:"questionOrder"`

	// 两个字段均为空即未作答；0 或下标 0 是有效作答，不能与缺失混淆
	SelectedOption  *int     `json:"selectedOption,omitempty"`
	NumericalAnswer *float64 `json:"numericalAnswer,omitempty"`

	IsCorrect        bool    `gorm:"default:false" json:"isCorrect"`
	MarksAwarded     float64 `gorm:"default:0" json:"marksAwarded"`
	TimeTakenSeconds int     `gorm:"default:0" json:"timeTakenSeconds"`
}

func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}

// Attempted 判断该题槽位是否作答
func (a *AttemptAnswer) Attempted() bool {
	return a.SelectedOption != nil || a.NumericalAnswer != nil
}
