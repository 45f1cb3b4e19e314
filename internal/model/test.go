package model

import (
	"encoding/json"
	"time"
)

type QuestionType string

const (
	QuestionChoice    QuestionType = "choice"
	QuestionNumerical QuestionType = "numerical"
)

// swagger:model Test
type Test struct {
	BaseModel
	Title           string     `gorm:"size:255;not null" json:"title"`
	Description     string     `gorm:"type:text" json:"description"`
	DurationMinutes int        `gorm:"default:0" json:"durationMinutes"`
	TotalMarks      float64    `gorm:"default:0" json:"totalMarks"` // 0 表示按题目数推导
	IsPublished     bool       `gorm:"default:false" json:"isPublished"`
	PublishedAt     *time.Time `json:"publishedAt,omitempty"`
	CreatorID       uint       `gorm:"index;type:bigint unsigned" json:"creatorId"`

	Questions []Question `gorm:"foreignKey:TestID" json:"questions,omitempty"`
}

func (Test) TableName() string {
	return "tests"
}

// EffectiveTotalMarks 声明总分优先，未声明时按 题目数 × 默认正分 推导
func (t *Test) EffectiveTotalMarks(defaultPositive float64) float64 {
	if t.TotalMarks > 0 {
		return t.TotalMarks
	}
	return float64(len(t.Questions)) * defaultPositive
}

// swagger:model Question
type Question struct {
	BaseModel
	TestID       uint            `gorm:"index;type:bigint unsigned" json:"testId"`
	Order        int             `gorm:"default:0" json:"order"`
	Subject      string          `gorm:"size:100;default:'General'" json:"subject"`
	QuestionType QuestionType    `gorm:"size:20;not null;default:'choice'" json:"questionType"`
	Content      string          `gorm:"type:text;not null" json:"content"`
	Options      json.RawMessage `gorm:"type:json" json:"options,omitempty"`

	// 选择题答案为选项下标，数值题为参考值加容差
	CorrectOption *int     `json:"correctOption,omitempty"`
	CorrectValue  *float64 `json:"correctValue,omitempty"`
	Tolerance     *float64 `json:"tolerance,omitempty"`

	// 单题分值覆盖全局默认（正分/扣分幅度）
	PositiveMarks *float64 `json:"positiveMarks,omitempty"`
	NegativeMarks *float64 `json:"negativeMarks,omitempty"`

	Explanation string `gorm:"type:text" json:"explanation"`
}

func (Question) TableName() string {
	return "questions"
}

// SubjectOrDefault 未填写科目的题目归入 General 桶
func (q *Question) SubjectOrDefault() string {
	if q.Subject == "" {
		return "General"
	}
	return q.Subject
}
