package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/repository"
	"exam_platform_backend/internal/util"
	"exam_platform_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type TestService struct {
	TestRepo    *repository.TestRepository
	AttemptRepo *repository.AttemptRepository
}

func NewTestService(testRepo *repository.TestRepository, attemptRepo *repository.AttemptRepository) *TestService {
	return &TestService{
		TestRepo:    testRepo,
		AttemptRepo: attemptRepo,
	}
}

type QuestionReq struct {
	ID           uint            `json:"id"` // 更新时携带，为 0 表示新增
	Order        int             `json:"order"`
	Subject      string          `json:"subject"`
	QuestionType string          `json:"questionType" binding:"required,oneof=choice numerical"`
	Content      string          `json:"content" binding:"required"`
	Options      json.RawMessage `json:"options"`

	CorrectOption *int     `json:"correctOption"`
	CorrectValue  *float64 `json:"correctValue"`
	Tolerance     *float64 `json:"tolerance"`

	PositiveMarks *float64 `json:"positiveMarks"`
	NegativeMarks *float64 `json:"negativeMarks"`
	Explanation   string   `json:"explanation"`
}

type TestReq struct {
	Title           string        `json:"title" binding:"required,max=255"`
	Description     string        `json:"description"`
	DurationMinutes int           `json:"durationMinutes" binding:"gte=0"`
	TotalMarks      float64       `json:"totalMarks" binding:"gte=0"`
	Questions       []QuestionReq `json:"questions"`
}

// validateQuestion 选择题必须有选项和答案下标，数值题必须有参考值
func validateQuestion(q *QuestionReq) error {
	switch model.QuestionType(q.QuestionType) {
	case model.QuestionChoice:
		if q.CorrectOption == nil {
			return fmt.Errorf("question %q: choice question requires correctOption", q.Content)
		}
		var opts []json.RawMessage
		if err := json.Unmarshal(q.Options, &opts); err != nil {
			return fmt.Errorf("question %q: options must be a JSON array", q.Content)
		}
		if *q.CorrectOption < 0 || *q.CorrectOption >= len(opts) {
			return fmt.Errorf("question %q: correctOption %d out of range", q.Content, *q.CorrectOption)
		}
	case model.QuestionNumerical:
		if q.CorrectValue == nil {
			return fmt.Errorf("question %q: numerical question requires correctValue", q.Content)
		}
		if q.Tolerance != nil && *q.Tolerance < 0 {
			return fmt.Errorf("question %q: tolerance must not be negative", q.Content)
		}
	}
	if q.PositiveMarks != nil && *q.PositiveMarks <= 0 {
		return fmt.Errorf("question %q: positiveMarks must be positive", q.Content)
	}
	if q.NegativeMarks != nil && *q.NegativeMarks < 0 {
		return fmt.Errorf("question %q: negativeMarks is a magnitude, must not be negative", q.Content)
	}
	return nil
}

func questionFromReq(testID uint, order int, req *QuestionReq) model.Question {
	q := model.Question{
		TestID:        testID,
		Order:         order,
		Subject:       req.Subject,
		QuestionType:  model.QuestionType(req.QuestionType),
		Content:       req.Content,
		Options:       req.Options,
		CorrectOption: req.CorrectOption,
		CorrectValue:  req.CorrectValue,
		Tolerance:     req.Tolerance,
		PositiveMarks: req.PositiveMarks,
		NegativeMarks: req.NegativeMarks,
		Explanation:   req.Explanation,
	}
	q.ID = req.ID
	return q
}

func (s *TestService) CreateTest(creatorID uint, req TestReq) (*model.Test, error) {
	for i := range req.Questions {
		if err := validateQuestion(&req.Questions[i]); err != nil {
			return nil, err
		}
	}

	test := &model.Test{
		Title:           req.Title,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		TotalMarks:      req.TotalMarks,
		CreatorID:       creatorID,
	}
	for i := range req.Questions {
		order := req.Questions[i].Order
		if order == 0 {
			order = i + 1
		}
		test.Questions = append(test.Questions, questionFromReq(0, order, &req.Questions[i]))
	}

	if err := s.TestRepo.Create(test); err != nil {
		return nil, err
	}
	logger.Log.Info("test created", zap.Uint("testId", test.ID), zap.Uint("creatorId", creatorID))
	return test, nil
}

// UpdateTest 题目按 ID 对账：有 ID 的更新，无 ID 的新增，缺席的删除
func (s *TestService) UpdateTest(testID uint, req TestReq) (*model.Test, error) {
	test, err := s.TestRepo.FindByIDWithQuestions(testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}

	for i := range req.Questions {
		if err := validateQuestion(&req.Questions[i]); err != nil {
			return nil, err
		}
	}

	keep := make(map[uint]bool, len(req.Questions))
	for i := range req.Questions {
		if req.Questions[i].ID != 0 {
			keep[req.Questions[i].ID] = true
		}
	}

	err = s.TestRepo.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Test{}).Where("id = ?", testID).Updates(map[string]interface{}{
			"title":            req.Title,
			"description":      req.Description,
			"duration_minutes": req.DurationMinutes,
			"total_marks":      req.TotalMarks,
		}).Error; err != nil {
			return err
		}

		for i := range test.Questions {
			if !keep[test.Questions[i].ID] {
				if err := tx.Delete(&model.Question{}, test.Questions[i].ID).Error; err != nil {
					return err
				}
			}
		}

		for i := range req.Questions {
			order := req.Questions[i].Order
			if order == 0 {
				order = i + 1
			}
			q := questionFromReq(testID, order, &req.Questions[i])
			if q.ID != 0 {
				if err := tx.Save(&q).Error; err != nil {
					return err
				}
			} else {
				if err := tx.Create(&q).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.TestRepo.FindByIDWithQuestions(testID)
}

// PublishTest 无题试卷不允许发布，避免出现不可评分的作答
func (s *TestService) PublishTest(testID uint, publish bool) (*model.Test, error) {
	test, err := s.TestRepo.FindByIDWithQuestions(testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}

	if publish && len(test.Questions) == 0 {
		return nil, util.ErrTestHasNoQuestions
	}

	test.IsPublished = publish
	if publish && test.PublishedAt == nil {
		now := time.Now()
		test.PublishedAt = &now
	}
	if err := s.TestRepo.Update(test); err != nil {
		return nil, err
	}
	return test, nil
}

func (s *TestService) DeleteTest(testID uint) error {
	if _, err := s.TestRepo.FindByID(testID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrTestNotFound
		}
		return err
	}
	return s.TestRepo.Delete(testID)
}

// GetTest 学生侧只允许访问已发布试卷，管理员不受限
func (s *TestService) GetTest(testID uint, isAdmin bool) (*model.Test, error) {
	test, err := s.TestRepo.FindByIDWithQuestions(testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}
	if !test.IsPublished && !isAdmin {
		return nil, util.ErrTestNotPublished
	}
	if !isAdmin {
		stripAnswers(test)
	}
	return test, nil
}

// stripAnswers 学生取卷时去掉答案与解析字段
func stripAnswers(test *model.Test) {
	for i := range test.Questions {
		test.Questions[i].CorrectOption = nil
		test.Questions[i].CorrectValue = nil
		test.Questions[i].Tolerance = nil
		test.Questions[i].Explanation = ""
	}
}

func (s *TestService) ListTests(page, limit int, publishedOnly bool) ([]repository.TestListRow, int64, error) {
	return s.TestRepo.List(page, limit, publishedOnly)
}

func (s *TestService) ListAttempts(testID uint, page, limit int, studentName string) ([]map[string]interface{}, int64, error) {
	if _, err := s.TestRepo.FindByID(testID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, util.ErrTestNotFound
		}
		return nil, 0, err
	}
	return s.AttemptRepo.ListByTest(testID, page, limit, studentName)
}
