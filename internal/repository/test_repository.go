package repository

import (
	"exam_platform_backend/internal/model"

	"gorm.io/gorm"
)

type TestRepository struct {
	DB *gorm.DB
}

func NewTestRepository(db *gorm.DB) *TestRepository {
	return &TestRepository{DB: db}
}

func (r *TestRepository) Create(test *model.Test) error {
	return r.DB.Create(test).Error
}

func (r *TestRepository) FindByID(id uint) (*model.Test, error) {
	var test model.Test
	err := r.DB.First(&test, id).Error
	if err != nil {
		return nil, err
	}
	return &test, nil
}

// FindByIDWithQuestions 题目按卷面顺序预加载，评分与科目聚合都依赖这一顺序
func (r *TestRepository) FindByIDWithQuestions(id uint) (*model.Test, error) {
	var test model.Test
	err := r.DB.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("`order` asc, id asc")
	}).First(&test, id).Error
	if err != nil {
		return nil, err
	}
	return &test, nil
}

func (r *TestRepository) Update(test *model.Test) error {
	return r.DB.Save(test).Error
}

func (r *TestRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("test_id = ?", id).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		var attemptIDs []uint
		if err := tx.Model(&model.Attempt{}).Where("test_id = ?", id).Pluck("id", &attemptIDs).Error; err == nil && len(attemptIDs) > 0 {
			if err := tx.Where("attempt_id IN ?", attemptIDs).Delete(&model.AttemptAnswer{}).Error; err != nil {
				return err
			}
			if err := tx.Where("test_id = ?", id).Delete(&model.Attempt{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("test_id = ?", id).Delete(&model.TestStatistics{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Test{}, id).Error
	})
}

type TestListRow struct {
	model.Test
	QuestionCount int `json:"questionCount"`
	AttemptCount  int `json:"attemptCount"`
}

func (r *TestRepository) List(page, limit int, publishedOnly bool) ([]TestListRow, int64, error) {
	var total int64
	countQuery := r.DB.Model(&model.Test{}).Where("deleted_at IS NULL")
	if publishedOnly {
		countQuery = countQuery.Where("is_published = ?", true)
	}
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	dbQuery := r.DB.Table("tests t").
		Select("t.*, " +
			"(SELECT COUNT(*) FROM questions q WHERE q.test_id = t.id AND q.deleted_at IS NULL) as question_count, " +
			"(SELECT COUNT(*) FROM attempts a WHERE a.test_id = t.id AND a.deleted_at IS NULL AND a.status IN ('completed','auto_submitted')) as attempt_count").
		Where("t.deleted_at IS NULL")
	if publishedOnly {
		dbQuery = dbQuery.Where("t.is_published = ?", true)
	}

	if limit > 0 {
		offset := (page - 1) * limit
		dbQuery = dbQuery.Offset(offset).Limit(limit)
	}

	var tests []TestListRow
	err := dbQuery.Order("t.created_at desc").Scan(&tests).Error
	return tests, total, err
}

func (r *TestRepository) CreateQuestion(question *model.Question) error {
	return r.DB.Create(question).Error
}

func (r *TestRepository) UpdateQuestion(question *model.Question) error {
	return r.DB.Save(question).Error
}

func (r *TestRepository) DeleteQuestion(id uint) error {
	return r.DB.Delete(&model.Question{}, id).Error
}

func (r *TestRepository) ListQuestions(testID uint) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.Where("test_id = ?", testID).Order("`order` asc, id asc").Find(&qs).Error
	return qs, err
}
