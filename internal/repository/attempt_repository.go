package repository

import (
	"exam_platform_backend/internal/model"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) Create(attempt *model.Attempt) error {
	return r.DB.Create(attempt).Error
}

func (r *AttemptRepository) FindByID(id uint) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.DB.First(&attempt, id).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptRepository) FindByIDWithAnswers(id uint) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.DB.Preload("Answers", func(db *gorm.DB) *gorm.DB {
		return db.Order("question_order asc, id asc")
	}).First(&attempt, id).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptRepository) FindInProgress(studentID, testID uint) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.DB.Where("student_id = ? AND test_id = ? AND status = ?",
		studentID, testID, model.AttemptInProgress).First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// TransitionStatus 条件更新状态，返回生效行数。
// 评分前必须由 in_progress 原子迁出，防止并发重复提交双重计分。
func (r *AttemptRepository) TransitionStatus(tx *gorm.DB, attemptID uint, from, to model.AttemptStatus) (int64, error) {
	result := tx.Model(&model.Attempt{}).
		Where("id = ? AND status = ?", attemptID, from).
		Update("status", to)
	return result.RowsAffected, result.Error
}

// SaveGraded 评分结果与逐题判定在同一事务内整体落库，
// 不允许出现只有 Score 没有 Analysis 的半写状态
func (r *AttemptRepository) SaveGraded(tx *gorm.DB, attempt *model.Attempt, answers []model.AttemptAnswer) error {
	if err := tx.Model(&model.Attempt{}).Where("id = ?", attempt.ID).Updates(map[string]interface{}{
		"ended_at":           attempt.EndedAt,
		"time_spent_seconds": attempt.TimeSpentSeconds,
		"obtained_marks":     attempt.ObtainedMarks,
		"total_marks":        attempt.TotalMarks,
		"percentage":         attempt.Percentage,
		"correct_count":      attempt.CorrectCount,
		"incorrect_count":    attempt.IncorrectCount,
		"unattempted_count":  attempt.UnattemptedCount,
		"subject_wise":       attempt.SubjectWise,
	}).Error; err != nil {
		return err
	}

	for i := range answers {
		answers[i].AttemptID = attempt.ID
	}
	if len(answers) == 0 {
		return nil
	}
	return tx.Create(&answers).Error
}

// FindGradedByTest 一张试卷的全部已评分作答，带学生姓名（排行榜用）
type GradedAttemptRow struct {
	model.Attempt
	StudentName string `json:"studentName"`
}

func (r *AttemptRepository) FindGradedByTest(testID uint) ([]GradedAttemptRow, error) {
	var rows []GradedAttemptRow
	err := r.DB.Table("attempts a").
		Select("a.*, s.name as student_name").
		Joins("JOIN students s ON a.student_id = s.id").
		Where("a.test_id = ? AND a.deleted_at IS NULL AND a.status IN ?",
			testID, []string{string(model.AttemptCompleted), string(model.AttemptAutoSubmitted)}).
		Scan(&rows).Error
	return rows, err
}

// FindGradedByStudentAndTest 进度序列，按创建时间升序。
// 顺序是重考识别的前提，调用侧不得再按分数重排。
func (r *AttemptRepository) FindGradedByStudentAndTest(studentID, testID uint) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.DB.Preload("Answers").
		Where("student_id = ? AND test_id = ? AND status IN ?",
			studentID, testID, []string{string(model.AttemptCompleted), string(model.AttemptAutoSubmitted)}).
		Order("created_at asc, id asc").
		Find(&attempts).Error
	return attempts, err
}

// GradedStudentRow 跨试卷走势行，带试卷标题
type GradedStudentRow struct {
	model.Attempt
	TestTitle string `json:"testTitle"`
}

func (r *AttemptRepository) FindGradedByStudent(studentID uint) ([]GradedStudentRow, error) {
	var rows []GradedStudentRow
	err := r.DB.Table("attempts a").
		Select("a.*, t.title as test_title").
		Joins("JOIN tests t ON a.test_id = t.id").
		Where("a.student_id = ? AND a.deleted_at IS NULL AND a.status IN ?",
			studentID, []string{string(model.AttemptCompleted), string(model.AttemptAutoSubmitted)}).
		Order("a.created_at asc, a.id asc").
		Scan(&rows).Error
	return rows, err
}

func (r *AttemptRepository) ListByTest(testID uint, page, limit int, studentName string) ([]map[string]interface{}, int64, error) {
	query := r.DB.Table("attempts a").
		Select("a.*, s.name as student_name, s.email as student_email").
		Joins("JOIN students s ON a.student_id = s.id").
		Where("a.test_id = ? AND a.deleted_at IS NULL", testID)

	if studentName != "" {
		query = query.Where("s.name LIKE ?", "%"+studentName+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []map[string]interface{}
	offset := (page - 1) * limit
	err := query.Order("a.created_at desc").Offset(offset).Limit(limit).Scan(&results).Error
	return results, total, err
}

// AbandonExpired 将超出限时加宽限期仍未提交的作答置为 abandoned
func (r *AttemptRepository) AbandonExpired(graceMinutes int) (int64, error) {
	result := r.DB.Exec(
		"UPDATE attempts a JOIN tests t ON a.test_id = t.id "+
			"SET a.status = ? "+
			"WHERE a.status = ? AND t.duration_minutes > 0 "+
			"AND a.started_at < NOW() - INTERVAL (t.duration_minutes + ?) MINUTE",
		string(model.AttemptAbandoned), string(model.AttemptInProgress), graceMinutes)
	return result.RowsAffected, result.Error
}
