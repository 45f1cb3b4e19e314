package service

import (
	"context"
	"encoding/json"
	"exam_platform_backend/internal/config"
	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/repository"
	"exam_platform_backend/internal/util"
	"exam_platform_backend/pkg/logger"
	"exam_platform_backend/pkg/monitoring"
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ScoringService struct {
	TestRepo    *repository.TestRepository
	AttemptRepo *repository.AttemptRepository
	StatsSvc    *StatisticsService
	Leaderboard *LeaderboardService
	Cfg         *config.Config
	DB          *gorm.DB
}

func NewScoringService(
	testRepo *repository.TestRepository,
	attemptRepo *repository.AttemptRepository,
	statsSvc *StatisticsService,
	leaderboard *LeaderboardService,
	cfg *config.Config,
	db *gorm.DB,
) *ScoringService {
	return &ScoringService{
		TestRepo:    testRepo,
		AttemptRepo: attemptRepo,
		StatsSvc:    statsSvc,
		Leaderboard: leaderboard,
		Cfg:         cfg,
		DB:          db,
	}
}

// SubmittedAnswer 一道题的作答。两个答案字段都为空即未作答；
// 0 和选项下标 0 是有效作答。
type SubmittedAnswer struct {
	QuestionID       uint     `json:"questionId"`
	SelectedOption   *int     `json:"selectedOption"`
	NumericalAnswer  *float64 `json:"numericalAnswer"`
	TimeTakenSeconds int      `json:"timeTakenSeconds"`
}

type SubmitAttemptReq struct {
	Answers             []SubmittedAnswer `json:"answers"`
	TimeSpentSeconds    *float64          `json:"timeSpentSeconds"`
	IsAutoSubmit        bool              `json:"isAutoSubmit"`
	SubjectTimeTracking map[string]int    `json:"subjectTimeTracking"`
}

type ScoreDTO struct {
	Obtained   float64 `json:"obtained"`
	Total      float64 `json:"total"`
	Percentage float64 `json:"percentage"`
}

type AnalysisDTO struct {
	Correct     int                 `json:"correct"`
	Incorrect   int                 `json:"incorrect"`
	Unattempted int                 `json:"unattempted"`
	SubjectWise []model.SubjectStat `json:"subjectWise"`
}

type SubmitAttemptResp struct {
	AttemptID        uint                `json:"attemptId"`
	Status           model.AttemptStatus `json:"status"`
	Score            ScoreDTO            `json:"score"`
	Analysis         AnalysisDTO         `json:"analysis"`
	TimeSpentSeconds int                 `json:"timeSpentSeconds"`
}

// GradeResult 纯评分结果，落库前的中间产物
type GradeResult struct {
	Answers     []model.AttemptAnswer
	Obtained    float64
	Total       float64
	Percentage  float64
	Correct     int
	Incorrect   int
	Unattempted int
	SubjectWise []model.SubjectStat
}

// GradeSubmission 对一份提交按卷面题序逐题判分。纯函数，同样输入必得同样输出。
//
// 答案优先按 questionId 关联题目，缺失时回退到与题序对齐的下标；
// 负分不抬零是产品决定，总分可以为负。
func GradeSubmission(test *model.Test, submitted []SubmittedAnswer, scoring config.ScoringConfig) GradeResult {
	byID := make(map[uint]*SubmittedAnswer, len(submitted))
	for i := range submitted {
		if submitted[i].QuestionID != 0 {
			byID[submitted[i].QuestionID] = &submitted[i]
		}
	}

	result := GradeResult{}
	subjectIndex := make(map[string]int)

	for i := range test.Questions {
		q := &test.Questions[i]

		var ans *SubmittedAnswer
		if a, ok := byID[q.ID]; ok {
			ans = a
		} else if i < len(submitted) && submitted[i].QuestionID == 0 {
			// 按下标对齐的兼容路径
			ans = &submitted[i]
		}

		graded := gradeQuestion(q, ans, scoring)
		result.Answers = append(result.Answers, graded)

		subject := q.SubjectOrDefault()
		idx, ok := subjectIndex[subject]
		if !ok {
			idx = len(result.SubjectWise)
			subjectIndex[subject] = idx
			result.SubjectWise = append(result.SubjectWise, model.SubjectStat{Subject: subject})
		}
		stat := &result.SubjectWise[idx]

		positive := scoring.DefaultPositiveMarks
		if q.PositiveMarks != nil {
			positive = *q.PositiveMarks
		}
		stat.MaxScore += positive
		stat.Score += graded.MarksAwarded
		stat.TimeSpentSeconds += graded.TimeTakenSeconds

		result.Obtained += graded.MarksAwarded
		switch {
		case !gradedAttempted(graded):
			stat.Unattempted++
			result.Unattempted++
		case graded.IsCorrect:
			stat.Correct++
			result.Correct++
		default:
			stat.Incorrect++
			result.Incorrect++
		}
	}

	for i := range result.SubjectWise {
		finishSubjectStat(&result.SubjectWise[i])
	}

	result.Total = test.EffectiveTotalMarks(scoring.DefaultPositiveMarks)
	if result.Total > 0 {
		result.Percentage = util.Round2(result.Obtained / result.Total * 100)
	}

	return result
}

func gradedAttempted(a model.AttemptAnswer) bool {
	return a.SelectedOption != nil || a.NumericalAnswer != nil
}

// gradeQuestion 单题判分：选择题比下标，数值题比容差区间，未作答记零分
func gradeQuestion(q *model.Question, ans *SubmittedAnswer, scoring config.ScoringConfig) model.AttemptAnswer {
	graded := model.AttemptAnswer{
		QuestionID:    q.ID,
		QuestionOrder: q.Order,
	}
	if ans == nil {
		return graded
	}

	graded.SelectedOption = ans.SelectedOption
	graded.NumericalAnswer = ans.NumericalAnswer
	if ans.TimeTakenSeconds > 0 {
		graded.TimeTakenSeconds = ans.TimeTakenSeconds
	}

	positive := scoring.DefaultPositiveMarks
	if q.PositiveMarks != nil {
		positive = *q.PositiveMarks
	}
	negative := scoring.DefaultNegativeMarks
	if q.NegativeMarks != nil {
		negative = *q.NegativeMarks
	}

	switch {
	case ans.SelectedOption != nil:
		graded.IsCorrect = q.CorrectOption != nil && *ans.SelectedOption == *q.CorrectOption
	case ans.NumericalAnswer != nil:
		tolerance := scoring.NumericalTolerance
		if q.Tolerance != nil {
			tolerance = *q.Tolerance
		}
		graded.IsCorrect = q.CorrectValue != nil &&
			math.Abs(*ans.NumericalAnswer-*q.CorrectValue) <= tolerance
	default:
		// 未作答，不加不扣
		return graded
	}

	if graded.IsCorrect {
		graded.MarksAwarded = positive
	} else {
		graded.MarksAwarded = -negative
	}
	return graded
}

// ResolveTimeSpent 客户端值仅在为正且有限时采信，
// 否则按起止时间戳推导，绝不静默接受零值/负值/NaN
func ResolveTimeSpent(client *float64, startedAt, endedAt time.Time) int {
	if client != nil && *client > 0 && !math.IsNaN(*client) && !math.IsInf(*client, 0) {
		return int(*client)
	}
	elapsed := int(math.Floor(endedAt.Sub(startedAt).Seconds()))
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// StartAttempt 开卷：创建 in_progress 记录。已有进行中的作答时幂等返回
func (s *ScoringService) StartAttempt(studentID, testID uint) (*model.Attempt, error) {
	test, err := s.TestRepo.FindByID(testID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}
	if !test.IsPublished {
		return nil, util.ErrTestNotPublished
	}

	if existing, err := s.AttemptRepo.FindInProgress(studentID, testID); err == nil {
		return existing, nil
	}

	attempt := &model.Attempt{
		TestID:    testID,
		StudentID: studentID,
		Status:    model.AttemptInProgress,
		StartedAt: time.Now(),
	}
	if err := s.AttemptRepo.Create(attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// SubmitAttempt 评卷主流程。一个 attempt 至多评分一次：
// 状态迁移在事务内条件更新，竞态下后到的提交拿到 AlreadyGraded。
func (s *ScoringService) SubmitAttempt(attemptID, studentID uint, req SubmitAttemptReq) (*SubmitAttemptResp, error) {
	start := time.Now()

	attempt, err := s.AttemptRepo.FindByID(attemptID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if studentID != 0 && attempt.StudentID != studentID {
		return nil, util.ErrAttemptAccessDenied
	}
	if attempt.Status.IsGraded() {
		return nil, util.ErrAttemptAlreadyGraded
	}
	if attempt.Status != model.AttemptInProgress {
		return nil, util.ErrAttemptNotGradable
	}

	test, err := s.TestRepo.FindByIDWithQuestions(attempt.TestID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}
	if len(test.Questions) == 0 {
		return nil, util.ErrTestHasNoQuestions
	}
	if len(req.Answers) > len(test.Questions) {
		return nil, util.ErrInvalidSubmission
	}

	scoring := s.Cfg.ScoringSnapshot()
	grade := GradeSubmission(test, req.Answers, scoring)
	applySubjectTimeFallback(grade.SubjectWise, req.SubjectTimeTracking)

	now := time.Now()
	attempt.EndedAt = &now
	attempt.TimeSpentSeconds = ResolveTimeSpent(req.TimeSpentSeconds, attempt.StartedAt, now)
	attempt.ObtainedMarks = grade.Obtained
	attempt.TotalMarks = grade.Total
	attempt.Percentage = grade.Percentage
	attempt.CorrectCount = grade.Correct
	attempt.IncorrectCount = grade.Incorrect
	attempt.UnattemptedCount = grade.Unattempted

	subjectJSON, err := json.Marshal(grade.SubjectWise)
	if err != nil {
		return nil, err
	}
	attempt.SubjectWise = string(subjectJSON)

	finalStatus := model.AttemptCompleted
	if req.IsAutoSubmit {
		finalStatus = model.AttemptAutoSubmitted
	}

	// 评卷事务限时，锁等待不拖垮提交接口
	txCtx, cancel := context.WithTimeout(context.Background(), gradingTimeout(scoring.SubmitTimeoutSeconds))
	defer cancel()
	err = s.DB.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.AttemptRepo.TransitionStatus(tx, attempt.ID, model.AttemptInProgress, finalStatus)
		if err != nil {
			return err
		}
		if rows == 0 {
			return util.ErrAttemptAlreadyGraded
		}
		return s.AttemptRepo.SaveGraded(tx, attempt, grade.Answers)
	})
	if err != nil {
		monitoring.SubmissionCounter.WithLabelValues("error").Inc()
		return nil, err
	}

	monitoring.SubmissionCounter.WithLabelValues(string(finalStatus)).Inc()
	monitoring.GradingDuration.Observe(time.Since(start).Seconds())

	// 聚合统计走异步重算，不在提交的关键路径上
	s.StatsSvc.RecomputeAsync(attempt.TestID)
	if s.Leaderboard != nil {
		s.Leaderboard.Invalidate(context.Background(), attempt.TestID)
	}

	logger.Log.Info("attempt graded",
		zap.Uint("attemptId", attempt.ID),
		zap.Uint("testId", attempt.TestID),
		zap.Uint("studentId", attempt.StudentID),
		zap.Float64("obtained", grade.Obtained),
		zap.String("status", string(finalStatus)))

	return &SubmitAttemptResp{
		AttemptID: attempt.ID,
		Status:    finalStatus,
		Score: ScoreDTO{
			Obtained:   grade.Obtained,
			Total:      grade.Total,
			Percentage: grade.Percentage,
		},
		Analysis: AnalysisDTO{
			Correct:     grade.Correct,
			Incorrect:   grade.Incorrect,
			Unattempted: grade.Unattempted,
			SubjectWise: grade.SubjectWise,
		},
		TimeSpentSeconds: attempt.TimeSpentSeconds,
	}, nil
}

// gradingTimeout 评卷事务的超时上限，配置非法时回落到 10 秒
func gradingTimeout(seconds int) time.Duration {
	if seconds <= 0 {
		seconds = 10
	}
	return time.Duration(seconds) * time.Second
}

// applySubjectTimeFallback 逐题计时缺失时采用科目级计时
func applySubjectTimeFallback(stats []model.SubjectStat, subjectTimes map[string]int) {
	if len(subjectTimes) == 0 {
		return
	}
	for i := range stats {
		if stats[i].TimeSpentSeconds == 0 {
			if t, ok := subjectTimes[stats[i].Subject]; ok && t > 0 {
				stats[i].TimeSpentSeconds = t
			}
		}
	}
}

type AttemptDetailResp struct {
	*model.Attempt
	// 进行中的限时作答剩余秒数，其余情况为空
	RemainingSeconds *int `json:"remainingSeconds,omitempty"`
}

// GetAttemptDetail 作答详情，已评分的含逐题判定，进行中的带剩余时间
func (s *ScoringService) GetAttemptDetail(attemptID, studentID uint, isAdmin bool) (*AttemptDetailResp, error) {
	attempt, err := s.AttemptRepo.FindByIDWithAnswers(attemptID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if !isAdmin && attempt.StudentID != studentID {
		return nil, util.ErrAttemptAccessDenied
	}

	resp := &AttemptDetailResp{Attempt: attempt}
	if attempt.Status == model.AttemptInProgress {
		if test, err := s.TestRepo.FindByID(attempt.TestID); err == nil && test.DurationMinutes > 0 {
			remaining := RemainingSeconds(test.DurationMinutes, attempt.StartedAt, time.Now())
			resp.RemainingSeconds = &remaining
		}
	}
	return resp, nil
}

// RemainingSeconds 限时卷剩余作答秒数，超时归零
func RemainingSeconds(durationMinutes int, startedAt, now time.Time) int {
	deadline := startedAt.Add(time.Duration(durationMinutes) * time.Minute)
	remaining := int(deadline.Sub(now).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// AbandonExpiredAttempts 后台定时任务入口
func (s *ScoringService) AbandonExpiredAttempts() error {
	rows, err := s.AttemptRepo.AbandonExpired(s.Cfg.ScoringSnapshot().AbandonGraceMinutes)
	if err != nil {
		return err
	}
	if rows > 0 {
		logger.Log.Info("expired attempts abandoned", zap.Int64("count", rows))
	}
	return nil
}
