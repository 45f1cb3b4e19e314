package service

import (
	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/repository"
	"exam_platform_backend/internal/util"

	"gorm.io/gorm"
)

type ProgressService struct {
	TestRepo    *repository.TestRepository
	AttemptRepo *repository.AttemptRepository
	StatsSvc    *StatisticsService
}

func NewProgressService(testRepo *repository.TestRepository, attemptRepo *repository.AttemptRepository, statsSvc *StatisticsService) *ProgressService {
	return &ProgressService{
		TestRepo:    testRepo,
		AttemptRepo: attemptRepo,
		StatsSvc:    statsSvc,
	}
}

// BuildProgress 把按时间升序的作答序列折算成进步明细与汇总。纯函数。
//
// 入参顺序即作答先后顺序，折算依赖它，这里不重排。
// improvement 是相对上一次的百分比差值，首次作答没有。
// trend 只比首末两次，中间波动不参与。
func BuildProgress(attempts []model.Attempt) ([]model.AttemptProgress, model.ProgressSummary) {
	summary := model.ProgressSummary{TotalAttempts: len(attempts)}
	if len(attempts) == 0 {
		summary.Trend = "stable"
		// 接口序列化成 []，不是 null
		return []model.AttemptProgress{}, summary
	}

	bestIdx := 0
	worstIdx := 0
	for i := range attempts {
		if attempts[i].Percentage > attempts[bestIdx].Percentage {
			bestIdx = i
		}
		if attempts[i].Percentage < attempts[worstIdx].Percentage {
			worstIdx = i
		}
	}

	items := make([]model.AttemptProgress, 0, len(attempts))
	for i := range attempts {
		a := &attempts[i]
		item := model.AttemptProgress{
			AttemptID:        a.ID,
			AttemptNumber:    i + 1,
			CreatedAt:        a.CreatedAt,
			ObtainedMarks:    a.ObtainedMarks,
			Percentage:       a.Percentage,
			TimeSpentSeconds: reconcileTime(a),
			IsFirst:          i == 0,
			IsBest:           i == bestIdx,
		}
		if i > 0 {
			delta := util.Round2(a.Percentage - attempts[i-1].Percentage)
			item.Improvement = &delta
			switch {
			case delta > 0:
				item.ImprovementKind = "improved"
			case delta < 0:
				item.ImprovementKind = "declined"
			default:
				item.ImprovementKind = "stable"
			}
		}
		items = append(items, item)
	}

	first := attempts[0].Percentage
	last := attempts[len(attempts)-1].Percentage
	summary.BestScore = attempts[bestIdx].Percentage
	summary.WorstScore = attempts[worstIdx].Percentage
	summary.BestAttemptID = attempts[bestIdx].ID
	summary.OverallImprovement = util.Round2(last - first)
	summary.HasImprovement = summary.OverallImprovement > 0
	if len(attempts) > 1 {
		summary.LatestImprovement = util.Round2(last - attempts[len(attempts)-2].Percentage)
	}
	switch {
	case last > first:
		summary.Trend = "improving"
	case last < first:
		summary.Trend = "declining"
	default:
		summary.Trend = "stable"
	}

	return items, summary
}

// reconcileTime 逐题计时齐全时以其和为准，否则退回作答级总用时
func reconcileTime(a *model.Attempt) int {
	if len(a.Answers) == 0 {
		return a.TimeSpentSeconds
	}
	sum := 0
	for i := range a.Answers {
		sum += a.Answers[i].TimeTakenSeconds
	}
	if sum > 0 {
		return sum
	}
	return a.TimeSpentSeconds
}

// GetTestProgress 学生在一张试卷上的历次作答进步序列
func (s *ProgressService) GetTestProgress(studentID, testID uint) (*model.ProgressResult, error) {
	if _, err := s.TestRepo.FindByID(testID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}

	attempts, err := s.AttemptRepo.FindGradedByStudentAndTest(studentID, testID)
	if err != nil {
		return nil, err
	}

	items, summary := BuildProgress(attempts)

	stats, err := s.StatsSvc.Get(testID)
	if err != nil {
		return nil, err
	}

	return &model.ProgressResult{
		Attempts:    items,
		Improvement: summary,
		Stats:       stats,
	}, nil
}

// BuildTrend 跨试卷走势。重考按试卷ID归组识别，
// 标题只在历史数据缺 ID 时兜底作分组键。
func BuildTrend(rows []repository.GradedStudentRow) []model.TrendPoint {
	type groupKey struct {
		id    uint
		title string
	}
	counts := make(map[groupKey]int)

	points := make([]model.TrendPoint, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		key := groupKey{id: row.TestID}
		if row.TestID == 0 {
			key.title = row.TestTitle
		}
		counts[key]++

		points = append(points, model.TrendPoint{
			TestID:        row.TestID,
			TestTitle:     row.TestTitle,
			AttemptID:     row.Attempt.ID,
			AttemptNumber: counts[key],
			IsRetake:      counts[key] > 1,
			Percentage:    row.Percentage,
			CreatedAt:     row.CreatedAt,
		})
	}
	return points
}

// GetOverview 学生全量已评分作答的时间走势
func (s *ProgressService) GetOverview(studentID uint) ([]model.TrendPoint, error) {
	rows, err := s.AttemptRepo.FindGradedByStudent(studentID)
	if err != nil {
		return nil, err
	}
	return BuildTrend(rows), nil
}
