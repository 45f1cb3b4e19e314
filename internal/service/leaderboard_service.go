package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"exam_platform_backend/internal/config"
	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/repository"
	"exam_platform_backend/internal/util"
	"exam_platform_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type LeaderboardService struct {
	TestRepo    *repository.TestRepository
	AttemptRepo *repository.AttemptRepository
	Redis       *redis.Client
	Cfg         *config.Config
}

func NewLeaderboardService(testRepo *repository.TestRepository, attemptRepo *repository.AttemptRepository, rdb *redis.Client, cfg *config.Config) *LeaderboardService {
	return &LeaderboardService{
		TestRepo:    testRepo,
		AttemptRepo: attemptRepo,
		Redis:       rdb,
		Cfg:         cfg,
	}
}

// RankAttempts 去重、排序、定名次与百分位。纯函数。
//
// 每个学生只保留最近一次已评分作答；排序先分数降序，
// 同分按用时升序。名次按排序位次递增，同分不并列。
// 百分位取 <= 自己分数的人数占比，第一名恒为 100。
func RankAttempts(rows []repository.GradedAttemptRow) []model.LeaderboardEntry {
	latest := make(map[uint]*repository.GradedAttemptRow, len(rows))
	for i := range rows {
		row := &rows[i]
		prev, ok := latest[row.StudentID]
		if !ok || row.CreatedAt.After(prev.CreatedAt) ||
			(row.CreatedAt.Equal(prev.CreatedAt) && row.Attempt.ID > prev.Attempt.ID) {
			latest[row.StudentID] = row
		}
	}

	deduped := make([]*repository.GradedAttemptRow, 0, len(latest))
	for _, row := range latest {
		deduped = append(deduped, row)
	}

	sort.Slice(deduped, func(i, j int) bool {
		a, b := deduped[i], deduped[j]
		if a.ObtainedMarks != b.ObtainedMarks {
			return a.ObtainedMarks > b.ObtainedMarks
		}
		if a.TimeSpentSeconds != b.TimeSpentSeconds {
			return a.TimeSpentSeconds < b.TimeSpentSeconds
		}
		return a.StudentID < b.StudentID
	})

	n := len(deduped)
	entries := make([]model.LeaderboardEntry, 0, n)
	for i, row := range deduped {
		atOrBelow := 0
		for _, other := range deduped {
			if other.ObtainedMarks <= row.ObtainedMarks {
				atOrBelow++
			}
		}

		submittedAt := row.CreatedAt
		if row.EndedAt != nil {
			submittedAt = *row.EndedAt
		}

		entries = append(entries, model.LeaderboardEntry{
			Rank:             i + 1,
			Percentile:       util.Round2(float64(atOrBelow) / float64(n) * 100),
			TotalStudents:    n,
			StudentID:        row.StudentID,
			StudentName:      row.StudentName,
			AttemptID:        row.Attempt.ID,
			ObtainedMarks:    row.ObtainedMarks,
			Percentage:       row.Percentage,
			TotalTimeSeconds: row.TimeSpentSeconds,
			SubmittedAt:      submittedAt,
			SubjectWise:      ParseSubjectStats(row.SubjectWise),
		})
	}
	return entries
}

// GetLeaderboard 排行榜查询。全量名次进 Redis 缓存，
// 分页窗口与目标学生定位在缓存之上按请求计算。
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, testID uint, limit int, targetStudentID uint) (*model.LeaderboardResult, error) {
	if _, err := s.TestRepo.FindByID(testID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}

	entries, err := s.rankedEntries(ctx, testID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = s.Cfg.LeaderboardSnapshot().DefaultLimit
	}
	return windowResult(entries, limit, targetStudentID), nil
}

// windowResult 截取榜单窗口。目标学生掉出窗口时单独附带其名次，
// 汇总统计始终基于全量榜单而非窗口。
func windowResult(entries []model.LeaderboardEntry, limit int, targetStudentID uint) *model.LeaderboardResult {
	result := &model.LeaderboardResult{
		Leaderboard: entries,
		Stats:       summarize(entries),
	}
	if len(entries) > limit {
		result.Leaderboard = entries[:limit]
	}

	if targetStudentID != 0 {
		inWindow := false
		for i := range result.Leaderboard {
			if result.Leaderboard[i].StudentID == targetStudentID {
				inWindow = true
				break
			}
		}
		if !inWindow {
			for i := range entries {
				if entries[i].StudentID == targetStudentID {
					target := entries[i]
					result.TargetStudent = &target
					break
				}
			}
		}
	}
	return result
}

// Invalidate 交卷后清掉榜单快照，下次请求重建
func (s *LeaderboardService) Invalidate(ctx context.Context, testID uint) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(ctx, leaderboardKey(testID)).Err(); err != nil {
		logger.Log.Warn("leaderboard cache invalidation failed",
			zap.Uint("test_id", testID), zap.Error(err))
	}
}

func leaderboardKey(testID uint) string {
	return fmt.Sprintf("exam:leaderboard:%d", testID)
}

func (s *LeaderboardService) rankedEntries(ctx context.Context, testID uint) ([]model.LeaderboardEntry, error) {
	key := leaderboardKey(testID)

	if s.Redis != nil {
		if cached, err := s.Redis.Get(ctx, key).Result(); err == nil {
			var entries []model.LeaderboardEntry
			if err := json.Unmarshal([]byte(cached), &entries); err == nil {
				return entries, nil
			}
		}
	}

	rows, err := s.AttemptRepo.FindGradedByTest(testID)
	if err != nil {
		return nil, err
	}
	entries := RankAttempts(rows)

	if s.Redis != nil {
		data, err := json.Marshal(entries)
		if err == nil {
			ttl := time.Duration(s.Cfg.LeaderboardSnapshot().CacheTTLSeconds) * time.Second
			if err := s.Redis.Set(ctx, key, data, ttl).Err(); err != nil {
				logger.Log.Warn("leaderboard cache write failed",
					zap.Uint("test_id", testID), zap.Error(err))
			}
		}
	}
	return entries, nil
}

func summarize(entries []model.LeaderboardEntry) model.LeaderboardStats {
	stats := model.LeaderboardStats{TotalStudents: len(entries)}
	if len(entries) == 0 {
		return stats
	}

	var scoreSum, timeSum float64
	top := entries[0].ObtainedMarks
	for i := range entries {
		scoreSum += entries[i].ObtainedMarks
		timeSum += float64(entries[i].TotalTimeSeconds)
		if entries[i].ObtainedMarks > top {
			top = entries[i].ObtainedMarks
		}
	}
	n := float64(len(entries))
	stats.AverageScore = util.Round2(scoreSum / n)
	stats.TopScore = top
	stats.AverageTimeSec = util.Round2(timeSum / n)
	return stats
}
