// 手动触发全量试卷统计重算脚本
//
// 统计快照随每次交卷异步更新，正常运行无需此脚本。
// 仅在批量导入历史作答数据或快照表损坏后使用。
//
// 用法: go run scripts/recompute_statistics.go

package main

import (
	"log"
	"os"

	"exam_platform_backend/internal/config"
	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/repository"
	"exam_platform_backend/internal/service"
	"exam_platform_backend/pkg/database"
	"exam_platform_backend/pkg/logger"

	"gopkg.in/yaml.v3"
)

func main() {
	data, err := os.ReadFile("configs/config.yaml")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	logger.InitLogger(&cfg)

	db, err := database.InitDB(&cfg)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	statsRepo := repository.NewStatisticsRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	statsService := service.NewStatisticsService(statsRepo, attemptRepo)

	var testIDs []uint
	if err := db.Model(&model.Test{}).Pluck("id", &testIDs).Error; err != nil {
		log.Fatalf("读取试卷列表失败: %v", err)
	}

	log.Printf("开始重算 %d 张试卷的统计快照...", len(testIDs))
	failed := 0
	for _, id := range testIDs {
		if err := statsService.Recompute(id); err != nil {
			log.Printf("试卷 %d 重算失败: %v", id, err)
			failed++
		}
	}
	log.Printf("完成！成功 %d，失败 %d", len(testIDs)-failed, failed)
}
