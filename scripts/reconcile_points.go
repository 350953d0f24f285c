// 积分对账脚本
//
// 逐个比较用户的物化余额 users.points 与 point_events 流水合计，输出不一致的用户。
// 加 -fix 时为每个不一致的用户追加一条 admin_adjustment 流水，使流水合计与余额一致。
//
// 用法: go run scripts/reconcile_points.go [-config configs] [-user 42] [-fix]

package main

import (
	"context"
	"coursehub_backend/internal/config"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/repository"
	"coursehub_backend/internal/service"
	"coursehub_backend/pkg/database"
	"coursehub_backend/pkg/logger"
	"flag"
	"log"
	"time"
)

const batchSize = 500

func main() {
	configDir := flag.String("config", "configs", "配置文件目录")
	userID := flag.Uint("user", 0, "只检查指定用户")
	fix := flag.Bool("fix", false, "为不一致的用户补记流水")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}
	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	ledger := service.NewLedgerService(db, userRepo, ledgerRepo)
	ctx := context.Background()

	check := func(id uint) bool {
		report, err := ledger.Reconcile(ctx, id)
		if err != nil {
			log.Printf("用户 %d 对账失败: %v", id, err)
			return false
		}
		if report.Consistent {
			return true
		}
		log.Printf("用户 %d 不一致: 余额=%d 流水合计=%d 差额=%d", id, report.Materialized, report.LedgerSum, report.Drift)
		if *fix {
			// 余额不动，只补一条差额流水
			err := ledgerRepo.Create(ctx, &model.PointEvent{
				CreatedAt:    time.Now(),
				UserID:       id,
				Delta:        report.Drift,
				BalanceAfter: report.Materialized,
				Reason:       model.ReasonAdminAdjustment,
				RefType:      "reconcile",
				Note:         "ledger backfill",
			})
			if err != nil {
				log.Printf("用户 %d 补记流水失败: %v", id, err)
			}
		}
		return false
	}

	if *userID != 0 {
		check(uint(*userID))
		return
	}

	var checked, drifted int
	var after uint
	for {
		ids, err := userRepo.ListIDsAfter(ctx, after, batchSize)
		if err != nil {
			log.Fatalf("查询用户失败: %v", err)
		}
		if len(ids) == 0 {
			break
		}
		for _, id := range ids {
			checked++
			if !check(id) {
				drifted++
			}
		}
		after = ids[len(ids)-1]
	}
	log.Printf("完成！共检查 %d 个用户，%d 个不一致", checked, drifted)
}
