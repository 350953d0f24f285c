// @title CourseHub 后端 API
// @version 1.0
// @description 课程学习进度与积分账本服务。

// @contact.name API支持
// @contact.email support@coursehub.local

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"coursehub_backend/internal/app"
	"coursehub_backend/internal/config"
	"coursehub_backend/pkg/logger"
	"flag"
	"log"
)

func main() {
	// 命令行参数
	configDir := flag.String("config", "configs", "配置文件目录")
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	migrate := flag.Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg, *configDir)
	defer logger.Log.Sync()

	if *migrateOnly {
		logger.Log.Info("数据库迁移完成，退出程序")
		return
	}

	application.Run()
}
