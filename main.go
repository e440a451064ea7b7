// @title Interview Assistant 后端 API
// @version 1.0
// @description AI 模拟面试平台的后端服务器：抽题、AI 评分、监考与面试记录。

// @host localhost:5000
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"flag"
	"interview_assistant_backend/internal/app"
	"interview_assistant_backend/internal/config"
	"interview_assistant_backend/internal/importer"
	"interview_assistant_backend/internal/repository"
	"interview_assistant_backend/pkg/logger"
	"log"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// 命令行参数
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	migrate := flag.Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	importFile := flag.String("import-questions", "", "导入题库文件 (.xlsx / .csv) 后退出")
	flag.Parse()

	// .env 可选
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to load .env: %v", err)
	}

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 设置迁移标志
	cfg.ForceMigrate = *migrate || *migrateOnly || *importFile != ""
	cfg.MigrateOnly = *migrateOnly || *importFile != ""

	application := app.NewApp(cfg)
	defer logger.Sync()

	if *importFile != "" {
		runImport(application, *importFile)
		return
	}

	// 迁移完成后直接退出
	if *migrateOnly {
		log.Println("数据库迁移完成，退出程序")
		return
	}

	application.Run()
}

func runImport(application *app.App, path string) {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("无法打开题库文件: %v", err)
	}
	defer f.Close()

	im := importer.NewImporter(repository.NewQuestionRepository(application.DB))
	res, err := im.Import(f, path, importer.DefaultOptions())
	if err != nil {
		log.Fatalf("导入失败: %v", err)
	}
	log.Printf("处理 %d 行，新增 %d，跳过 %d，错误 %d", res.Processed, res.Created, res.Skipped, len(res.Errors))
}
