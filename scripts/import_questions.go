// 手动导入题库脚本
//
// 从 Excel (.xlsx) 或 CSV 读取 topic / text / difficulty 三列写入 questions 表，
// 同一主题下已存在的题干会被跳过。
//
// 用法: go run scripts/import_questions.go -file questions.xlsx [-sheet Sheet1] [-dry-run]

package main

import (
	"flag"
	"interview_assistant_backend/internal/config"
	"interview_assistant_backend/internal/importer"
	"interview_assistant_backend/internal/repository"
	"interview_assistant_backend/pkg/database"
	"interview_assistant_backend/pkg/logger"
	"log"
	"os"
)

func main() {
	file := flag.String("file", "", "题库文件路径 (.xlsx / .csv)")
	sheet := flag.String("sheet", "", "工作表名称，默认第一个")
	dryRun := flag.Bool("dry-run", false, "只校验不写库")
	flag.Parse()

	if *file == "" {
		log.Fatal("缺少 -file 参数")
	}

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	logger.InitLogger(cfg)
	defer logger.Sync()

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode, true)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("无法打开题库文件: %v", err)
	}
	defer f.Close()

	opts := importer.DefaultOptions()
	opts.SheetName = *sheet
	opts.DryRun = *dryRun

	res, err := importer.NewImporter(repository.NewQuestionRepository(db)).Import(f, *file, opts)
	if err != nil {
		log.Fatalf("导入失败: %v", err)
	}

	log.Printf("处理 %d 行，新增 %d，跳过 %d，错误 %d", res.Processed, res.Created, res.Skipped, len(res.Errors))
	for _, e := range res.Errors {
		log.Println(e)
	}
}
