// Package importer 从 Excel / CSV 批量导入面试题
package importer

import (
	"encoding/csv"
	"fmt"
	"interview_assistant_backend/internal/model"
	"interview_assistant_backend/internal/repository"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

type Options struct {
	// 为空时使用第一个工作表
	SheetName string
	// 默认 true，首行为表头
	HasHeader bool
	DryRun    bool
}

func DefaultOptions() Options {
	return Options{HasHeader: true}
}

type Result struct {
	Processed int      `json:"processed"`
	Created   int      `json:"created"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors"`
}

type columns struct {
	topic, text, difficulty int
}

var defaultColumns = columns{topic: 0, text: 1, difficulty: 2}

type Importer struct {
	QuestionRepo *repository.QuestionRepository
}

func NewImporter(repo *repository.QuestionRepository) *Importer {
	return &Importer{QuestionRepo: repo}
}

// ReadRows 按扩展名读取 .xlsx 或 .csv 的全部行
func ReadRows(r io.Reader, filename, sheet string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		return cr.ReadAll()
	case ".xlsx", ".xlsm":
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to open Excel file: %w", err)
		}
		defer f.Close()
		if sheet == "" {
			sheet = f.GetSheetName(0)
		}
		return f.GetRows(sheet)
	}
	return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(filename))
}

func headerColumns(row []string) (columns, bool) {
	c := columns{topic: -1, text: -1, difficulty: -1}
	for i, cell := range row {
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case "topic":
			c.topic = i
		case "text", "question":
			c.text = i
		case "difficulty":
			c.difficulty = i
		}
	}
	return c, c.topic >= 0 && c.text >= 0
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Import 导入题目，同 topic 下重复题干跳过
func (im *Importer) Import(r io.Reader, filename string, opts Options) (*Result, error) {
	rows, err := ReadRows(r, filename, opts.SheetName)
	if err != nil {
		return nil, err
	}

	res := &Result{Errors: []string{}}
	cols := defaultColumns
	start := 0
	if opts.HasHeader && len(rows) > 0 {
		if c, ok := headerColumns(rows[0]); ok {
			cols = c
		}
		start = 1
	}

	seen := map[string]bool{}
	var batch []model.Question
	for i := start; i < len(rows); i++ {
		row := rows[i]
		topic, text := cell(row, cols.topic), cell(row, cols.text)
		if topic == "" && text == "" {
			continue
		}
		res.Processed++
		if topic == "" || text == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: topic and text are required", i+1))
			continue
		}

		key := topic + "\x00" + text
		if seen[key] {
			res.Skipped++
			continue
		}
		exists, err := im.QuestionRepo.ExistsText(topic, text)
		if err != nil {
			return nil, err
		}
		if exists {
			res.Skipped++
			continue
		}
		seen[key] = true
		batch = append(batch, model.Question{
			Topic:      topic,
			Text:       text,
			Difficulty: model.ParseDifficulty(strings.ToLower(cell(row, cols.difficulty))),
		})
	}

	if !opts.DryRun && len(batch) > 0 {
		if err := im.QuestionRepo.CreateBatch(batch); err != nil {
			return nil, err
		}
	}
	res.Created = len(batch)
	return res, nil
}
