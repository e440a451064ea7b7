package importer

import (
	"bytes"
	"strings"
	"testing"

	"interview_assistant_backend/internal/model"
	"interview_assistant_backend/internal/repository"
	"interview_assistant_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func xlsxFile(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellName, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestImportExcel(t *testing.T) {
	db := testutil.NewEmptyDB(t)
	repo := repository.NewQuestionRepository(db)
	testutil.CreateQuestions(t, db, "Go", 1)

	buf := xlsxFile(t, [][]interface{}{
		{"Difficulty", "Topic", "Question"},
		{"Advanced", "Go", "How does the scheduler preempt goroutines?"},
		{"beginner", "Go", "Go question 1"},
		{"", "Go", "What is a slice header?"},
		{"beginner", "", "Missing topic"},
		{"beginner", "Go", "What is a slice header?"},
	})

	res, err := NewImporter(repo).Import(buf, "questions.xlsx", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 5, res.Processed)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 2, res.Skipped)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "Row 5")

	var q model.Question
	require.NoError(t, db.Where("text = ?", "How does the scheduler preempt goroutines?").First(&q).Error)
	assert.Equal(t, model.Advanced, q.Difficulty)

	var slice model.Question
	require.NoError(t, db.Where("text = ?", "What is a slice header?").First(&slice).Error)
	assert.Equal(t, model.Intermediate, slice.Difficulty)
}

func TestImportCSVDryRun(t *testing.T) {
	db := testutil.NewEmptyDB(t)
	repo := repository.NewQuestionRepository(db)

	data := "topic,text,difficulty\nRust,What is ownership?,beginner\nRust,Explain lifetimes.,advanced\n"
	opts := DefaultOptions()
	opts.DryRun = true

	res, err := NewImporter(repo).Import(strings.NewReader(data), "q.csv", opts)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)

	count, err := repo.CountByTopic("Rust")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestImportUnsupportedType(t *testing.T) {
	db := testutil.NewEmptyDB(t)
	_, err := NewImporter(repository.NewQuestionRepository(db)).Import(strings.NewReader("x"), "q.txt", DefaultOptions())
	assert.Error(t, err)
}
