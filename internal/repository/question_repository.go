package repository

import (
	"interview_assistant_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

// randomOrder 各方言的随机排序函数
func (r *QuestionRepository) randomOrder() string {
	if r.DB.Dialector.Name() == "mysql" {
		return "RAND()"
	}
	return "RANDOM()"
}

func (r *QuestionRepository) Create(q *model.Question) error {
	return r.DB.Create(q).Error
}

func (r *QuestionRepository) CreateBatch(qs []model.Question) error {
	if len(qs) == 0 {
		return nil
	}
	return r.DB.CreateInBatches(qs, 100).Error
}

func (r *QuestionRepository) CountByTopic(topic string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Question{}).Where("topic = ?", topic).Count(&count).Error
	return count, err
}

// CountUsed 用户在该 topic 下已经看过的不同题目数
func (r *QuestionRepository) CountUsed(userID uint, topic string) (int64, error) {
	var count int64
	err := r.DB.Table("question_usages AS qu").
		Joins("JOIN questions AS q ON q.id = qu.question_id").
		Where("qu.user_id = ? AND q.topic = ?", userID, topic).
		Select("COUNT(DISTINCT q.id)").
		Scan(&count).Error
	return count, err
}

// ResetUsage 物理删除用户在该 topic 下的全部使用记录
func (r *QuestionRepository) ResetUsage(userID uint, topic string) (int64, error) {
	topicIDs := r.DB.Model(&model.Question{}).Select("id").Where("topic = ?", topic)
	res := r.DB.Where("user_id = ? AND question_id IN (?)", userID, topicIDs).
		Delete(&model.QuestionUsage{})
	return res.RowsAffected, res.Error
}

// SelectUnused 随机取 limit 道该用户未使用过的题
func (r *QuestionRepository) SelectUnused(userID uint, topic string, limit int) ([]model.Question, error) {
	used := r.DB.Model(&model.QuestionUsage{}).Select("question_id").Where("user_id = ?", userID)

	var questions []model.Question
	err := r.DB.Where("topic = ? AND id NOT IN (?)", topic, used).
		Order(r.randomOrder()).
		Limit(limit).
		Find(&questions).Error
	return questions, err
}

func (r *QuestionRepository) MarkUsed(userID uint, questions []model.Question) error {
	if len(questions) == 0 {
		return nil
	}
	usages := make([]model.QuestionUsage, 0, len(questions))
	for _, q := range questions {
		usages = append(usages, model.QuestionUsage{UserID: userID, QuestionID: q.ID})
	}
	return r.DB.Create(&usages).Error
}

func (r *QuestionRepository) Topics() ([]string, error) {
	var topics []string
	err := r.DB.Model(&model.Question{}).Distinct("topic").Order("topic").Pluck("topic", &topics).Error
	return topics, err
}

type TopicCount struct {
	Topic string
	Total int64
}

// CountPerTopic 题库各 topic 的题目数，供补题任务使用
func (r *QuestionRepository) CountPerTopic() ([]TopicCount, error) {
	var counts []TopicCount
	err := r.DB.Model(&model.Question{}).
		Select("topic, COUNT(*) AS total").
		Group("topic").
		Order("topic").
		Scan(&counts).Error
	return counts, err
}

// ExistsText 同一 topic 下是否已有相同题干
func (r *QuestionRepository) ExistsText(topic, text string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Question{}).Where("topic = ? AND text = ?", topic, text).Count(&count).Error
	return count > 0, err
}
