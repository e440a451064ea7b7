package model

import "time"

type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

// ParseDifficulty 非法取值统一归为 intermediate
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(s) {
	case Beginner, Intermediate, Advanced:
		return Difficulty(s)
	}
	return Intermediate
}

// swagger:model Question
type Question struct {
	ID         uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Topic      string     `gorm:"size:100;index;not null" json:"topic"`
	Text       string     `gorm:"type:text;not null" json:"text"`
	Difficulty Difficulty `gorm:"size:20;default:'beginner'" json:"difficulty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func (Question) TableName() string {
	return "questions"
}

// QuestionUsage 记录某道题已经出给某个用户，重置时按 (user, topic) 物理删除
type QuestionUsage struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     uint      `gorm:"index:idx_usage_user_question;not null" json:"userId"`
	QuestionID uint      `gorm:"index:idx_usage_user_question;not null" json:"questionId"`
	UsedAt     time.Time `gorm:"autoCreateTime" json:"usedAt"`
}

func (QuestionUsage) TableName() string {
	return "question_usages"
}
