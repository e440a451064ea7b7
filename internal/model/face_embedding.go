package model

import "time"

type FaceEmbedding struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint      `gorm:"index;not null" json:"userId"`
	EmbeddingJSON string    `gorm:"type:text;not null" json:"-"`
	Model         string    `gorm:"size:50" json:"model"`
	ImageURL      string    `gorm:"size:255" json:"imageUrl,omitempty"`
	CreatedAt     time.Time `gorm:"index" json:"createdAt"`
}

func (FaceEmbedding) TableName() string {
	return "user_face_embeddings"
}
