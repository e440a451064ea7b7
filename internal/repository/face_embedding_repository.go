package repository

import (
	"interview_assistant_backend/internal/model"

	"gorm.io/gorm"
)

type FaceEmbeddingRepository struct {
	DB *gorm.DB
}

func NewFaceEmbeddingRepository(db *gorm.DB) *FaceEmbeddingRepository {
	return &FaceEmbeddingRepository{DB: db}
}

func (r *FaceEmbeddingRepository) CreateBatch(embeddings []model.FaceEmbedding) error {
	if len(embeddings) == 0 {
		return nil
	}
	return r.DB.Create(&embeddings).Error
}

func (r *FaceEmbeddingRepository) ListByUser(userID uint) ([]model.FaceEmbedding, error) {
	var embeddings []model.FaceEmbedding
	err := r.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&embeddings).Error
	return embeddings, err
}
