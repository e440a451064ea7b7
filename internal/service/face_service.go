package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"interview_assistant_backend/internal/config"
	"interview_assistant_backend/internal/model"
	"interview_assistant_backend/internal/repository"
	"interview_assistant_backend/internal/util"
	"interview_assistant_backend/pkg/logger"
	"math"
	"time"

	"go.uber.org/zap"
)

type EnrollResult struct {
	Enrolled int    `json:"enrolled"`
	Model    string `json:"model"`
}

type LiveVerifyResult struct {
	Match     bool    `json:"match"`
	Distance  float64 `json:"distance"`
	Threshold float64 `json:"threshold"`
	Model     string  `json:"model"`
	Compared  int     `json:"compared"`
}

// FaceService 注册照片与实时比对，特征提取交给外部人脸服务
type FaceService struct {
	Client        *FaceClient
	EmbeddingRepo *repository.FaceEmbeddingRepository
	Storage       *StorageService
	Cfg           config.FaceConfig
}

func NewFaceService(cfg config.FaceConfig, repo *repository.FaceEmbeddingRepository, storage *StorageService) *FaceService {
	return &FaceService{
		Client:        NewFaceClient(cfg.ServiceURL, cfg.Model, time.Duration(cfg.TimeoutSec)*time.Second),
		EmbeddingRepo: repo,
		Storage:       storage,
		Cfg:           cfg,
	}
}

func (s *FaceService) threshold() float64 {
	if s.Cfg.MatchThreshold > 0 {
		return s.Cfg.MatchThreshold
	}
	return 0.4
}

func (s *FaceService) maxImages() int {
	if s.Cfg.MaxEnrollImages > 0 {
		return s.Cfg.MaxEnrollImages
	}
	return 10
}

func (s *FaceService) Detect(ctx context.Context, image Upload) (*DetectResult, error) {
	return s.Client.Detect(ctx, image)
}

func (s *FaceService) Verify(ctx context.Context, image1, image2 Upload) (*VerifyResult, error) {
	return s.Client.Verify(ctx, image1, image2)
}

// Enroll 为每张照片提取特征并保存；未检出人脸的照片跳过
func (s *FaceService) Enroll(ctx context.Context, userID uint, images []Upload) (*EnrollResult, error) {
	if len(images) == 0 {
		return nil, util.ErrNoImages
	}
	if len(images) > s.maxImages() {
		return nil, fmt.Errorf("%w: at most %d images", util.ErrTooManyImages, s.maxImages())
	}

	embeddings := make([]model.FaceEmbedding, 0, len(images))
	for _, img := range images {
		res, err := s.Client.Embed(ctx, img)
		if errors.Is(err, util.ErrNoFace) {
			logger.Log.Info("No face in enrollment image, skipped", zap.Uint("userID", userID), zap.String("file", img.Filename))
			continue
		}
		if err != nil {
			return nil, err
		}

		vector, err := json.Marshal(res.Embedding)
		if err != nil {
			return nil, err
		}
		emb := model.FaceEmbedding{
			UserID:        userID,
			EmbeddingJSON: string(vector),
			Model:         res.Model,
		}
		if s.Cfg.ArchiveEnrollment && s.Storage != nil {
			contentType := img.ContentType
			if contentType == "" {
				contentType = util.MimeJPEG
			}
			url, err := s.Storage.Put(ctx, EnrollmentKey(userID, img.Filename), img.Data, contentType)
			if err != nil {
				logger.Log.Warn("Failed to archive enrollment image", zap.Uint("userID", userID), zap.Error(err))
			} else {
				emb.ImageURL = url
			}
		}
		embeddings = append(embeddings, emb)
	}

	if len(embeddings) == 0 {
		return nil, util.ErrNoFace
	}
	if err := s.EmbeddingRepo.CreateBatch(embeddings); err != nil {
		return nil, err
	}

	return &EnrollResult{Enrolled: len(embeddings), Model: embeddings[0].Model}, nil
}

// VerifyLive 当前帧与所有注册特征取最小余弦距离
func (s *FaceService) VerifyLive(ctx context.Context, userID uint, image Upload) (*LiveVerifyResult, error) {
	stored, err := s.EmbeddingRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, util.ErrNoEnrollment
	}

	live, err := s.Client.Embed(ctx, image)
	if err != nil {
		return nil, err
	}

	best := math.Inf(1)
	compared := 0
	for _, e := range stored {
		var vec []float64
		if err := json.Unmarshal([]byte(e.EmbeddingJSON), &vec); err != nil {
			logger.Log.Warn("Corrupt face embedding skipped", zap.Uint("id", e.ID), zap.Error(err))
			continue
		}
		d, ok := CosineDistance(live.Embedding, vec)
		if !ok {
			continue
		}
		compared++
		if d < best {
			best = d
		}
	}
	if compared == 0 {
		return nil, util.ErrNoEnrollment
	}

	threshold := s.threshold()
	return &LiveVerifyResult{
		Match:     best <= threshold,
		Distance:  best,
		Threshold: threshold,
		Model:     live.Model,
		Compared:  compared,
	}, nil
}

// CosineDistance 1 - cos(a,b)；维度不同或含零向量时 ok 为 false
func CosineDistance(a, b []float64) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb)), true
}
