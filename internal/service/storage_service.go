package service

import (
	"bytes"
	"context"
	"fmt"
	"interview_assistant_backend/internal/config"
	"interview_assistant_backend/internal/util"
	"interview_assistant_backend/pkg/logger"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// StorageProvider 对象存储，目前只用于归档人脸注册照片
type StorageProvider interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	GetURL(key string) string
}

type LocalStorageProvider struct {
	Root string
}

func (p *LocalStorageProvider) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	dst := filepath.Join(p.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return "", err
	}
	return p.GetURL(key), nil
}

func (p *LocalStorageProvider) Delete(ctx context.Context, key string) error {
	return os.Remove(filepath.Join(p.Root, filepath.FromSlash(key)))
}

func (p *LocalStorageProvider) GetURL(key string) string {
	return "/uploads/" + key
}

type MinioStorageProvider struct {
	Bucket string
	Client *minio.Client
}

func NewMinioStorageProvider(cfg *config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}
	return &MinioStorageProvider{Bucket: cfg.MinioBucket, Client: client}, nil
}

func (p *MinioStorageProvider) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := p.Client.PutObject(ctx, p.Bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.GetURL(key), nil
}

func (p *MinioStorageProvider) Delete(ctx context.Context, key string) error {
	return p.Client.RemoveObject(ctx, p.Bucket, key, minio.RemoveObjectOptions{})
}

func (p *MinioStorageProvider) GetURL(key string) string {
	return "/" + p.Bucket + "/" + key
}

type OSSStorageProvider struct {
	Endpoint string
	Bucket   *oss.Bucket
}

func NewOSSStorageProvider(cfg *config.StorageConfig) (*OSSStorageProvider, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	bucket, err := client.Bucket(cfg.OSSBucket)
	if err != nil {
		return nil, err
	}
	return &OSSStorageProvider{Endpoint: cfg.OSSEndpoint, Bucket: bucket}, nil
}

func (p *OSSStorageProvider) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	err := p.Bucket.PutObject(key, bytes.NewReader(data), oss.ContentType(contentType))
	if err != nil {
		return "", err
	}
	return p.GetURL(key), nil
}

func (p *OSSStorageProvider) Delete(ctx context.Context, key string) error {
	return p.Bucket.DeleteObject(key)
}

func (p *OSSStorageProvider) GetURL(key string) string {
	return fmt.Sprintf("https://%s.%s/%s", p.Bucket.BucketName, p.Endpoint, key)
}

type StorageService struct {
	Provider StorageProvider
}

// NewStorageService 远端存储初始化失败时退回本地目录
func NewStorageService(cfg *config.StorageConfig) *StorageService {
	var provider StorageProvider
	switch cfg.Type {
	case util.StorageMinio:
		p, err := NewMinioStorageProvider(cfg)
		if err != nil {
			logger.Log.Warn("MinIO unavailable, falling back to local storage", zap.Error(err))
		} else {
			provider = p
		}
	case util.StorageOSS:
		p, err := NewOSSStorageProvider(cfg)
		if err != nil {
			logger.Log.Warn("OSS unavailable, falling back to local storage", zap.Error(err))
		} else {
			provider = p
		}
	}

	if provider == nil {
		provider = &LocalStorageProvider{Root: cfg.LocalPath}
	}
	return &StorageService{Provider: provider}
}

// EnrollmentKey enrollment/<user>/<uuid><ext>
func EnrollmentKey(userID uint, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("enrollment/%d/%s%s", userID, uuid.NewString(), ext)
}

func (s *StorageService) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return s.Provider.Put(ctx, key, data, contentType)
}

func (s *StorageService) Delete(ctx context.Context, key string) error {
	return s.Provider.Delete(ctx, key)
}
