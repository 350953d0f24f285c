package service

import (
	"context"
	"coursehub_backend/internal/config"
	"coursehub_backend/internal/util"
	"coursehub_backend/pkg/logger"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// StorageProvider 定义通用存储接口
type StorageProvider interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	GetURL(key string) string
}

// LocalStorageProvider 本地存储实现
type LocalStorageProvider struct {
	Config *config.StorageConfig
}

func (p *LocalStorageProvider) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	dst := filepath.Join(p.Config.LocalPath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		return "", err
	}
	return p.GetURL(key), nil
}

func (p *LocalStorageProvider) Delete(ctx context.Context, key string) error {
	return os.Remove(filepath.Join(p.Config.LocalPath, filepath.FromSlash(key)))
}

func (p *LocalStorageProvider) GetURL(key string) string {
	return "/uploads/" + key
}

// MinioStorageProvider MinIO存储实现
type MinioStorageProvider struct {
	Config *config.StorageConfig
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
	return &MinioStorageProvider{Config: cfg, Client: client}, nil
}

func (p *MinioStorageProvider) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := p.Client.PutObject(ctx, p.Config.MinioBucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.GetURL(key), nil
}

func (p *MinioStorageProvider) Delete(ctx context.Context, key string) error {
	return p.Client.RemoveObject(ctx, p.Config.MinioBucket, key, minio.RemoveObjectOptions{})
}

func (p *MinioStorageProvider) GetURL(key string) string {
	return "/" + p.Config.MinioBucket + "/" + key
}

// OSSStorageProvider 阿里云OSS存储实现
type OSSStorageProvider struct {
	Config *config.StorageConfig
	Client *oss.Client
}

func NewOSSStorageProvider(cfg *config.StorageConfig) (*OSSStorageProvider, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	return &OSSStorageProvider{Config: cfg, Client: client}, nil
}

func (p *OSSStorageProvider) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	bucket, err := p.Client.Bucket(p.Config.OSSBucket)
	if err != nil {
		return "", err
	}
	if err := bucket.PutObject(key, reader, oss.ContentType(contentType)); err != nil {
		return "", err
	}
	return p.GetURL(key), nil
}

func (p *OSSStorageProvider) Delete(ctx context.Context, key string) error {
	bucket, err := p.Client.Bucket(p.Config.OSSBucket)
	if err != nil {
		return err
	}
	return bucket.DeleteObject(key)
}

func (p *OSSStorageProvider) GetURL(key string) string {
	return fmt.Sprintf("https://%s.%s/%s", p.Config.OSSBucket, p.Config.OSSEndpoint, key)
}

// StorageService 存储服务
type StorageService struct {
	Provider StorageProvider
}

// NewStorageService falls back to local storage when the remote provider cannot be built.
func NewStorageService(cfg *config.StorageConfig) *StorageService {
	var provider StorageProvider
	switch cfg.Type {
	case util.StorageMinio:
		p, err := NewMinioStorageProvider(cfg)
		if err != nil {
			logger.Log.Error("MinIO storage unavailable, using local storage", zap.Error(err))
		} else {
			provider = p
		}
	case util.StorageOSS:
		p, err := NewOSSStorageProvider(cfg)
		if err != nil {
			logger.Log.Error("OSS storage unavailable, using local storage", zap.Error(err))
		} else {
			provider = p
		}
	}

	if provider == nil {
		provider = &LocalStorageProvider{Config: cfg}
	}
	return &StorageService{Provider: provider}
}

func (s *StorageService) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	return s.Provider.Upload(ctx, key, reader, size, contentType)
}

func (s *StorageService) Delete(ctx context.Context, key string) error {
	return s.Provider.Delete(ctx, key)
}
