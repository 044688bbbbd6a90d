package repository

import (
	"context"
	"errors"
	"time"

	"github.com/campusbooks/storefront/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LocalStorageRepository 本地持久化键值访问接口
type LocalStorageRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// GormLocalStorageRepository GORM 实现
type GormLocalStorageRepository struct {
	db *gorm.DB
}

// NewLocalStorageRepository 创建本地存储仓库
func NewLocalStorageRepository(db *gorm.DB) *GormLocalStorageRepository {
	return &GormLocalStorageRepository{db: db}
}

// Get 读取键值，不存在时 ok=false
func (r *GormLocalStorageRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var entry models.LocalStorageEntry
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return entry.Value, true, nil
}

// Set 写入键值（存在则覆盖）
func (r *GormLocalStorageRepository) Set(ctx context.Context, key, value string) error {
	entry := models.LocalStorageEntry{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

// Delete 删除键值，不存在时忽略
func (r *GormLocalStorageRepository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Where("key = ?", key).Delete(&models.LocalStorageEntry{}).Error
}

// WithTx 在事务中执行
func (r *GormLocalStorageRepository) WithTx(tx *gorm.DB) *GormLocalStorageRepository {
	if tx == nil {
		return r
	}
	return &GormLocalStorageRepository{db: tx}
}
