package models

import "time"

// LocalStorageEntry 本地持久化键值项（值为 JSON 文本）
type LocalStorageEntry struct {
	Key       string    `gorm:"primaryKey;type:varchar(128)" json:"key"` // 键
	Value     string    `gorm:"type:text;not null" json:"value"`         // JSON 文本
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`                 // 更新时间
}

// TableName 指定表名
func (LocalStorageEntry) TableName() string {
	return "local_storage"
}
