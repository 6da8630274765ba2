package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 证书导出状态。
const (
	StatusDraft     = "draft"
	StatusExporting = "exporting"
	StatusExported  = "exported"
	StatusFailed    = "failed"
)

// User 表示系统中的账号信息。
type User struct {
	gorm.Model
	Username     string        `gorm:"uniqueIndex;size:64"`
	PasswordHash string        `gorm:"size:255"`
	Certificates []Certificate `gorm:"constraint:OnDelete:CASCADE"`
}

// Certificate 表示一张证书。Content 以 JSONB 存完整文档
// （收件人、正文、签名人、样式覆盖等），列出来的标量字段
// 只为列表页查询与排序方便。
type Certificate struct {
	gorm.Model
	StudentName  string         `gorm:"size:255"`
	CollegeName  string         `gorm:"size:255"`
	EventName    string         `gorm:"size:255"`
	TemplateKey  string         `gorm:"size:64"`
	Content      datatypes.JSON `gorm:"type:jsonb"`
	UserID       uint           `gorm:"index"`
	User         User           `gorm:"constraint:OnDelete:CASCADE"`
	PdfUrl       string         `gorm:"size:512"`
	ThumbnailURL string         `gorm:"size:512"`
	Status       string         `gorm:"size:32"`
}

// Asset 记录用户上传到对象存储的素材（logo、背景图、签名图）。
type Asset struct {
	gorm.Model
	UserID    uint   `gorm:"index"`
	User      User   `gorm:"constraint:OnDelete:CASCADE"`
	ObjectKey string `gorm:"uniqueIndex;size:512"`
	FileName  string `gorm:"size:255"`
	Size      int64
}
