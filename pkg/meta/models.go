package meta

import (
	"time"

	"gorm.io/datatypes"
)

// ObjectRecord 是已落盘对象在关系型数据库中的投影 (索引)
// 存储本身只认 Hash；这里补充类型、大小、树的条目，方便查询
type ObjectRecord struct {
	// Hash 是主键 (Hex 摘要，也是存储里的文件名)
	Hash string `gorm:"primaryKey;type:char(64)"`

	// Kind: "blob" / "tree"
	Kind string `gorm:"index;type:varchar(8);not null"`

	// Size 是 payload 长度 (不含 12 字节帧头)
	Size int64

	// Entries 只对 tree 有效：{"name": "child hex digest", ...}
	Entries datatypes.JSON

	CreatedAt time.Time `gorm:"index"`
}

// TableName 强制指定表名
func (ObjectRecord) TableName() string {
	return "objects"
}
