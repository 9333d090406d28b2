package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"objvault/pkg/core"
	"objvault/pkg/types"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrObjectNotFound = errors.New("object not found in catalog")

// Repository 封装所有对 SQL 数据库的操作
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// IndexObject 将一个 core.Object “投影”到数据库 (幂等写入)
func (r *Repository) IndexObject(ctx context.Context, obj core.Object) error {
	model, err := recordOf(obj)
	if err != nil {
		return err
	}

	// 如果 Hash 已存在，则什么都不做 (Do Nothing)
	err = r.db.GetConn().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "hash"}},
			DoNothing: true,
		}).
		Create(model).Error
	if err != nil {
		return fmt.Errorf("failed to index object: %w", err)
	}
	return nil
}

// recordOf 根据对象类型构造 Model
func recordOf(obj core.Object) (*ObjectRecord, error) {
	hash, err := core.HashOf(obj)
	if err != nil {
		return nil, err
	}
	model := &ObjectRecord{Hash: hash.String(), Kind: string(obj.Type())}

	switch o := obj.(type) {
	case core.Blob:
		size, err := o.Size()
		if err != nil {
			return nil, err
		}
		model.Size = size
	case *core.Tree:
		framed, err := o.Bytes()
		if err != nil {
			return nil, err
		}
		model.Size = int64(len(framed) - core.HeaderSize)

		entries := make(map[string]string, o.Len())
		for _, e := range o.Entries() {
			h, err := core.HashOf(e.Object)
			if err != nil {
				return nil, err
			}
			entries[e.Name] = h.String()
		}
		raw, err := json.Marshal(entries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tree entries: %w", err)
		}
		model.Entries = datatypes.JSON(raw)
	default:
		return nil, fmt.Errorf("unsupported object type: %s", obj.Type())
	}
	return model, nil
}

// GetObject 按 Hash 查询
func (r *Repository) GetObject(ctx context.Context, hash types.Hash) (*ObjectRecord, error) {
	var rec ObjectRecord
	err := r.db.GetConn().WithContext(ctx).
		Where("hash = ?", hash.String()).
		First(&rec).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListObjects 按创建时间倒序列出对象；kind 为空表示所有类型
func (r *Repository) ListObjects(ctx context.Context, kind core.ObjectType, limit int) ([]ObjectRecord, error) {
	var recs []ObjectRecord
	q := r.db.GetConn().WithContext(ctx).Order("created_at DESC, hash")
	if kind != "" {
		q = q.Where("kind = ?", string(kind))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&recs).Error
	return recs, err
}

// TreeEntries 解出 tree 记录里的条目
func (rec *ObjectRecord) TreeEntries() (map[string]types.Hash, error) {
	out := map[string]types.Hash{}
	if len(rec.Entries) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(rec.Entries, &out); err != nil {
		return nil, fmt.Errorf("corrupted tree entries for %s: %w", rec.Hash, err)
	}
	return out, nil
}

// TotalSize 统计某类对象的 payload 总大小；kind 为空表示所有类型
func (r *Repository) TotalSize(ctx context.Context, kind core.ObjectType) (int64, error) {
	var total int64
	q := r.db.GetConn().WithContext(ctx).Model(&ObjectRecord{})
	if kind != "" {
		q = q.Where("kind = ?", string(kind))
	}
	err := q.Select("COALESCE(SUM(size), 0)").Scan(&total).Error
	return total, err
}
