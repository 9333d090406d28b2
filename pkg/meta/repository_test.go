package meta

import (
	"context"
	"fmt"
	"testing"
	"time"

	"objvault/pkg/core"
	"objvault/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestRepo 构建隔离的测试环境
func setupTestRepo(t *testing.T) *Repository {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	metaDB := NewWithConn(db)
	require.NoError(t, metaDB.AutoMigrate(&ObjectRecord{}))
	t.Cleanup(func() { metaDB.Close() })

	return NewRepository(metaDB)
}

func mustHash(t *testing.T, obj core.Object) types.Hash {
	t.Helper()
	h, err := core.HashOf(obj)
	require.NoError(t, err)
	return h
}

// mustIndexObject 强制索引对象，失败则终止
func mustIndexObject(t *testing.T, repo *Repository, obj core.Object, msgAndArgs ...any) {
	t.Helper()
	require.NoError(t, repo.IndexObject(context.Background(), obj), msgAndArgs...)
}

func TestRepository_IndexBlob(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	blob := core.NewMemBlob([]byte("catalog me"))
	mustIndexObject(t, repo, blob)

	rec, err := repo.GetObject(ctx, mustHash(t, blob))
	require.NoError(t, err)
	assert.Equal(t, "blob", rec.Kind)
	assert.Equal(t, int64(len("catalog me")), rec.Size)
	assert.Empty(t, rec.Entries)
}

func TestRepository_IndexTree(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	a := core.NewMemBlob([]byte("a"))
	b := core.NewMemBlob([]byte("b"))
	tree := core.NewTree()
	tree.Add("b.txt", b)
	tree.Add("a.txt", a)
	mustIndexObject(t, repo, tree)

	rec, err := repo.GetObject(ctx, mustHash(t, tree))
	require.NoError(t, err)
	assert.Equal(t, "tree", rec.Kind)

	framed, err := tree.Bytes()
	require.NoError(t, err)
	assert.Equal(t, int64(len(framed)-core.HeaderSize), rec.Size)

	entries, err := rec.TreeEntries()
	require.NoError(t, err)
	assert.Equal(t, map[string]types.Hash{
		"a.txt": mustHash(t, a),
		"b.txt": mustHash(t, b),
	}, entries)
}

func TestRepository_IndexObject_Idempotency(t *testing.T) {
	repo := setupTestRepo(t)
	blob := core.NewMemBlob([]byte("twice"))

	// 1. 写入两次
	mustIndexObject(t, repo, blob, "1st write failed")
	mustIndexObject(t, repo, blob, "2nd write (idempotency check) failed")

	// 2. 验证数据库中只有一条记录
	var count int64
	err := repo.db.GetConn().Model(&ObjectRecord{}).Where("hash = ?", mustHash(t, blob).String()).Count(&count).Error
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "Should have exactly 1 record after duplicate inserts")
}

func TestRepository_GetObject_NotFound(t *testing.T) {
	repo := setupTestRepo(t)
	_, err := repo.GetObject(context.Background(), mustHash(t, core.NewMemBlob([]byte("ghost"))))
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestRepository_ListObjects(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	blobs := []*core.MemBlob{
		core.NewMemBlob([]byte("one")),
		core.NewMemBlob([]byte("two")),
		core.NewMemBlob([]byte("three")),
	}
	tree := core.NewTree()
	for i, b := range blobs {
		tree.Add(fmt.Sprintf("f%d", i), b)
		mustIndexObject(t, repo, b)
	}
	mustIndexObject(t, repo, tree)

	// 手动控制时间，保证排序确定
	conn := repo.db.GetConn()
	base := time.Unix(1_700_000_000, 0)
	for i, b := range blobs {
		require.NoError(t, conn.Model(&ObjectRecord{}).
			Where("hash = ?", mustHash(t, b).String()).
			Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}

	all, err := repo.ListObjects(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	onlyBlobs, err := repo.ListObjects(ctx, core.TypeBlob, 2)
	require.NoError(t, err)
	require.Len(t, onlyBlobs, 2)
	assert.Equal(t, mustHash(t, blobs[2]).String(), onlyBlobs[0].Hash, "Newest object should be first")

	trees, err := repo.ListObjects(ctx, core.TypeTree, 10)
	require.NoError(t, err)
	require.Len(t, trees, 1)

	total, err := repo.TotalSize(ctx, core.TypeBlob)
	require.NoError(t, err)
	assert.Equal(t, int64(len("one")+len("two")+len("three")), total)
}

func TestNewDB_Sqlite(t *testing.T) {
	ctx := context.Background()
	db, err := NewDB(ctx, Config{Driver: "sqlite", Path: t.TempDir() + "/catalog.db"})
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	mustIndexObject(t, repo, core.NewMemBlob([]byte("on disk")))
}

func TestNewDB_UnsupportedDriver(t *testing.T) {
	_, err := NewDB(context.Background(), Config{Driver: "oracle"})
	assert.ErrorContains(t, err, "unsupported catalog driver")

	_, err = NewDB(context.Background(), Config{Driver: "sqlite"})
	assert.ErrorContains(t, err, "path is required")
}
