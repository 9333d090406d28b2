package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"objvault/pkg/core"
	"objvault/pkg/storage/disk"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitStore_Disk(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	viper.Set("storage.type", "disk")
	viper.Set("storage.path", filepath.Join(dir, "objects"))
	viper.Set("storage.compression", "9")

	store, err := initStore(context.Background(), dir)
	require.NoError(t, err)
	adapter, ok := store.(*disk.Adapter)
	require.True(t, ok)
	assert.EqualValues(t, 9, adapter.Level())
}

func TestInitStore_S3_MissingBucket(t *testing.T) {
	viper.Reset()
	viper.Set("storage.type", "s3")

	store, err := initStore(context.Background(), ".")
	assert.Error(t, err)
	assert.Nil(t, store)
	assert.Contains(t, err.Error(), "bucket is required")
}

func TestInitStore_UnknownType(t *testing.T) {
	viper.Reset()
	viper.Set("storage.type", "ftp")

	store, err := initStore(context.Background(), ".")
	assert.Error(t, err)
	assert.Nil(t, store)
	assert.Contains(t, err.Error(), "unsupported storage type")
}

func TestInitStore_BadCompression(t *testing.T) {
	viper.Reset()
	viper.Set("storage.compression", "fast")

	_, err := initStore(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func TestInitStore_RedisUnavailableFallsBack(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	viper.Set("storage.path", filepath.Join(dir, "objects"))
	viper.Set("cache.redis_url", "redis://127.0.0.1:1/0")

	store, err := initStore(context.Background(), dir)
	require.NoError(t, err)
	assert.IsType(t, &disk.Adapter{}, store)
}

func TestNewApp_WithSqliteCatalog(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	viper.Set("storage.path", filepath.Join(dir, ".ov", "objects"))
	viper.Set("catalog.driver", "sqlite")
	viper.Set("catalog.path", filepath.Join(dir, ".ov", "catalog.db"))

	a, err := NewApp(context.Background())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Catalog)
	assert.Equal(t, filepath.Join(dir, ".ov"), a.RepoPath)
	assert.Equal(t, filepath.Join(dir, ".ov", "manifests"), a.ManifestDir())

	ctx := context.Background()
	tree := core.NewTree()
	tree.Add("f", core.NewMemBlob([]byte("catalogued")))
	report, err := a.Dumper(false).DumpTree(ctx, tree)
	require.NoError(t, err)

	rec, err := a.Catalog.GetObject(ctx, report.Root)
	require.NoError(t, err)
	assert.Equal(t, string(core.TypeTree), rec.Kind)
}

func TestNewApp_NoCatalog(t *testing.T) {
	viper.Reset()
	viper.Set("storage.path", filepath.Join(t.TempDir(), "objects"))

	a, err := NewApp(context.Background())
	require.NoError(t, err)
	assert.Nil(t, a.Catalog)
	assert.NotNil(t, a.Exporter)
	assert.NoError(t, a.Close())
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info")
	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	NewLogger(&buf, "bogus").Info("dropped at warn")
	assert.Empty(t, buf.String())
}
