package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"objvault/pkg/deflate"
	"objvault/pkg/dumper"
	"objvault/pkg/exporter"
	"objvault/pkg/meta"
	"objvault/pkg/storage"
	"objvault/pkg/storage/cache"
	"objvault/pkg/storage/disk"
	"objvault/pkg/storage/s3"

	"github.com/spf13/viper"
)

// App 是整个应用程序的依赖容器
// 它按 Viper 配置组装各组件，但不知道具体的 CLI 命令
type App struct {
	Store    storage.Store
	Catalog  *meta.Repository // catalog.driver=none 时为 nil
	Exporter *exporter.Exporter
	Logger   *slog.Logger
	RepoPath string // .ov 目录

	closers []io.Closer
}

func NewApp(ctx context.Context) (*App, error) {
	logger := NewLogger(os.Stderr, viper.GetString("log.level"))
	slog.SetDefault(logger)

	storePath := viper.GetString("storage.path")
	if storePath == "" {
		return nil, fmt.Errorf("storage path not set")
	}
	// storage.path: .../.ov/objects -> repoPath: .../.ov
	repoPath := filepath.Dir(storePath)

	app := &App{Logger: logger, RepoPath: repoPath}

	store, err := initStore(ctx, repoPath)
	if err != nil {
		return nil, err
	}
	app.Store = store
	if c, ok := store.(io.Closer); ok {
		app.closers = append(app.closers, c)
	}

	catalog, db, err := initCatalog(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}
	if db != nil {
		app.Catalog = catalog
		app.closers = append(app.closers, db)
	}

	app.Exporter = exporter.NewExporter(store)
	return app, nil
}

// Dumper 按配置创建一个 Dumper，catalog 可用时自动登记
func (a *App) Dumper(subtrees bool) *dumper.Dumper {
	opts := []dumper.Option{dumper.WithLogger(a.Logger), dumper.WithSubtrees(subtrees)}
	if a.Catalog != nil {
		opts = append(opts, dumper.WithCatalog(a.Catalog))
	}
	return dumper.New(a.Store, opts...)
}

// ManifestDir 是 write-tree --manifest 的输出目录
func (a *App) ManifestDir() string {
	return filepath.Join(a.RepoPath, "manifests")
}

// Close 释放缓存连接和数据库连接
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// initStore 根据 storage.type 创建存储层，配置了 cache.redis_url 时再包一层缓存
func initStore(ctx context.Context, repoPath string) (storage.Store, error) {
	level, err := deflate.ParseLevel(viper.GetString("storage.compression"))
	if err != nil {
		return nil, err
	}

	var backend storage.Store
	storageType := viper.GetString("storage.type")
	switch storageType {
	case "", "disk":
		path := viper.GetString("storage.path")
		if path == "" {
			path = filepath.Join(repoPath, "objects")
		}
		backend, err = disk.NewAdapter(path,
			disk.WithCompression(level),
			disk.WithSharding(viper.GetBool("storage.sharded")),
			disk.WithLogger(slog.Default()),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to init disk storage: %w", err)
		}
	case "s3":
		bucket := viper.GetString("s3.bucket")
		if bucket == "" {
			return nil, fmt.Errorf("s3 bucket is required (set s3.bucket or OV_S3_BUCKET)")
		}
		backend, err = s3.NewAdapter(ctx, s3.Config{
			Endpoint:        viper.GetString("s3.endpoint"),
			Region:          viper.GetString("s3.region"),
			Bucket:          bucket,
			Prefix:          viper.GetString("s3.prefix"),
			AccessKeyID:     viper.GetString("s3.access_key"),
			SecretAccessKey: viper.GetString("s3.secret_key"),
			Compression:     level,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to init s3 storage: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}

	redisURL := viper.GetString("cache.redis_url")
	if redisURL == "" {
		return backend, nil
	}
	cached, err := cache.NewCachedStore(backend, cache.Config{
		RedisURL: redisURL,
		TTL:      viper.GetDuration("cache.ttl"),
	})
	if err != nil {
		// 缓存只是加速，连不上就退回底层存储
		slog.Warn("redis cache disabled", slog.String("error", err.Error()))
		return backend, nil
	}
	return cached, nil
}

// initCatalog 打开对象目录；catalog.driver 为 none 时返回 nil
func initCatalog(ctx context.Context) (*meta.Repository, *meta.DB, error) {
	driver := viper.GetString("catalog.driver")
	if driver == "" || driver == "none" {
		return nil, nil, nil
	}

	cfg := meta.Config{
		Driver:   driver,
		Path:     viper.GetString("catalog.path"),
		Host:     viper.GetString("database.host"),
		Port:     viper.GetInt("database.port"),
		User:     viper.GetString("database.user"),
		Password: viper.GetString("database.password"),
		DBName:   viper.GetString("database.name"),
		SSLMode:  viper.GetString("database.sslmode"),
		Verbose:  strings.EqualFold(viper.GetString("log.level"), "debug"),
	}
	if cfg.Driver == "sqlite" && cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, nil, err
		}
	}
	db, err := meta.NewDB(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return meta.NewRepository(db), db, nil
}

// NewLogger 创建文本格式的 slog Logger，level 取 debug/info/warn/error
func NewLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
