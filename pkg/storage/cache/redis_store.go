package cache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"objvault/pkg/core"
	"objvault/pkg/storage"
	"objvault/pkg/types"

	"github.com/redis/go-redis/v9"
)

// CachedStore 是一个装饰器，它为底层的 storage.Store 添加 Redis 存在性缓存
// 只缓存“对象存在”这一事实，不缓存数据本身
type CachedStore struct {
	backend storage.Store // 被装饰的底层存储 (如 S3)
	client  *redis.Client // Redis 客户端
	ttl     time.Duration // 缓存过期时间 (例如 24h)
	prefix  string
	logger  *slog.Logger
}

type Config struct {
	RedisURL  string        // 标准连接字符串: redis://<user>:<password>@<host>:<port>/<db>
	TTL       time.Duration // 过期时间
	KeyPrefix string        // 默认 "ov:obj:"
}

func NewCachedStore(backend storage.Store, cfg Config) (*CachedStore, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	// Fail-fast 连接检查
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newCachedStore(backend, client, cfg), nil
}

func newCachedStore(backend storage.Store, client *redis.Client, cfg Config) *CachedStore {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "ov:obj:"
	}
	return &CachedStore{
		backend: backend,
		client:  client,
		ttl:     cfg.TTL,
		prefix:  prefix,
		logger:  slog.Default(),
	}
}

// Close 关闭 Redis 连接，不影响底层存储
func (s *CachedStore) Close() error {
	return s.client.Close()
}

// cacheKey 生成 Redis Key，添加前缀防止冲突
func (s *CachedStore) cacheKey(hash types.Hash) string {
	return s.prefix + string(hash)
}

// Has 优先查 Redis
func (s *CachedStore) Has(ctx context.Context, hash types.Hash) (bool, error) {
	key := s.cacheKey(hash)

	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		// 缓存故障降级：Redis 挂了就退化为无缓存模式，直接查底层存储
		s.logger.Warn("redis exists failed, falling back to backend", slog.String("hash", hash.String()), slog.Any("err", err))
	} else if val > 0 {
		return true, nil
	}

	// 缓存未命中 (Cache Miss)，查底层存储
	found, err := s.backend.Has(ctx, hash)
	if err != nil {
		return false, err
	}

	// 缓存回填，同步执行；回填失败不影响结果
	if found {
		s.mark(ctx, hash)
	}
	return found, nil
}

// Put 利用 Has 的缓存能力进行预检
func (s *CachedStore) Put(ctx context.Context, obj core.Object) error {
	hash, err := core.HashOf(obj)
	if err != nil {
		return err
	}
	exists, err := s.Has(ctx, hash)
	if err != nil {
		return err
	}
	if exists {
		return nil // 幂等性：已存在
	}

	if err := s.backend.Put(ctx, obj); err != nil {
		return err
	}

	// 只有底层写成功了，才写 Redis
	s.mark(ctx, hash)
	return nil
}

func (s *CachedStore) mark(ctx context.Context, hash types.Hash) {
	if err := s.client.Set(ctx, s.cacheKey(hash), "1", s.ttl).Err(); err != nil {
		s.logger.Warn("redis set failed", slog.String("hash", hash.String()), slog.Any("err", err))
	}
}

// Get 透传：对象可能很大，Redis 内存宝贵，只存存在性
func (s *CachedStore) Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	return s.backend.Get(ctx, hash)
}

// ExpandHash 透传
func (s *CachedStore) ExpandHash(ctx context.Context, short types.HashPrefix) (types.Hash, error) {
	return s.backend.ExpandHash(ctx, short)
}

// List 透传给底层存储；底层不支持枚举时返回 storage.ErrListUnsupported
func (s *CachedStore) List(ctx context.Context) ([]types.Hash, error) {
	l, ok := s.backend.(storage.Lister)
	if !ok {
		return nil, fmt.Errorf("%w: %T", storage.ErrListUnsupported, s.backend)
	}
	return l.List(ctx)
}

var _ storage.Lister = (*CachedStore)(nil)
