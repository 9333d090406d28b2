package disk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"objvault/pkg/core"
	"objvault/pkg/deflate"
	"objvault/pkg/storage"
	"objvault/pkg/types"
)

// Adapter 实现了 storage.Store 接口
// 默认布局是扁平的 <root>/<hex>，开启 sharded 后是 <root>/aa/bbcc...
type Adapter struct {
	rootPath string // 比如: /home/user/.ov/objects
	level    deflate.Level
	sharded  bool
	logger   *slog.Logger
}

type Option func(*Adapter)

// WithCompression 设置落盘压缩等级 (默认 deflate.DefaultLevel)
func WithCompression(level deflate.Level) Option {
	return func(a *Adapter) { a.level = level }
}

// WithSharding 使用前 2 个字符作为子目录
func WithSharding(enabled bool) Option {
	return func(a *Adapter) { a.sharded = enabled }
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) { a.logger = logger }
}

// NewAdapter 创建一个新的磁盘存储适配器
func NewAdapter(root string, opts ...Option) (*Adapter, error) {
	a := &Adapter{
		rootPath: root,
		level:    deflate.DefaultLevel,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if !a.level.Valid() {
		return nil, fmt.Errorf("invalid compression level %d", a.level)
	}

	// 确保根目录存在
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root storage dir: %w", err)
	}
	return a, nil
}

// Root 返回对象目录
func (s *Adapter) Root() string { return s.rootPath }

// Level 返回落盘压缩等级
func (s *Adapter) Level() deflate.Level { return s.level }

// layout 返回哈希对应的物理路径
func (s *Adapter) layout(hash types.Hash) string {
	h := string(hash)
	if !s.sharded || len(h) < 2 {
		return filepath.Join(s.rootPath, h)
	}
	return filepath.Join(s.rootPath, h[:2], h[2:])
}

func (s *Adapter) Put(ctx context.Context, obj core.Object) error {
	hash, err := core.HashOf(obj)
	if err != nil {
		return err
	}
	targetPath := s.layout(hash)

	// 1. 检查是否存在 (幂等性)
	if _, err := os.Stat(targetPath); err == nil {
		s.logger.Debug("object exists, skip", slog.String("hash", hash.String()))
		return nil // 已经存在，直接跳过 (CAS 的好处)
	}

	// 2. 准备目录
	dir := filepath.Dir(targetPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// 3. 原子写入 (Atomic Write)
	// 技巧：先写到一个临时文件，然后 Rename。
	// 这样保证要么文件不存在，要么文件是完整的。
	tempFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	// 确保临时文件会被清理（如果成功 Rename 了，这个删除会失效，或者无害）
	defer os.Remove(tempFile.Name())

	// 流式写入：大文件不会整体进内存
	if err := obj.Dump(tempFile, s.level); err != nil {
		tempFile.Close()
		return err
	}
	if err := tempFile.Close(); err != nil { // 必须先关闭才能 Rename
		return err
	}

	// 4. 移动到最终位置
	if err := os.Rename(tempFile.Name(), targetPath); err != nil {
		return err
	}
	s.logger.Debug("object stored", slog.String("hash", hash.String()), slog.String("type", string(obj.Type())))
	return nil
}

// Get 返回解压后的帧数据
// 对象如果是在另一种压缩设置 (none 与 deflate) 下写入的，会自动换用另一种方式读取
func (s *Adapter) Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	if !hash.IsValid() {
		return nil, fmt.Errorf("%w: %q", storage.ErrInvalidHash, hash)
	}
	path := s.layout(hash)
	r, err := s.open(path, s.level)
	if errors.Is(err, core.ErrMalformed) {
		if alt, altErr := s.open(path, otherMode(s.level)); altErr == nil {
			s.logger.Debug("object read with alternate compression", slog.String("hash", hash.String()))
			return alt, nil
		}
	}
	return r, err
}

// open 打开对象并预读帧头，确认解码方式正确；返回的流仍然从帧头开始
func (s *Adapter) open(path string, level deflate.Level) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	zr := deflate.NewReader(f, level)
	header := make([]byte, core.HeaderSize)
	if _, err := io.ReadFull(zr, header); err != nil {
		zr.Close()
		f.Close()
		return nil, fmt.Errorf("%w: %v", core.ErrMalformed, err)
	}
	if _, _, err := core.ParseHeader(header); err != nil {
		zr.Close()
		f.Close()
		return nil, err
	}
	return storage.NewReadCloser(io.MultiReader(bytes.NewReader(header), zr), zr, f), nil
}

// otherMode 返回与 level 相反的落盘模式
func otherMode(level deflate.Level) deflate.Level {
	if level.Compressed() {
		return deflate.Uncompressed
	}
	return deflate.DefaultLevel
}

func (s *Adapter) Has(ctx context.Context, hash types.Hash) (bool, error) {
	if !hash.IsValid() {
		return false, nil
	}
	_, err := os.Stat(s.layout(hash))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// ExpandHash 在对象目录里按前缀查找完整哈希
func (s *Adapter) ExpandHash(ctx context.Context, prefix types.HashPrefix) (types.Hash, error) {
	p := strings.ToLower(prefix.String())
	if len(p) < storage.MinPrefixLen {
		return "", fmt.Errorf("%w: %q", storage.ErrPrefixTooShort, p)
	}
	if !types.HashPrefix(p).IsValid() {
		return "", fmt.Errorf("%w: %q", storage.ErrInvalidHash, p)
	}

	var matches []types.Hash
	if s.sharded {
		entries, err := os.ReadDir(filepath.Join(s.rootPath, p[:2]))
		if err != nil && !os.IsNotExist(err) {
			return "", err
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), p[2:]) && !e.IsDir() {
				matches = append(matches, types.Hash(p[:2]+e.Name()))
			}
		}
	} else {
		entries, err := os.ReadDir(s.rootPath)
		if err != nil {
			return "", err
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), p) && !e.IsDir() {
				matches = append(matches, types.Hash(e.Name()))
			}
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", storage.ErrNotFound, p)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s matches %d objects", storage.ErrAmbiguousHash, p, len(matches))
	}
}

// List 列出目录里的所有对象 Hash (fsck 使用)
func (s *Adapter) List(ctx context.Context) ([]types.Hash, error) {
	var out []types.Hash
	err := filepath.WalkDir(s.rootPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(s.rootPath, path)
		if err != nil {
			return err
		}
		h := types.Hash(strings.ReplaceAll(filepath.ToSlash(rel), "/", ""))
		if h.IsValid() {
			out = append(out, h)
		}
		return nil
	})
	return out, err
}
