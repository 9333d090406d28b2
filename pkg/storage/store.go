package storage

import (
	"context"
	"errors"
	"io"

	"objvault/pkg/core"
	"objvault/pkg/types"
)

var (
	ErrNotFound        = errors.New("object not found")
	ErrAmbiguousHash   = errors.New("ambiguous hash prefix")
	ErrPrefixTooShort  = errors.New("hash prefix too short")
	ErrInvalidHash     = errors.New("invalid hash")
	ErrListUnsupported = errors.New("storage backend cannot list objects")
)

// MinPrefixLen 是 ExpandHash 接受的最短前缀
const MinPrefixLen = 4

// Store defines the interface for a storage backend.
// Objects are named by the hex digest of their framed bytes.
type Store interface {
	// Put 将一个对象持久化，名字就是它的 Hex 摘要
	// 已存在则直接跳过 (内容寻址，天然幂等)
	Put(ctx context.Context, obj core.Object) error

	// Get 根据 Hash 读取帧数据 (已经解压)
	// 注意：这里返回的是 io.ReadCloser 而不是 []byte，大对象也能流式读取
	Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error)

	// Has 检查对象是否存在 (用于去重逻辑)
	Has(ctx context.Context, hash types.Hash) (bool, error)

	// ExpandHash 把短哈希扩展成完整哈希
	ExpandHash(ctx context.Context, prefix types.HashPrefix) (types.Hash, error)
}

// Lister 是能枚举全部对象的存储 (fsck 使用)
type Lister interface {
	List(ctx context.Context) ([]types.Hash, error)
}

// readCloser 把解压流和底层句柄绑在一起，Close 时两个都关
type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// NewReadCloser 返回一个读 r、Close 时依次关闭 closers 的 ReadCloser
func NewReadCloser(r io.Reader, closers ...io.Closer) io.ReadCloser {
	return &readCloser{Reader: r, closers: closers}
}
