package core

import (
	"errors"
	"fmt"
	"io"
	"os"

	"objvault/pkg/deflate"
	"objvault/pkg/types"
)

// HashChunkSize 是流式计算 FileBlob 摘要时的块大小
const HashChunkSize = 1024

// Blob 代表一段不透明的二进制内容
// 帧格式: "blob" ++ uint64(size) ++ content
type Blob interface {
	Object

	// Size 返回内容长度 (不含帧头)
	Size() (int64, error)

	// Header 返回 12 字节帧头，是 Size 的纯函数
	Header() ([]byte, error)
}

// -----------------------------------------------------------------------------
// MemBlob: 内容完整保存在内存里
// -----------------------------------------------------------------------------

// MemBlob 是不可变的内存 Blob
// 相同内容的 MemBlob 会经由 BlobPool 复用同一个实例
type MemBlob struct {
	digest  types.Digest
	content []byte
}

// NewMemBlob 通过进程级的 DefaultPool 创建 (或复用) 一个 MemBlob
func NewMemBlob(content []byte) *MemBlob {
	return DefaultPool.Intern(content)
}

func (b *MemBlob) frame() []byte {
	framed := make([]byte, 0, HeaderSize+len(b.content))
	framed = append(framed, Header(TypeBlob, uint64(len(b.content)))...)
	return append(framed, b.content...)
}

func (b *MemBlob) Type() ObjectType              { return TypeBlob }
func (b *MemBlob) Size() (int64, error)          { return int64(len(b.content)), nil }
func (b *MemBlob) Digest() (types.Digest, error) { return b.digest, nil }
func (b *MemBlob) Bytes() ([]byte, error)        { return b.frame(), nil }

func (b *MemBlob) Header() ([]byte, error) {
	return Header(TypeBlob, uint64(len(b.content))), nil
}

// Content 返回内容的拷贝 (MemBlob 本身不可变)
func (b *MemBlob) Content() []byte {
	c := make([]byte, len(b.content))
	copy(c, b.content)
	return c
}

// Dump 直接把内存里的帧数据写出去
func (b *MemBlob) Dump(w io.Writer, level deflate.Level) error {
	return dumpFramed(w, b.frame(), level)
}

func (b *MemBlob) String() string { return fmt.Sprintf("<blob %s>", b.digest.Hex()) }

// -----------------------------------------------------------------------------
// FileBlob: 内容在外部可 Seek 的数据源里 (通常是文件)
// -----------------------------------------------------------------------------

// FileBlob 是流式 Blob，不会把内容整体读进内存
// 它拥有底层句柄，用完必须 Close
type FileBlob struct {
	src    io.ReadSeeker
	closer io.Closer // src 如果实现了 io.Closer，这里就是它

	digest    types.Digest
	hasDigest bool
}

// NewFileBlob 接管 rs 的所有权
// rs 如果实现了 io.Closer，FileBlob.Close 时会关闭它
func NewFileBlob(rs io.ReadSeeker) *FileBlob {
	b := &FileBlob{src: rs}
	if c, ok := rs.(io.Closer); ok {
		b.closer = c
	}
	return b
}

// OpenFileBlob 以只读方式打开 path
func OpenFileBlob(path string) (*FileBlob, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewFileBlob(f), nil
}

func (b *FileBlob) Type() ObjectType { return TypeBlob }

// Size 需要 Seek 到末尾再回到原位置
func (b *FileBlob) Size() (int64, error) {
	cur, err := b.src.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := b.src.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := b.src.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	return end, nil
}

func (b *FileBlob) Header() ([]byte, error) {
	size, err := b.Size()
	if err != nil {
		return nil, err
	}
	return Header(TypeBlob, uint64(size)), nil
}

// Bytes 对 FileBlob 不支持：整体读入内存就失去了流式的意义，请用 Dump
func (b *FileBlob) Bytes() ([]byte, error) {
	return nil, fmt.Errorf("file blob: full in-memory framing: %w", errors.ErrUnsupported)
}

// Digest 先喂帧头，再从头按 HashChunkSize 分块读取内容
// 副作用：调用后读位置停在 EOF
func (b *FileBlob) Digest() (types.Digest, error) {
	if b.hasDigest {
		return b.digest, nil
	}
	size, err := b.Size()
	if err != nil {
		return types.Digest{}, err
	}
	h := NewHasher(TypeBlob, uint64(size))
	if _, err := b.src.Seek(0, io.SeekStart); err != nil {
		return types.Digest{}, err
	}
	if _, err := copyChunks(h, b.src, HashChunkSize); err != nil {
		return types.Digest{}, err
	}
	b.digest = sumOf(h)
	b.hasDigest = true
	return b.digest, nil
}

// Dump 写帧头，然后把内容从数据源直接流式拷贝过去
func (b *FileBlob) Dump(w io.Writer, level deflate.Level) error {
	header, err := b.Header()
	if err != nil {
		return err
	}
	if _, err := b.src.Seek(0, io.SeekStart); err != nil {
		return err
	}
	zw, err := deflate.NewWriter(w, level)
	if err != nil {
		return err
	}
	if _, err := zw.Write(header); err != nil {
		zw.Close()
		return err
	}
	if _, err := copyChunks(zw, b.src, deflate.ChunkSize); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// Close 释放底层句柄，可重复调用
func (b *FileBlob) Close() error {
	if b.closer == nil {
		return nil
	}
	c := b.closer
	b.closer = nil
	return c.Close()
}

func (b *FileBlob) String() string {
	if b.hasDigest {
		return fmt.Sprintf("<blob %s>", b.digest.Hex())
	}
	return "<blob (unhashed)>"
}

// copyChunks 用固定大小的缓冲区拷贝
func copyChunks(dst io.Writer, src io.Reader, chunkSize int) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			m, werr := dst.Write(buf[:n])
			written += int64(m)
			if werr != nil {
				return written, werr
			}
			if m != n {
				return written, io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}
