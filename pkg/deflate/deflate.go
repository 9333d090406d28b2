// Package deflate 提供对象落盘时使用的流式压缩层。
//
// 使用 raw deflate (没有 zlib/gzip 头尾)，按固定大小分块处理，
// 所以任意大的对象都不需要整体放进内存。
package deflate

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/flate"
)

// ChunkSize 是流式压缩/解压时每次处理的块大小
const ChunkSize = 64 * 1024

// Level 是压缩等级
// 除了 deflate 本身的等级外，还有一个 Uncompressed 表示“完全不压缩，原样写出”
type Level int

const (
	// Uncompressed 原样写出，不经过 deflate (注意它和 StoredLevel 不同)
	Uncompressed Level = -100

	HuffmanOnly     Level = flate.HuffmanOnly
	DefaultLevel    Level = flate.DefaultCompression
	StoredLevel     Level = flate.NoCompression // deflate stored blocks，仍然是合法的 deflate 流
	BestSpeed       Level = flate.BestSpeed
	BestCompression Level = flate.BestCompression
)

// Valid 判断等级是否在支持范围内
func (l Level) Valid() bool {
	return l == Uncompressed || (l >= HuffmanOnly && l <= BestCompression)
}

// Compressed 表示写出的数据是否是 deflate 流
func (l Level) Compressed() bool { return l != Uncompressed }

func (l Level) String() string {
	switch l {
	case Uncompressed:
		return "none"
	case DefaultLevel:
		return "default"
	case HuffmanOnly:
		return "huffman"
	default:
		return strconv.Itoa(int(l))
	}
}

// ParseLevel 解析配置文件/命令行里的等级
// 支持 "none", "default", "huffman" 以及 -2..9 的整数
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "off", "raw":
		return Uncompressed, nil
	case "", "default":
		return DefaultLevel, nil
	case "huffman":
		return HuffmanOnly, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid compression level %q", s)
	}
	l := Level(n)
	if l == Uncompressed || !l.Valid() {
		return 0, fmt.Errorf("compression level %d out of range [%d, %d]", n, HuffmanOnly, BestCompression)
	}
	return l, nil
}

// NewWriter 返回一个写入 dst 的压缩流
// Close 会把 deflate 内部缓冲全部 flush 出去，但不会关闭 dst
// Uncompressed 时返回直通的 Writer
func NewWriter(dst io.Writer, level Level) (io.WriteCloser, error) {
	if !level.Valid() {
		return nil, fmt.Errorf("invalid compression level %d", level)
	}
	if !level.Compressed() {
		return nopWriteCloser{dst}, nil
	}
	return flate.NewWriter(dst, int(level))
}

// NewReader 是 NewWriter 的逆操作
// Close 只释放解压器，不关闭 src
func NewReader(src io.Reader, level Level) io.ReadCloser {
	if !level.Compressed() {
		return io.NopCloser(src)
	}
	return flate.NewReader(src)
}

// CompressCopy 从 src 读出原始数据，压缩后写入 dst，返回读入的原始字节数
func CompressCopy(dst io.Writer, src io.Reader, level Level) (int64, error) {
	zw, err := NewWriter(dst, level)
	if err != nil {
		return 0, err
	}
	n, err := copyChunks(zw, src)
	if err != nil {
		zw.Close()
		return n, err
	}
	// 关键：必须 Close 才会写出最后一个块，否则流不能独立解码
	return n, zw.Close()
}

// DecompressCopy 从 src 读出 raw deflate 流，解压后写入 dst，返回写出的字节数
func DecompressCopy(dst io.Writer, src io.Reader) (int64, error) {
	zr := flate.NewReader(src)
	defer zr.Close()
	return copyChunks(dst, zr)
}

// copyChunks 按 ChunkSize 分块拷贝
// 不用 io.Copy：它会走 ReaderFrom/WriterTo 的捷径，块大小就不受控了
func copyChunks(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, ChunkSize)
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

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
