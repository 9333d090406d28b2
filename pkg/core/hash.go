package core

import (
	"bufio"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"hash"
	"io"

	"objvault/pkg/types"
)

const (
	tagSize = 4
	// HeaderSize = 4 字节类型标签 + 8 字节大端长度
	HeaderSize = tagSize + 8
)

// Header 构造帧头: tag ++ uint64(size) big-endian
func Header(kind ObjectType, size uint64) []byte {
	h := make([]byte, HeaderSize)
	copy(h, string(kind))
	binary.BigEndian.PutUint64(h[tagSize:], size)
	return h
}

// ParseHeader 是 Header 的逆操作
func ParseHeader(b []byte) (ObjectType, uint64, error) {
	if len(b) < HeaderSize {
		return "", 0, fmt.Errorf("%w: header too short (%d bytes)", ErrMalformed, len(b))
	}
	kind := ObjectType(b[:tagSize])
	switch kind {
	case TypeBlob, TypeTree:
	default:
		return "", 0, fmt.Errorf("%w: unknown object tag %q", ErrMalformed, string(b[:tagSize]))
	}
	return kind, binary.BigEndian.Uint64(b[tagSize:HeaderSize]), nil
}

// ReadHeader 从流里读出帧头，读完后 r 停在 payload 开头
func ReadHeader(r io.Reader) (ObjectType, uint64, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return "", 0, fmt.Errorf("%w: truncated header", ErrMalformed)
		}
		return "", 0, err
	}
	return ParseHeader(buf)
}

// NewHasher 返回一个已经喂过帧头的 SHA-256
// 之后按任意大小分块写入 payload，结果与一次性哈希整个帧相同
func NewHasher(kind ObjectType, size uint64) hash.Hash {
	h := sha256.New()
	h.Write(Header(kind, size))
	return h
}

// SumFramed 一次性计算完整帧数据的摘要
func SumFramed(framed []byte) types.Digest {
	return types.Digest(sha256.Sum256(framed))
}

func sumOf(h hash.Hash) types.Digest {
	var d types.Digest
	copy(d[:], h.Sum(nil))
	return d
}

// VerifyStream 重新计算一个已存储对象 (帧数据流) 的摘要
// 用于 fsck：文件名必须等于内容的哈希
func VerifyStream(r io.Reader) (types.Digest, error) {
	br := bufio.NewReader(r)
	kind, size, err := ReadHeader(br)
	if err != nil {
		return types.Digest{}, err
	}
	h := NewHasher(kind, size)
	n, err := io.Copy(h, br)
	if err != nil {
		return types.Digest{}, err
	}
	if uint64(n) != size {
		return types.Digest{}, fmt.Errorf("%w: payload is %d bytes, header says %d", ErrMalformed, n, size)
	}
	return sumOf(h), nil
}
