// pkg/types/common.go
package types

import (
	"encoding/hex"
	"fmt"
)

// DigestSize 是原始摘要的字节长度 (SHA-256)
const DigestSize = 32

// Digest 是对象摘要的原始字节形式 (Raw Digest)
// Tree 条目里嵌入的就是它，而不是 Hex 字符串
type Digest [DigestSize]byte

// Hex 返回小写 Hex 形式，也就是对象在存储里的文件名
func (d Digest) Hex() Hash { return Hash(hex.EncodeToString(d[:])) }

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Bytes 返回一份拷贝，调用方可以随意修改
func (d Digest) Bytes() []byte {
	b := make([]byte, DigestSize)
	copy(b, d[:])
	return b
}

func (d Digest) IsZero() bool { return d == Digest{} }

// DigestFromBytes 从原始字节还原摘要 (长度必须正好 32)
func DigestFromBytes(b []byte) (Digest, error) {
	var d Digest
	if len(b) != DigestSize {
		return d, fmt.Errorf("invalid digest length: %d", len(b))
	}
	copy(d[:], b)
	return d, nil
}

// Hash 代表对象的唯一标识符 (SHA256 Hex String)
// 这是一个“值对象”，应当是不可变的。
type Hash string

func (h Hash) String() string { return string(h) }

// 验证 Hash 合法性
func (h Hash) IsZero() bool  { return h == "" }
func (h Hash) IsValid() bool { return len(h) == 2*DigestSize && isLowerHex(string(h)) }

// Digest 将 Hex 形式解析回原始摘要
func (h Hash) Digest() (Digest, error) {
	var d Digest
	if !h.IsValid() {
		return d, fmt.Errorf("invalid hash %q", string(h))
	}
	if _, err := hex.Decode(d[:], []byte(h)); err != nil {
		return d, fmt.Errorf("invalid hash %q: %w", string(h), err)
	}
	return d, nil
}

// HashPrefix 是用户输入的短哈希 (类似 git 的 abbrev)
type HashPrefix string

func (p HashPrefix) String() string { return string(p) }

// IsValid 只检查字符集 (小写 Hex)，长度限制由存储层决定
func (p HashPrefix) IsValid() bool {
	return len(p) <= 2*DigestSize && isLowerHex(string(p))
}

// isLowerHex 同时挡住了 "/"、".." 之类会被当成路径的输入
func isLowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

