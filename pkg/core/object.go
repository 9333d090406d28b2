package core

import (
	"io"

	"objvault/pkg/deflate"
	"objvault/pkg/types"
)

// ObjectType 定义了对象类型，同时也是帧头里的 4 字节类型标签
type ObjectType string

const (
	TypeBlob ObjectType = "blob" // 二进制数据 (叶子节点)
	TypeTree ObjectType = "tree" // 目录树
)

// Object 是所有可序列化对象的通用接口
type Object interface {
	// Type 返回对象类型
	Type() ObjectType

	// Bytes 返回完整的帧数据 (header + payload)
	// 大对象的实现可以直接返回 errors.ErrUnsupported，此时只能走 Dump
	Bytes() ([]byte, error)

	// Digest 返回帧数据的 SHA-256，计算一次后缓存
	Digest() (types.Digest, error)

	// Dump 把帧数据 (可选压缩后) 写入 w
	Dump(w io.Writer, level deflate.Level) error
}

// HashOf 返回对象的 Hex 摘要，也就是它在存储里的名字
func HashOf(obj Object) (types.Hash, error) {
	d, err := obj.Digest()
	if err != nil {
		return "", err
	}
	return d.Hex(), nil
}

// dumpFramed 是内存对象共用的 Dump 实现：整块写入压缩流
func dumpFramed(w io.Writer, framed []byte, level deflate.Level) error {
	zw, err := deflate.NewWriter(w, level)
	if err != nil {
		return err
	}
	if _, err := zw.Write(framed); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}
