package exporter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"objvault/pkg/core"
	"objvault/pkg/storage"
	"objvault/pkg/types"
)

// ErrCorrupt 表示存储里的内容与它的名字 (摘要) 不一致
var ErrCorrupt = errors.New("object content does not match its name")

// ErrWrongType 表示对象类型与调用方期望的不同
var ErrWrongType = errors.New("unexpected object type")

type Exporter struct {
	store storage.Store
}

func NewExporter(store storage.Store) *Exporter {
	return &Exporter{store: store}
}

// Info 是对象的头信息
type Info struct {
	Hash types.Hash
	Kind core.ObjectType
	Size uint64 // payload 长度
}

// Inspect 只读取对象头
func (e *Exporter) Inspect(ctx context.Context, hash types.Hash) (*Info, error) {
	reader, err := e.store.Get(ctx, hash)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	kind, size, err := core.ReadHeader(reader)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", hash, err)
	}
	return &Info{Hash: hash, Kind: kind, Size: size}, nil
}

// ReadTree 读取并解码一个树对象
func (e *Exporter) ReadTree(ctx context.Context, hash types.Hash) ([]core.TreeRecord, error) {
	reader, err := e.store.Get(ctx, hash)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(reader)
	reader.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read tree %s: %w", hash, err)
	}

	kind, size, err := core.ParseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", hash, err)
	}
	if kind != core.TypeTree {
		return nil, fmt.Errorf("%w: %s is a %s, not a tree", ErrWrongType, hash, kind)
	}
	body := data[core.HeaderSize:]
	if uint64(len(body)) != size {
		return nil, fmt.Errorf("%w: tree %s body is %d bytes, header says %d", core.ErrMalformed, hash, len(body), size)
	}
	return core.DecodeTree(body)
}

// CatBlob 把 Blob 的内容 (不含头) 流式写入 w
func (e *Exporter) CatBlob(ctx context.Context, hash types.Hash, w io.Writer) (int64, error) {
	reader, err := e.store.Get(ctx, hash)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	br := bufio.NewReader(reader)
	kind, size, err := core.ReadHeader(br)
	if err != nil {
		return 0, fmt.Errorf("object %s: %w", hash, err)
	}
	if kind != core.TypeBlob {
		return 0, fmt.Errorf("%w: %s is a %s, not a blob", ErrWrongType, hash, kind)
	}

	n, err := io.Copy(w, br)
	if err != nil {
		return n, fmt.Errorf("failed to copy blob %s: %w", hash, err)
	}
	if uint64(n) != size {
		return n, fmt.Errorf("%w: blob %s is %d bytes, header says %d", core.ErrMalformed, hash, n, size)
	}
	return n, nil
}

// Verify 重新计算存储内容的摘要，必须等于它的名字
func (e *Exporter) Verify(ctx context.Context, hash types.Hash) error {
	reader, err := e.store.Get(ctx, hash)
	if err != nil {
		return err
	}
	defer reader.Close()

	digest, err := core.VerifyStream(reader)
	if err != nil {
		return fmt.Errorf("object %s: %w", hash, err)
	}
	if digest.Hex() != hash {
		return fmt.Errorf("%w: %s hashes to %s", ErrCorrupt, hash, digest.Hex())
	}
	return nil
}

type RestoreCallback func(path string, hash types.Hash, size uint64)

// RestoreTree 递归地把树还原到 targetDir
// 需要子树也已写入存储 (write-tree --subtrees)，否则返回 storage.ErrNotFound
func (e *Exporter) RestoreTree(ctx context.Context, treeHash types.Hash, targetDir string, onRestore RestoreCallback) error {
	records, err := e.ReadTree(ctx, treeHash)
	if err != nil {
		return fmt.Errorf("failed to get tree %s: %w", treeHash, err)
	}
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return err
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !filepath.IsLocal(rec.Name) || filepath.Base(rec.Name) != rec.Name {
			return fmt.Errorf("%w: unsafe entry name %q", core.ErrMalformed, rec.Name)
		}
		fullPath := filepath.Join(targetDir, rec.Name)
		childHash := rec.Digest.Hex()

		info, err := e.Inspect(ctx, childHash)
		if err != nil {
			return fmt.Errorf("entry %s: %w", fullPath, err)
		}

		switch info.Kind {
		case core.TypeTree:
			if err := e.RestoreTree(ctx, childHash, fullPath, onRestore); err != nil {
				return err
			}
		case core.TypeBlob:
			if err := e.restoreFile(ctx, childHash, fullPath); err != nil {
				return err
			}
			if onRestore != nil {
				onRestore(fullPath, childHash, info.Size)
			}
		}
	}
	return nil
}

func (e *Exporter) restoreFile(ctx context.Context, hash types.Hash, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	if _, err := e.CatBlob(ctx, hash, file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
