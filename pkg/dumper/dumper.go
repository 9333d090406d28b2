// Package dumper 把对象写进 Store：文件名就是对象的 Hex 摘要。
// DumpTree 先写树里所有的 Blob，再写树本身，保证子对象先于父对象存在。
package dumper

import (
	"context"
	"fmt"
	"log/slog"

	"objvault/pkg/core"
	"objvault/pkg/deflate"
	"objvault/pkg/manifest"
	"objvault/pkg/storage"
	"objvault/pkg/storage/disk"
	"objvault/pkg/types"
)

// Recorder 在对象落盘后接收通知 (例如 meta.Repository)
type Recorder interface {
	IndexObject(ctx context.Context, obj core.Object) error
}

type Dumper struct {
	store    storage.Store
	catalog  Recorder
	logger   *slog.Logger
	subtrees bool
}

type Option func(*Dumper)

// WithCatalog 每写一个对象就登记到 catalog
func WithCatalog(r Recorder) Option {
	return func(d *Dumper) { d.catalog = r }
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dumper) { d.logger = logger }
}

// WithSubtrees 让 DumpTree 也写出所有子树 (默认只写 Blob 和根)
// 不写子树时，根树引用的子树摘要在存储里找不到，只能用于校验而不能还原
func WithSubtrees(enabled bool) Option {
	return func(d *Dumper) { d.subtrees = enabled }
}

func New(store storage.Store, opts ...Option) *Dumper {
	d := &Dumper{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Report 描述一次落盘写了哪些对象 (按写入顺序，去重)
type Report struct {
	Root    types.Hash
	Objects []manifest.Entry
}

// Manifest 把 Report 转成可持久化的 Manifest
func (r *Report) Manifest() *manifest.Manifest {
	return manifest.New(r.Root, r.Objects)
}

// DumpObject 把单个对象写到以其摘要命名的位置
func (d *Dumper) DumpObject(ctx context.Context, obj core.Object) (types.Hash, error) {
	hash, err := core.HashOf(obj)
	if err != nil {
		return "", err
	}
	if err := d.store.Put(ctx, obj); err != nil {
		return "", fmt.Errorf("failed to store %s %s: %w", obj.Type(), hash, err)
	}
	if d.catalog != nil {
		if err := d.catalog.IndexObject(ctx, obj); err != nil {
			return "", err
		}
	}
	d.logger.Debug("object dumped", slog.String("type", string(obj.Type())), slog.String("hash", hash.String()))
	return hash, nil
}

// DumpTree 先写 tree.Walk() 产出的所有 Blob，再写树本身
func (d *Dumper) DumpTree(ctx context.Context, tree *core.Tree) (*Report, error) {
	report := &Report{}
	seen := make(map[types.Hash]bool)

	record := func(obj core.Object) error {
		hash, err := core.HashOf(obj)
		if err != nil {
			return err
		}
		if seen[hash] {
			return nil
		}
		if _, err := d.DumpObject(ctx, obj); err != nil {
			return err
		}
		seen[hash] = true
		size, err := payloadSize(obj)
		if err != nil {
			return err
		}
		report.Objects = append(report.Objects, manifest.Entry{Hash: hash, Kind: obj.Type(), Size: size})
		return nil
	}

	for blob := range tree.Walk() {
		if err := record(blob); err != nil {
			return nil, err
		}
	}
	if d.subtrees {
		if err := d.dumpSubtrees(tree, record); err != nil {
			return nil, err
		}
	}
	if err := record(tree); err != nil {
		return nil, err
	}

	root, err := core.HashOf(tree)
	if err != nil {
		return nil, err
	}
	report.Root = root
	d.logger.Info("tree dumped", slog.String("root", root.String()), slog.Int("objects", len(report.Objects)))
	return report, nil
}

// dumpSubtrees 后序遍历：先写深层的子树
func (d *Dumper) dumpSubtrees(tree *core.Tree, record func(core.Object) error) error {
	for _, e := range tree.Entries() {
		sub, ok := e.Object.(*core.Tree)
		if !ok {
			continue
		}
		if err := d.dumpSubtrees(sub, record); err != nil {
			return err
		}
		if err := record(sub); err != nil {
			return err
		}
	}
	return nil
}

func payloadSize(obj core.Object) (int64, error) {
	switch o := obj.(type) {
	case core.Blob:
		return o.Size()
	default:
		framed, err := obj.Bytes()
		if err != nil {
			return 0, err
		}
		return int64(len(framed) - core.HeaderSize), nil
	}
}

// -----------------------------------------------------------------------------
// 目录版本: <dir>/<hex>
// -----------------------------------------------------------------------------

// DumpToDir 把对象写成 <dir>/<hex-digest>
func DumpToDir(ctx context.Context, dir string, obj core.Object, level deflate.Level) (types.Hash, error) {
	store, err := disk.NewAdapter(dir, disk.WithCompression(level))
	if err != nil {
		return "", err
	}
	return New(store).DumpObject(ctx, obj)
}

// DumpTreeToDir 先写所有 Blob，再写树本身，全部放在 dir 下
func DumpTreeToDir(ctx context.Context, dir string, tree *core.Tree, level deflate.Level) (*Report, error) {
	store, err := disk.NewAdapter(dir, disk.WithCompression(level))
	if err != nil {
		return nil, err
	}
	return New(store).DumpTree(ctx, tree)
}
