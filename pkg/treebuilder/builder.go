// Package treebuilder 把一个目录快照成内存中的 core.Tree。
package treebuilder

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"objvault/pkg/core"
	"objvault/pkg/ignore"
)

// DefaultInlineThreshold 以下的文件直接读进内存 (MemBlob)，其余按流处理 (FileBlob)
const DefaultInlineThreshold int64 = 1 << 20

// Snapshot 持有构建出的树以及所有打开的文件句柄
type Snapshot struct {
	Root  *core.Tree
	Files int // 收录的文件数
	Bytes int64

	opened []*core.FileBlob
}

// Close 释放所有 FileBlob 的句柄；Snapshot 在 Close 之后不可再 Dump
func (s *Snapshot) Close() error {
	var errs []error
	for _, fb := range s.opened {
		errs = append(errs, fb.Close())
	}
	s.opened = nil
	return errors.Join(errs...)
}

type Builder struct {
	matcher         *ignore.Matcher
	inlineThreshold int64
	pool            *core.BlobPool
	logger          *slog.Logger
}

type Option func(*Builder)

func WithMatcher(m *ignore.Matcher) Option {
	return func(b *Builder) { b.matcher = m }
}

// WithInlineThreshold 设置 MemBlob/FileBlob 的分界；负数表示全部走 FileBlob
func WithInlineThreshold(n int64) Option {
	return func(b *Builder) { b.inlineThreshold = n }
}

// WithPool 使用独立的 BlobPool (默认 core.DefaultPool)
func WithPool(p *core.BlobPool) Option {
	return func(b *Builder) { b.pool = p }
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		inlineThreshold: DefaultInlineThreshold,
		pool:            core.DefaultPool,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// FromDir 构建 root 目录的快照
// 子目录变成子树 (空目录就是空树)，符号链接等非普通文件会被跳过
func (b *Builder) FromDir(root string) (*Snapshot, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	snap := &Snapshot{}
	tree, err := b.buildDir(snap, root, "")
	if err != nil {
		snap.Close()
		return nil, err
	}
	snap.Root = tree
	return snap, nil
}

func (b *Builder) buildDir(snap *Snapshot, abs, rel string) (*core.Tree, error) {
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read dir %s: %w", abs, err)
	}

	tree := core.NewTree()
	for _, entry := range entries {
		childRel := entry.Name()
		if rel != "" {
			childRel = rel + "/" + entry.Name()
		}
		if b.matcher.Matches(childRel) {
			b.logger.Debug("ignored", slog.String("path", childRel))
			continue
		}
		childAbs := filepath.Join(abs, entry.Name())

		switch {
		case entry.IsDir():
			sub, err := b.buildDir(snap, childAbs, childRel)
			if err != nil {
				return nil, err
			}
			tree.Add(entry.Name(), sub)
		case entry.Type().IsRegular():
			blob, size, err := b.fileBlob(snap, childAbs)
			if err != nil {
				return nil, err
			}
			tree.Add(entry.Name(), blob)
			snap.Files++
			snap.Bytes += size
		default:
			b.logger.Warn("skipping non-regular file", slog.String("path", childRel), slog.String("mode", entry.Type().String()))
		}
	}
	tree.Sort()
	return tree, nil
}

func (b *Builder) fileBlob(snap *Snapshot, path string) (core.Blob, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, err
	}
	size := info.Size()

	if size <= b.inlineThreshold {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return b.pool.Intern(data), int64(len(data)), nil
	}

	fb, err := core.OpenFileBlob(path)
	if err != nil {
		return nil, 0, err
	}
	snap.opened = append(snap.opened, fb)
	return fb, size, nil
}

// FromDir 使用默认配置加上 root 下的 .ovignore
func FromDir(root string, inlineThreshold int64) (*Snapshot, error) {
	matcher, err := ignore.NewMatcher(root)
	if err != nil {
		return nil, err
	}
	return NewBuilder(WithMatcher(matcher), WithInlineThreshold(inlineThreshold)).FromDir(root)
}
