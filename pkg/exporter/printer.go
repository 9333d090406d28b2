package exporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"unicode/utf8"

	"objvault/pkg/core"
	"objvault/pkg/storage"
	"objvault/pkg/types"

	"github.com/dustin/go-humanize"
)

// previewLimit 是 PrintObject 对文本 Blob 最多展示的字节数
const previewLimit = 512

// PrintObject 以人类可读的方式打印对象 (cat-file -p)
func (e *Exporter) PrintObject(ctx context.Context, hash types.Hash, w io.Writer) error {
	info, err := e.Inspect(ctx, hash)
	if err != nil {
		return err
	}

	switch info.Kind {
	case core.TypeTree:
		return e.printTree(ctx, hash, w)
	case core.TypeBlob:
		return e.printBlob(ctx, info, w)
	default:
		return fmt.Errorf("unknown object type: %s", info.Kind)
	}
}

func (e *Exporter) printTree(ctx context.Context, hash types.Hash, w io.Writer) error {
	records, err := e.ReadTree(ctx, hash)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Type: Tree (%d entries)\n\n", len(records))

	// 像 git ls-tree 一样对齐
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "TYPE\tHASH\tSIZE\tNAME\n")
	for _, rec := range records {
		kind, size := "?", "-"
		child, err := e.Inspect(ctx, rec.Digest.Hex())
		switch {
		case err == nil:
			kind = string(child.Kind)
			if child.Kind == core.TypeBlob {
				size = fmtSize(child.Size)
			}
		case errors.Is(err, storage.ErrNotFound):
			// 默认不写子树，这里只能显示摘要
		default:
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", kind, rec.Digest.Hex(), size, rec.Name)
	}
	return tw.Flush()
}

func (e *Exporter) printBlob(ctx context.Context, info *Info, w io.Writer) error {
	fmt.Fprintf(w, "Type: Blob\nSize: %s\n\n", fmtSize(info.Size))

	var head limitedBuffer
	head.limit = previewLimit
	if _, err := e.CatBlob(ctx, info.Hash, &head); err != nil {
		return err
	}
	text := head.buf
	// 截断处可能落在多字节字符中间
	for i := 0; i < utf8.UTFMax && info.Size > previewLimit && !utf8.Valid(text); i++ {
		text = text[:len(text)-1]
	}
	if !utf8.Valid(text) {
		fmt.Fprintf(w, "(binary data not shown, use 'ov cat-file blob %s > file' to save)\n", info.Hash)
		return nil
	}
	w.Write(text)
	if info.Size > previewLimit {
		fmt.Fprintf(w, "\n... (%s more)\n", fmtSize(info.Size-previewLimit))
	}
	return nil
}

// LsTree 只列出条目，不探测子对象
func (e *Exporter) LsTree(ctx context.Context, hash types.Hash, w io.Writer) error {
	records, err := e.ReadTree(ctx, hash)
	if err != nil {
		return err
	}
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\n", rec.Digest.Hex(), rec.Name)
	}
	return nil
}

// limitedBuffer 只保留前 limit 个字节，其余丢弃但不报错
type limitedBuffer struct {
	buf   []byte
	limit int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - len(b.buf); room > 0 {
		b.buf = append(b.buf, p[:min(room, len(p))]...)
	}
	return len(p), nil
}

func fmtSize(s uint64) string {
	return humanize.IBytes(s)
}
