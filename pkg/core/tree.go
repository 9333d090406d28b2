package core

import (
	"encoding/binary"
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"

	"objvault/pkg/deflate"
	"objvault/pkg/types"
)

// Tree 是 名字 -> 子对象 (Blob 或子 Tree) 的集合
//
// 序列化前会按名字 (UTF-8 字节序) 排序，所以相同的 名字->摘要 映射
// 无论插入顺序如何都得到相同的字节和摘要。
//
// 注意：
//   - Add/Discard 会清掉自身的摘要缓存，但修改已经被哈希过的子树不会
//     通知父节点，父节点的缓存会变旧。哈希之后请把整棵树当作只读。
//   - API 不阻止环；带环的树调用 Bytes/Digest/Walk 是未定义行为。
//   - 不是并发安全的。
type Tree struct {
	names   []string
	entries map[string]Object

	digest    types.Digest
	hasDigest bool
}

// TreeEntry 是 Tree 当前顺序下的一个条目
type TreeEntry struct {
	Name   string
	Object Object
}

func NewTree() *Tree {
	return &Tree{entries: make(map[string]Object)}
}

func (t *Tree) Type() ObjectType { return TypeTree }

// Add 给对象命名并放入树中，同名条目直接覆盖 (后写的赢)
func (t *Tree) Add(name string, obj Object) {
	if _, exists := t.entries[name]; !exists {
		t.names = append(t.names, name)
	}
	t.entries[name] = obj
	t.hasDigest = false
}

// Discard 从树中移除对象
//
// ident 是 string 时，删除该名字的条目，不存在则返回 ErrEntryNotFound (树不变)；
// ident 是 Object 时，删除所有值为该对象 (按实例身份比较) 的条目，
// 不报告是否真的删除了什么；其他类型返回 ErrInvalidIdent。
func (t *Tree) Discard(ident any) error {
	switch v := ident.(type) {
	case string:
		if _, ok := t.entries[v]; !ok {
			return fmt.Errorf("%w: %q", ErrEntryNotFound, v)
		}
		delete(t.entries, v)
		t.names = slices.DeleteFunc(t.names, func(n string) bool { return n == v })
	case Object:
		t.names = slices.DeleteFunc(t.names, func(n string) bool {
			if t.entries[n] == v {
				delete(t.entries, n)
				return true
			}
			return false
		})
	default:
		return fmt.Errorf("%w: %T", ErrInvalidIdent, ident)
	}
	t.hasDigest = false
	return nil
}

// Sort 按名字排序，序列化前会自动调用
func (t *Tree) Sort() {
	slices.SortFunc(t.names, strings.Compare)
}

// Entries 按当前顺序返回所有条目
func (t *Tree) Entries() []TreeEntry {
	out := make([]TreeEntry, 0, len(t.names))
	for _, n := range t.names {
		out = append(out, TreeEntry{Name: n, Object: t.entries[n]})
	}
	return out
}

// Get 按名字取子对象
func (t *Tree) Get(name string) (Object, bool) {
	obj, ok := t.entries[name]
	return obj, ok
}

func (t *Tree) Len() int { return len(t.names) }

// Walk 深度优先地遍历所有层级的 Blob (Tree 本身不会出现在序列里)
// 每次调用都重新开始；子树按它们当前的条目顺序展开
func (t *Tree) Walk() iter.Seq[Blob] {
	return func(yield func(Blob) bool) {
		t.walk(yield)
	}
}

func (t *Tree) walk(yield func(Blob) bool) bool {
	for _, n := range t.names {
		switch v := t.entries[n].(type) {
		case Blob:
			if !yield(v) {
				return false
			}
		case *Tree:
			if !v.walk(yield) {
				return false
			}
		}
	}
	return true
}

// Bytes 返回帧数据，副作用：排序
// "tree" ++ uint64(len(body)) ++ body
// body = concat("\n" ++ uint64(len(name)) ++ name ++ rawChildDigest)
func (t *Tree) Bytes() ([]byte, error) {
	t.Sort()

	var body []byte
	var lenBuf [8]byte
	for _, n := range t.names {
		d, err := t.entries[n].Digest()
		if err != nil {
			return nil, err
		}
		body = append(body, '\n')
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(n)))
		body = append(body, lenBuf[:]...)
		body = append(body, n...)
		body = append(body, d[:]...)
	}

	framed := Header(TypeTree, uint64(len(body)))
	return append(framed, body...), nil
}

func (t *Tree) Digest() (types.Digest, error) {
	if t.hasDigest {
		return t.digest, nil
	}
	b, err := t.Bytes()
	if err != nil {
		return types.Digest{}, err
	}
	t.digest = SumFramed(b)
	t.hasDigest = true
	return t.digest, nil
}

func (t *Tree) Dump(w io.Writer, level deflate.Level) error {
	b, err := t.Bytes()
	if err != nil {
		return err
	}
	return dumpFramed(w, b, level)
}

func (t *Tree) String() string {
	parts := make([]string, 0, len(t.names))
	for _, n := range t.names {
		parts = append(parts, fmt.Sprintf("%s: %v", n, t.entries[n]))
	}
	return "<tree " + strings.Join(parts, ", ") + ">"
}

// -----------------------------------------------------------------------------
// 读回 (Decode)
// -----------------------------------------------------------------------------

// TreeRecord 是从存储里读回的 Tree 条目：只有名字和子对象摘要
type TreeRecord struct {
	Name   string
	Digest types.Digest
}

// DecodeTree 解析 Tree 的 payload (不含 12 字节帧头)
func DecodeTree(body []byte) ([]TreeRecord, error) {
	var records []TreeRecord
	for off := 0; off < len(body); {
		if body[off] != '\n' {
			return nil, fmt.Errorf("%w: expected entry separator at offset %d", ErrMalformed, off)
		}
		off++
		if len(body)-off < 8 {
			return nil, fmt.Errorf("%w: truncated name length at offset %d", ErrMalformed, off)
		}
		nameLen := binary.BigEndian.Uint64(body[off : off+8])
		off += 8
		// 先确认还放得下摘要，再比较名字长度，避免 nameLen 溢出
		rest := len(body) - off
		if rest < types.DigestSize || nameLen > uint64(rest-types.DigestSize) {
			return nil, fmt.Errorf("%w: truncated entry at offset %d", ErrMalformed, off)
		}
		name := string(body[off : off+int(nameLen)])
		off += int(nameLen)
		var d types.Digest
		copy(d[:], body[off:off+types.DigestSize])
		off += types.DigestSize
		records = append(records, TreeRecord{Name: name, Digest: d})
	}
	return records, nil
}
