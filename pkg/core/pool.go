package core

import (
	"sync"

	"objvault/pkg/types"
)

// BlobPool 是以摘要为 key 的 MemBlob 内容池
// 构造时先查池子，命中就返回已有实例，纯粹是为了省内存，
// 不要依赖它来判断对象身份
type BlobPool struct {
	mu    sync.Mutex
	blobs map[types.Digest]*MemBlob
}

// DefaultPool 是进程级的内容池，NewMemBlob 使用它
// 需要隔离 (例如每个仓库一个池) 时用 NewBlobPool
var DefaultPool = NewBlobPool()

func NewBlobPool() *BlobPool {
	return &BlobPool{blobs: make(map[types.Digest]*MemBlob)}
}

// Intern 返回内容为 content 的 MemBlob，相同摘要只保留一个实例
// 先算摘要查池，未命中才拷贝内容、分配新实例
func (p *BlobPool) Intern(content []byte) *MemBlob {
	h := NewHasher(TypeBlob, uint64(len(content)))
	h.Write(content)
	d := sumOf(h)

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.blobs[d]; ok {
		return existing
	}
	c := make([]byte, len(content))
	copy(c, content)
	b := &MemBlob{digest: d, content: c}
	p.blobs[d] = b
	return b
}

// Lookup 按摘要查找已入池的 Blob
func (p *BlobPool) Lookup(d types.Digest) (*MemBlob, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.blobs[d]
	return b, ok
}

// Len 返回池中实例数
func (p *BlobPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.blobs)
}

// Reset 清空池子，已经发出去的实例不受影响
func (p *BlobPool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blobs = make(map[types.Digest]*MemBlob)
}
