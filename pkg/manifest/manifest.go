// Package manifest 把一次 DumpTree 的结果 (写了哪些对象) 编码成确定性的 CBOR。
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"objvault/pkg/core"
	"objvault/pkg/types"

	"github.com/fxamacker/cbor/v2"
)

// 确定性 (Canonical) 编码选项：相同的 Manifest 永远得到相同的字节
var encOptions = cbor.EncOptions{
	// 强制 Map Key 排序
	Sort: cbor.SortCanonical,
	// 时间格式化为 Unix 整数，不生成 Tag 0/1
	Time:    cbor.TimeUnix,
	TimeTag: cbor.EncTagNone,
	// 禁止不定长编码
	IndefLength: cbor.IndefLengthForbidden,
}

var em, _ = encOptions.EncMode()

var decOptions = cbor.DecOptions{
	// 限制容器大小和嵌套深度，防止恶意构造的文件耗尽内存
	MaxArrayElements: 1 << 20,
	MaxMapPairs:      1 << 16,
	MaxNestedLevels:  16,

	IndefLength: cbor.IndefLengthForbidden,
	DupMapKey:   cbor.DupMapKeyEnforcedAPF,
	TimeTag:     cbor.DecTagIgnored,
}

var dm, _ = decOptions.DecMode()

// Entry 是 Manifest 中的一个对象
type Entry struct {
	Hash types.Hash      `cbor:"h"`
	Kind core.ObjectType `cbor:"k"`
	Size int64           `cbor:"s"` // payload 长度
}

// Manifest 记录一次落盘：根对象和所有写入的对象
type Manifest struct {
	Version   int        `cbor:"v"`
	Root      types.Hash `cbor:"r"`
	CreatedAt int64      `cbor:"ts"` // Unix 时间戳
	Objects   []Entry    `cbor:"o"`
}

const currentVersion = 1

// New 创建一个 Manifest
func New(root types.Hash, objects []Entry) *Manifest {
	return &Manifest{
		Version:   currentVersion,
		Root:      root,
		CreatedAt: time.Now().Unix(),
		Objects:   objects,
	}
}

// Encode 使用确定性编码
func Encode(m *Manifest) ([]byte, error) {
	data, err := em.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return data, nil
}

// Decode 严格解码
func Decode(data []byte) (*Manifest, error) {
	var m Manifest
	if err := dm.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	if m.Version != currentVersion {
		return nil, fmt.Errorf("unsupported manifest version %d", m.Version)
	}
	return &m, nil
}

// Path 返回 Manifest 在目录中的位置: <dir>/<root>.cbor
func Path(dir string, root types.Hash) string {
	return filepath.Join(dir, root.String()+".cbor")
}

// Write 编码并写入 <dir>/<root>.cbor
func Write(dir string, m *Manifest) (string, error) {
	data, err := Encode(m)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := Path(dir, m.Root)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// Read 读取并解码
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}
