package core

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"objvault/pkg/types"

	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// 辅助工具
// -----------------------------------------------------------------------------

// expectedBlobDigest 按帧格式手工拼出 "blob" ++ u64be(len) ++ content 再哈希
// 故意不走 Header()，用来交叉验证
func expectedBlobDigest(content []byte) types.Digest {
	var framed bytes.Buffer
	framed.WriteString("blob")
	binary.Write(&framed, binary.BigEndian, uint64(len(content)))
	framed.Write(content)
	return types.Digest(sha256.Sum256(framed.Bytes()))
}

// writeTempFile 写一个临时文件并返回路径
func writeTempFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

// mustOpenFileBlob 打开 FileBlob，测试结束时自动 Close
func mustOpenFileBlob(t *testing.T, content []byte) *FileBlob {
	t.Helper()
	b, err := OpenFileBlob(writeTempFile(t, content))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func mustDigest(t *testing.T, obj Object, msgAndArgs ...any) types.Digest {
	t.Helper()
	d, err := obj.Digest()
	require.NoError(t, err, msgAndArgs...)
	return d
}

func mustBytes(t *testing.T, obj Object, msgAndArgs ...any) []byte {
	t.Helper()
	b, err := obj.Bytes()
	require.NoError(t, err, msgAndArgs...)
	return b
}
