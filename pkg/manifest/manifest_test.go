package manifest

import (
	"testing"

	"objvault/pkg/core"
	"objvault/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleManifest() *Manifest {
	blob := core.NewMemBlob([]byte("manifest blob"))
	tree := core.NewTree()
	tree.Add("f", blob)
	bh, _ := core.HashOf(blob)
	th, _ := core.HashOf(tree)

	m := New(th, []Entry{
		{Hash: bh, Kind: core.TypeBlob, Size: int64(len("manifest blob"))},
		{Hash: th, Kind: core.TypeTree, Size: 53},
	})
	m.CreatedAt = 1_700_000_000
	return m
}

func TestEncode_Deterministic(t *testing.T) {
	a, err := Encode(sampleManifest())
	require.NoError(t, err)
	b, err := Encode(sampleManifest())
	require.NoError(t, err)
	assert.Equal(t, a, b, "相同的 Manifest 必须编码成相同的字节")
}

func TestWriteRead(t *testing.T) {
	dir := t.TempDir()
	m := sampleManifest()

	path, err := Write(dir, m)
	require.NoError(t, err)
	assert.Equal(t, Path(dir, m.Root), path)

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestDecode_Rejects(t *testing.T) {
	_, err := Decode([]byte{0xff})
	assert.Error(t, err)

	m := sampleManifest()
	m.Version = 99
	data, err := Encode(m)
	require.NoError(t, err)
	_, err = Decode(data)
	assert.ErrorContains(t, err, "unsupported manifest version")

	_, err = Read(Path(t.TempDir(), types.Hash("missing")))
	assert.Error(t, err)
}
