package core

import (
	"bytes"
	"crypto/rand"
	"errors"
	"io"
	"testing"

	"objvault/pkg/deflate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemBlob_DigestMatchesFraming(t *testing.T) {
	cases := map[string][]byte{
		"empty":  {},
		"hello":  []byte("hello world"),
		"binary": {0x00, 0xff, 0x0a, 0x00},
		"large":  bytes.Repeat([]byte{0xab}, 5000),
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			b := NewMemBlob(content)
			assert.Equal(t, expectedBlobDigest(content), mustDigest(t, b))

			framed := mustBytes(t, b)
			assert.Equal(t, SumFramed(framed), mustDigest(t, b))

			header, err := b.Header()
			require.NoError(t, err)
			assert.Equal(t, framed[:HeaderSize], header)

			size, err := b.Size()
			require.NoError(t, err)
			assert.Equal(t, int64(len(content)), size)
		})
	}
}

func TestMemBlob_Interning(t *testing.T) {
	a := NewMemBlob([]byte("same content"))
	b := NewMemBlob([]byte("same content"))
	c := NewMemBlob([]byte("other content"))

	assert.Same(t, a, b, "相同内容应该复用同一个实例")
	assert.NotSame(t, a, c)

	// 作用域独立的池子
	pool := NewBlobPool()
	p1 := pool.Intern([]byte("same content"))
	assert.NotSame(t, a, p1, "不同的池子互不共享")
	assert.Equal(t, mustDigest(t, a), mustDigest(t, p1))
	assert.Equal(t, 1, pool.Len())

	found, ok := pool.Lookup(mustDigest(t, p1))
	require.True(t, ok)
	assert.Same(t, p1, found)

	pool.Reset()
	assert.Equal(t, 0, pool.Len())
}

func TestMemBlob_Immutable(t *testing.T) {
	src := []byte("mutable source")
	b := NewBlobPool().Intern(src)
	src[0] = 'X'

	assert.Equal(t, "mutable source", string(b.Content()))

	out := b.Content()
	out[0] = 'Y'
	assert.Equal(t, "mutable source", string(b.Content()))
}

func TestFileBlob_DigestMatchesMemBlob(t *testing.T) {
	big := make([]byte, 10*HashChunkSize+123)
	_, err := rand.Read(big)
	require.NoError(t, err)

	cases := map[string][]byte{
		"empty":        {},
		"small":        []byte("hello world"),
		"exact-chunk":  bytes.Repeat([]byte{'x'}, HashChunkSize),
		"multi-chunks": big,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			fb := mustOpenFileBlob(t, content)
			mb := NewBlobPool().Intern(content)
			assert.Equal(t, mustDigest(t, mb), mustDigest(t, fb), "流式哈希与整块哈希必须一致")

			size, err := fb.Size()
			require.NoError(t, err)
			assert.Equal(t, int64(len(content)), size)
		})
	}
}

func TestFileBlob_DigestLeavesPositionAtEOF(t *testing.T) {
	content := []byte("position side effect")
	fb := NewFileBlob(bytes.NewReader(content))

	_, err := fb.Digest()
	require.NoError(t, err)

	pos, err := fb.src.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), pos)
}

func TestFileBlob_SizeRestoresPosition(t *testing.T) {
	r := bytes.NewReader([]byte("0123456789"))
	_, err := r.Seek(3, io.SeekStart)
	require.NoError(t, err)

	fb := NewFileBlob(r)
	size, err := fb.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)

	pos, err := r.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(3), pos)
}

type countingReader struct {
	*bytes.Reader
	reads int
}

func (c *countingReader) Read(p []byte) (int, error) {
	c.reads++
	return c.Reader.Read(p)
}

func TestFileBlob_DigestIsCached(t *testing.T) {
	r := &countingReader{Reader: bytes.NewReader([]byte("cached"))}
	fb := NewFileBlob(r)
	first := mustDigest(t, fb)
	reads := r.reads

	second := mustDigest(t, fb)
	assert.Equal(t, first, second)
	assert.Equal(t, reads, r.reads, "第二次调用不能重新读取数据源")
}

func TestFileBlob_BytesUnsupported(t *testing.T) {
	fb := mustOpenFileBlob(t, []byte("too big to buffer"))
	_, err := fb.Bytes()
	assert.ErrorIs(t, err, errors.ErrUnsupported)
}

func TestBlob_DumpRoundTrip(t *testing.T) {
	content := make([]byte, 3*deflate.ChunkSize+5)
	_, err := rand.Read(content)
	require.NoError(t, err)
	want := append(Header(TypeBlob, uint64(len(content))), content...)

	levels := []deflate.Level{deflate.Uncompressed, deflate.StoredLevel, deflate.DefaultLevel, deflate.BestCompression}
	for _, level := range levels {
		t.Run(level.String(), func(t *testing.T) {
			for _, b := range []Blob{NewBlobPool().Intern(content), mustOpenFileBlob(t, content)} {
				var out bytes.Buffer
				require.NoError(t, b.Dump(&out, level))

				got := out.Bytes()
				if level.Compressed() {
					var restored bytes.Buffer
					_, err := deflate.DecompressCopy(&restored, &out)
					require.NoError(t, err)
					got = restored.Bytes()
				}
				assert.True(t, bytes.Equal(want, got), "%T 落盘数据必须是完整的帧", b)
			}
		})
	}
}

type trackingCloser struct {
	*bytes.Reader
	closed int
}

func (c *trackingCloser) Close() error {
	c.closed++
	return nil
}

func TestFileBlob_CloseOwnsHandle(t *testing.T) {
	src := &trackingCloser{Reader: bytes.NewReader([]byte("owned"))}
	fb := NewFileBlob(src)

	require.NoError(t, fb.Close())
	require.NoError(t, fb.Close(), "Close 可以重复调用")
	assert.Equal(t, 1, src.closed)
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestFileBlob_DumpPropagatesIOError(t *testing.T) {
	fb := mustOpenFileBlob(t, []byte("payload"))
	err := fb.Dump(brokenWriter{}, deflate.Uncompressed)
	assert.ErrorIs(t, err, io.ErrClosedPipe)

	// 失败之后句柄仍然由 FileBlob 持有，可以正常 Close
	assert.NoError(t, fb.Close())
}

func TestOpenFileBlob_Missing(t *testing.T) {
	_, err := OpenFileBlob("/definitely/not/here")
	assert.Error(t, err)
}
