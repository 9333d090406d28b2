package types

import (
	"crypto/sha256"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		input Hash
		want  bool
	}{
		{
			name:  "Valid Hash (64 chars)",
			input: Hash(strings.Repeat("a", 64)),
			want:  true,
		},
		{
			name:  "Too Short",
			input: Hash("abc"),
			want:  false,
		},
		{
			name:  "Empty",
			input: Hash(""),
			want:  false,
		},
		{
			name:  "Too Long",
			input: Hash(strings.Repeat("a", 65)),
			want:  false,
		},
		{
			name:  "Uppercase",
			input: Hash(strings.Repeat("A", 64)),
			want:  false,
		},
		{
			name:  "Path Traversal",
			input: Hash("../" + strings.Repeat("./", 27) + "secret0"),
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.input.IsValid())
		})
	}
}

func TestHash_String(t *testing.T) {
	s := "aabbcc"
	h := Hash(s)
	assert.Equal(t, s, h.String())
	assert.False(t, h.IsZero())

	var zero Hash
	assert.True(t, zero.IsZero())
}

func TestHashPrefix_String(t *testing.T) {
	p := HashPrefix("aa")
	assert.Equal(t, "aa", p.String())
}

func TestDigest_HexRoundTrip(t *testing.T) {
	d := Digest(sha256.Sum256([]byte("hello")))

	h := d.Hex()
	assert.Equal(t, Hash("2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"), h)
	assert.Equal(t, h.String(), d.String())

	back, err := h.Digest()
	require.NoError(t, err)
	assert.Equal(t, d, back)
	assert.False(t, back.IsZero())
}

func TestDigest_Invalid(t *testing.T) {
	_, err := Hash("zz").Digest()
	assert.Error(t, err)

	_, err = Hash(strings.Repeat("g", 64)).Digest()
	assert.Error(t, err)

	_, err = DigestFromBytes([]byte{1, 2, 3})
	assert.Error(t, err)

	var zero Digest
	assert.True(t, zero.IsZero())
}

func TestDigest_BytesIsCopy(t *testing.T) {
	d := Digest(sha256.Sum256([]byte("x")))
	b := d.Bytes()
	b[0] ^= 0xff

	again, err := DigestFromBytes(d.Bytes())
	require.NoError(t, err)
	assert.Equal(t, d, again, "修改 Bytes() 的返回值不能影响原摘要")
}

func TestHashPrefix_IsValid(t *testing.T) {
	assert.True(t, HashPrefix("2cf24d").IsValid())
	assert.True(t, HashPrefix("").IsValid())
	assert.False(t, HashPrefix("../x").IsValid())
	assert.False(t, HashPrefix("2CF2").IsValid())
	assert.False(t, HashPrefix(strings.Repeat("a", 65)).IsValid())
}
