package s3

import (
	"context"
	"testing"

	"objvault/pkg/deflate"
	"objvault/pkg/types"

	"github.com/stretchr/testify/assert"
)

func TestNewAdapter_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := NewAdapter(ctx, Config{Region: "us-east-1"})
	assert.ErrorContains(t, err, "bucket is required")

	_, err = NewAdapter(ctx, Config{Region: "us-east-1", Bucket: "b", Compression: deflate.Level(99)})
	assert.ErrorContains(t, err, "invalid compression level")
}

func TestAdapter_ObjectKey(t *testing.T) {
	a := &Adapter{prefix: "objects/"}
	h := types.Hash("2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824")
	assert.Equal(t, "objects/"+h.String(), a.objectKey(h))

	bare := &Adapter{}
	assert.Equal(t, h.String(), bare.objectKey(h))
}
