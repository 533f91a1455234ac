package hashutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/recrawler/pkg/hashutil"
)

func TestHashBytes_SHA256(t *testing.T) {
	got, err := hashutil.HashBytes([]byte("hello"), hashutil.HashAlgoSHA256)
	require.NoError(t, err)
	assert.Len(t, got, 64)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", got)
}

func TestHashBytes_BLAKE3(t *testing.T) {
	got, err := hashutil.HashBytes([]byte("hello"), hashutil.HashAlgoBLAKE3)
	require.NoError(t, err)
	assert.Len(t, got, 64)

	again, err := hashutil.HashBytes([]byte("hello"), hashutil.HashAlgoBLAKE3)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestHashBytes_UnsupportedAlgorithm(t *testing.T) {
	_, err := hashutil.HashBytes([]byte("hello"), "md5")
	require.Error(t, err)
}

func TestHash64_DeterministicAndDistinct(t *testing.T) {
	a := hashutil.Hash64([]byte("https://example.com/a"))
	b := hashutil.Hash64([]byte("https://example.com/b"))

	assert.Equal(t, a, hashutil.Hash64([]byte("https://example.com/a")))
	assert.NotEqual(t, a, b)
}
