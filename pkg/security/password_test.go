package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func testHasher() *Hasher {
	return NewHasher(config.PasswordConfig{
		ArgonMemoryKB:    64,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	})
}

func TestHashAndVerify(t *testing.T) {
	h := testHasher()
	encoded, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=64,t=1,p=1$"))

	ok, err := h.Verify("correct horse", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("battery staple", encoded)
	require.NoError(t, err)
	assert.False(t, ok)

	again, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, encoded, again, "salts differ per hash")
}

func TestVerifyUsesParamsFromHash(t *testing.T) {
	encoded, err := testHasher().Hash("pw")
	require.NoError(t, err)

	stronger := NewHasher(config.PasswordConfig{ArgonMemoryKB: 128, ArgonTime: 2, ArgonParallelism: 2})
	ok, err := stronger.Verify("pw", encoded)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRejectsMalformedHashes(t *testing.T) {
	h := testHasher()
	for _, encoded := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=64,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=64,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=64,t=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=64,t=1,p=1$!!$a2V5",
	} {
		_, err := h.Verify("pw", encoded)
		assert.ErrorIs(t, err, ErrInvalidHash, encoded)
	}
}

func TestNeedsRehash(t *testing.T) {
	h := testHasher()
	encoded, err := h.Hash("pw")
	require.NoError(t, err)
	assert.False(t, h.NeedsRehash(encoded))

	stronger := NewHasher(config.PasswordConfig{ArgonMemoryKB: 128, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32})
	assert.True(t, stronger.NeedsRehash(encoded))
	assert.True(t, h.NeedsRehash("not-a-hash"))
}

func TestHashRejectsEmptyPassword(t *testing.T) {
	_, err := testHasher().Hash("")
	assert.Error(t, err)
}

func TestNewHasherClampsParams(t *testing.T) {
	h := NewHasher(config.PasswordConfig{})
	assert.Equal(t, uint32(8), h.params.Memory)
	assert.Equal(t, uint32(1), h.params.Time)
	assert.Equal(t, uint8(1), h.params.Parallelism)
	assert.Equal(t, uint32(16), h.params.KeyLen)
}
