package credential

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Cheap parameters keep the suite fast; the encoding is the same.
var testParams = Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(testParams)

	hash, err := h.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	ok, err := h.Verify(hash, "correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(hash, "correct horse battery stapler")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasher_SaltsDiffer(t *testing.T) {
	h := NewHasher(testParams)

	a, err := h.Hash("same-password-twice")
	require.NoError(t, err)
	b, err := h.Hash("same-password-twice")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHasher_VerifyUsesEncodedParams(t *testing.T) {
	hash, err := NewHasher(testParams).Hash("a-long-enough-password")
	require.NoError(t, err)

	ok, err := NewHasher(DefaultParams).Verify(hash, "a-long-enough-password")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasher_MalformedHash(t *testing.T) {
	h := NewHasher(testParams)

	for _, encoded := range []string{
		"",
		"plain-text",
		"$2a$10$abcdefghijklmnopqrstuv",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$abc",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$a2V5",
	} {
		_, err := h.Verify(encoded, "whatever")
		assert.ErrorIs(t, err, ErrMalformedHash, encoded)
	}
}
