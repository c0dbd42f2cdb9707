package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credgate/pkg/changeset"
)

// fastArgon2 keeps hashing cheap in tests while staying above argon2's
// parameter floor.
func fastArgon2() Hasher {
	return Argon2(Argon2Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16})
}

func TestArgon2RoundTrip(t *testing.T) {
	h := fastArgon2()

	hash := h.Hash("correct horse battery staple")
	require.NotEmpty(t, hash)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	assert.True(t, h.Verify("correct horse battery staple", hash))
	assert.False(t, h.Verify("wrong password", hash))
}

func TestArgon2HashesAreSalted(t *testing.T) {
	h := fastArgon2()
	a := h.Hash("secret123")
	b := h.Hash("secret123")
	require.NotEmpty(t, a)
	require.NotEmpty(t, b)
	assert.NotEqual(t, a, b)
	assert.True(t, h.Verify("secret123", a))
	assert.True(t, h.Verify("secret123", b))
}

func TestArgon2EmptyInputIsSafe(t *testing.T) {
	// The verification gate hashes "" on purpose; the pair must not fail.
	h := fastArgon2()
	hash := h.Hash("")
	require.NotEmpty(t, hash)
	assert.True(t, h.Verify("", hash))
}

func TestArgon2VerifyRejectsGarbage(t *testing.T) {
	h := fastArgon2()
	for _, encoded := range []string{
		"",
		"not-a-hash",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$AAAA",
		"$argon2id$v=19$bogus$AAAA$AAAA",
		"$scrypt$v=19$m=8192,t=1,p=1$AAAA$AAAA",
	} {
		assert.False(t, h.Verify("whatever", encoded), "encoded %q", encoded)
	}
}

func TestBcryptPair(t *testing.T) {
	h := Bcrypt(bcryptMinCostForTests)

	hash := h.Hash("secret123")
	require.NotEmpty(t, hash)
	assert.True(t, h.Verify("secret123", hash))
	assert.False(t, h.Verify("other", hash))

	// Over bcrypt's 72-byte limit the pair signals failure via "".
	assert.Empty(t, h.Hash(strings.Repeat("a", 100)))
}

const bcryptMinCostForTests = 4

func TestValidateLength(t *testing.T) {
	policy := Policy{MinLength: 8, MaxLength: 16}

	stage := func(pw any) *changeset.Changeset {
		return changeset.New(nil).Cast(map[string]any{"password": pw}, "password")
	}

	t.Run("boundaries are inclusive", func(t *testing.T) {
		for _, pw := range []string{"12345678", "1234567890123456"} {
			cs := stage(pw)
			ValidateLength(cs, policy)
			assert.True(t, cs.Valid(), "password %q", pw)
		}
	})

	t.Run("below minimum", func(t *testing.T) {
		cs := stage("1234567")
		ValidateLength(cs, policy)
		require.False(t, cs.Valid())
		err := cs.Errors()[0]
		assert.Equal(t, "password", err.Field)
		assert.Equal(t, "should be at least 8 character(s)", err.Message)
		assert.Equal(t, "length", err.Meta["validation"])
	})

	t.Run("above maximum", func(t *testing.T) {
		cs := stage(strings.Repeat("a", 17))
		ValidateLength(cs, policy)
		require.False(t, cs.Valid())
		assert.Equal(t, "should be at most 16 character(s)", cs.Errors()[0].Message)
	})

	t.Run("no staged password is a no-op", func(t *testing.T) {
		cs := changeset.New(map[string]any{"password": "short"})
		ValidateLength(cs, policy)
		assert.True(t, cs.Valid())
	})

	t.Run("zero bounds use defaults", func(t *testing.T) {
		cs := stage("1234567")
		ValidateLength(cs, Policy{})
		require.False(t, cs.Valid())
		assert.Equal(t, "should be at least 8 character(s)", cs.Errors()[0].Message)
	})
}
