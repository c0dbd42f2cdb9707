package emailaddr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Valid(t *testing.T) {
	valid := []string{
		"user@example.com",
		"first.last@example.com",
		"user+tag@example.co.uk",
		"!#$%&'*+-/=?^_`{|}~@example.com",
		"üñîçøðé@example.com",
		"user@üñîçøðé.com",
		`"quoted local"@example.com`,
		`"very@odd"@example.com`,
		"user@abc123.com",
		"u@" + strings.Repeat("a", 63) + ".com",
		strings.Repeat("a", 64) + "@example.com",
		"(comment)user@example.com",
		"user(comment)@example.com",
		"user@(comment)example.com",
	}
	for _, addr := range valid {
		assert.NoError(t, Validate(addr), "address %q", addr)
	}
}

func TestValidate_NoAtSign(t *testing.T) {
	// Any string without '@' has an empty local-part and must fail.
	for _, s := range []string{"", "plainstring", "missing.domain.com", "a b c"} {
		require.ErrorIs(t, Validate(s), ErrInvalidFormat, "input %q", s)
	}
}

func TestValidate_SplitsAtLastAt(t *testing.T) {
	// The domain is everything after the *last* '@'; the local-part keeps
	// earlier '@' characters but must then be quoted to pass the
	// character-class check.
	require.NoError(t, Validate(`"user@[last]"@example.com`))
	require.ErrorIs(t, Validate(`user@[last]@example.com`), ErrInvalidLocalChars)
}

func TestValidate_LocalPart(t *testing.T) {
	t.Run("rejects 65 octets", func(t *testing.T) {
		addr := strings.Repeat("a", 65) + "@example.com"
		require.ErrorIs(t, Validate(addr), ErrLocalPartTooLong)
	})

	t.Run("rejects consecutive dots", func(t *testing.T) {
		err := Validate("first..last@example.com")
		require.ErrorIs(t, err, ErrConsecutiveDots)
		// The historical reason spelling is load-bearing for callers that
		// match on the string.
		require.Equal(t, "consective dots in local-part", err.Error())
	})

	t.Run("rejects forbidden characters", func(t *testing.T) {
		require.ErrorIs(t, Validate(`first last@example.com`), ErrInvalidLocalChars)
		require.ErrorIs(t, Validate(`first,last@example.com`), ErrInvalidLocalChars)
	})

	t.Run("quoted token skips character checks", func(t *testing.T) {
		require.NoError(t, Validate(`"first last"@example.com`))
		require.NoError(t, Validate(`"first,last"@example.com`))
	})

	t.Run("strips anchored quoted span joined by dot", func(t *testing.T) {
		require.NoError(t, Validate(`"odd part".rest@example.com`))
		require.NoError(t, Validate(`rest."odd part"@example.com`))
	})

	t.Run("comment-only local part is invalid", func(t *testing.T) {
		require.ErrorIs(t, Validate("(comment)@example.com"), ErrInvalidLocalChars)
	})
}

func TestValidate_Domain(t *testing.T) {
	t.Run("rejects 256 octets", func(t *testing.T) {
		label := strings.Repeat("a", 63)
		domain := label + "." + label + "." + label + "." + label + ".com" // 260 octets
		require.ErrorIs(t, Validate("user@"+domain), ErrDomainTooLong)
	})

	t.Run("label length boundary", func(t *testing.T) {
		require.NoError(t, Validate("user@"+strings.Repeat("a", 63)+".com"))
		require.ErrorIs(t, Validate("user@"+strings.Repeat("a", 64)+".com"), ErrLabelTooLong)
	})

	t.Run("empty labels", func(t *testing.T) {
		require.ErrorIs(t, Validate("user@example..com"), ErrLabelTooShort)
		require.ErrorIs(t, Validate("user@example.com."), ErrLabelTooShort)
		require.ErrorIs(t, Validate("user@.example.com"), ErrLabelTooShort)
	})

	t.Run("hyphen placement", func(t *testing.T) {
		require.NoError(t, Validate("user@ex-ample.com"))
		require.ErrorIs(t, Validate("user@-example.com"), ErrLabelStartsHyphen)
		require.ErrorIs(t, Validate("user@example-.com"), ErrLabelEndsHyphen)
	})

	t.Run("label characters", func(t *testing.T) {
		require.ErrorIs(t, Validate("user@exam_ple.com"), ErrInvalidLabelChars)
		require.ErrorIs(t, Validate("user@exam ple.com"), ErrInvalidLabelChars)
	})

	t.Run("all-numeric tld", func(t *testing.T) {
		require.ErrorIs(t, Validate("user@example.123"), ErrNumericTLD)
		require.NoError(t, Validate("user@example.abc123"))
		require.NoError(t, Validate("user@123.abc"))
	})
}
