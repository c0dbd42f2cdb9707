// Package password holds the cryptographic boundary of the credential
// pipeline: pluggable hash/verify function pairs and the length policy.
//
// Hash functions follow a narrow contract so the pipeline stays total: they
// must never panic for any input (including the empty string, which the
// verification gate hashes deliberately) and signal failure by returning an
// empty string. The pipeline converts an empty hash into a visible
// validation error instead of propagating a panic.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"credgate/pkg/changeset"
)

// Default length bounds, applied when a Policy leaves them zero. The max
// bound exists to cap hashing cost on attacker-supplied input.
const (
	DefaultMinLength = 8
	DefaultMaxLength = 4096
)

// Hasher is a pluggable hash/verify pair resolved from configuration.
type Hasher struct {
	// Hash returns the encoded hash for a password, or "" on failure.
	Hash func(password string) string
	// Verify reports whether password matches the encoded hash.
	Verify func(password, hash string) bool
}

// Policy bounds password length per call site. Different record types may
// share the pipeline with different bounds, so these are not global.
type Policy struct {
	MinLength int
	MaxLength int
}

// WithDefaults fills zero bounds with the documented defaults.
func (p Policy) WithDefaults() Policy {
	if p.MinLength == 0 {
		p.MinLength = DefaultMinLength
	}
	if p.MaxLength == 0 {
		p.MaxLength = DefaultMaxLength
	}
	return p
}

// ValidateLength bounds-checks a staged password change, inclusive on both
// ends. It is a no-op when no password change is staged.
func ValidateLength(cs *changeset.Changeset, p Policy) {
	p = p.WithDefaults()
	cs.ValidateChange("password", func(value any) []changeset.Error {
		s, ok := value.(string)
		if !ok {
			return nil
		}
		length := utf8.RuneCountInString(s)
		switch {
		case length < p.MinLength:
			return []changeset.Error{{
				Message: fmt.Sprintf("should be at least %d character(s)", p.MinLength),
				Meta:    map[string]any{"validation": "length", "kind": "min", "count": p.MinLength},
			}}
		case length > p.MaxLength:
			return []changeset.Error{{
				Message: fmt.Sprintf("should be at most %d character(s)", p.MaxLength),
				Meta:    map[string]any{"validation": "length", "kind": "max", "count": p.MaxLength},
			}}
		}
		return nil
	})
}

// Argon2Params configure the Argon2id hasher.
type Argon2Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params returns the deployment defaults.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Time:        1,
		Parallelism: 4,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Default returns the documented default pair: Argon2id with PHC-encoded
// output. Argon2 accepts inputs of any length, so the pair stays within the
// contract for the full configurable length range.
func Default() Hasher {
	return Argon2(DefaultArgon2Params())
}

// Argon2 builds an Argon2id hash/verify pair with the given parameters.
// Zero-value fields fall back to the defaults.
func Argon2(params Argon2Params) Hasher {
	def := DefaultArgon2Params()
	if params.Memory == 0 {
		params.Memory = def.Memory
	}
	if params.Time == 0 {
		params.Time = def.Time
	}
	if params.Parallelism == 0 {
		params.Parallelism = def.Parallelism
	}
	if params.SaltLength == 0 {
		params.SaltLength = def.SaltLength
	}
	if params.KeyLength == 0 {
		params.KeyLength = def.KeyLength
	}

	return Hasher{
		Hash: func(password string) string {
			salt := make([]byte, params.SaltLength)
			if _, err := io.ReadFull(rand.Reader, salt); err != nil {
				return ""
			}
			key := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Parallelism, params.KeyLength)
			return fmt.Sprintf(
				"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
				argon2.Version,
				params.Memory,
				params.Time,
				params.Parallelism,
				base64.RawStdEncoding.EncodeToString(salt),
				base64.RawStdEncoding.EncodeToString(key),
			)
		},
		Verify: verifyArgon2,
	}
}

func verifyArgon2(password, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var memory, time uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &parallelism); err != nil {
		return false
	}
	if memory == 0 || time == 0 || parallelism == 0 {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(computed, key) == 1
}

// Bcrypt builds a bcrypt hash/verify pair. Note bcrypt rejects inputs over
// 72 bytes; deployments using it should set Policy.MaxLength accordingly.
func Bcrypt(cost int) Hasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return Hasher{
		Hash: func(password string) string {
			hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
			if err != nil {
				return ""
			}
			return string(hashed)
		},
		Verify: func(password, hash string) bool {
			return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
		},
	}
}
