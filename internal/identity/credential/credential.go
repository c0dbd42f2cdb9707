// Package credential implements the validation pipeline that turns untrusted
// params into a vetted change set for a user identity record: identifier
// normalization and uniqueness declaration, password validation and hashing,
// confirmation checking, and timing-safe re-verification of the current
// password before sensitive mutations.
//
// The pipeline is stateless: every call operates on its own changeset and
// reads configuration passed explicitly, so the same code serves multiple
// tenants with different policies concurrently. It performs no I/O; hashing
// and verification run through the configured Hasher and are the only
// potentially expensive calls. Callers that care about head-of-line blocking
// should run each validation on its own goroutine.
package credential

import (
	"reflect"
	"strings"

	"credgate/internal/identity/models"
	"credgate/internal/identity/password"
	"credgate/pkg/changeset"
	"credgate/pkg/emailaddr"
)

// Config resolves the pipeline's pluggable pieces per call. The zero value
// validates an email-identified record with default length bounds and the
// default Argon2id hash pair.
//
// Config is passed by value and never mutated; it is safe to share one
// instance across concurrent validations.
type Config struct {
	// IDField names the login identifier field. Defaults to "email", which
	// also switches IDFieldIsEmail on.
	IDField string
	// IDFieldIsEmail enables email-format validation of the identifier.
	IDFieldIsEmail bool
	// Password length bounds, inclusive. Zero means the package defaults
	// (8 and 4096).
	PasswordMinLength int
	PasswordMaxLength int
	// Hasher is the hash/verify pair. Both functions must come from the
	// same pair; when either is nil the default pair is used.
	Hasher password.Hasher
	// EmailValidator overrides the identifier format check. The returned
	// error's text is surfaced as the "reason" metadata. Defaults to
	// emailaddr.Validate.
	EmailValidator func(address string) error
}

func (c Config) withDefaults() Config {
	if c.IDField == "" {
		c.IDField = "email"
		c.IDFieldIsEmail = true
	}
	if c.PasswordMinLength == 0 {
		c.PasswordMinLength = password.DefaultMinLength
	}
	if c.PasswordMaxLength == 0 {
		c.PasswordMaxLength = password.DefaultMaxLength
	}
	if c.Hasher.Hash == nil || c.Hasher.Verify == nil {
		c.Hasher = password.Default()
	}
	if c.EmailValidator == nil {
		c.EmailValidator = emailaddr.Validate
	}
	return c
}

func (c Config) policy() password.Policy {
	return password.Policy{MinLength: c.PasswordMinLength, MaxLength: c.PasswordMaxLength}
}

// Begin wraps a bare record into a fresh changeset. Every validator below
// takes a changeset, so callers holding only a record start here.
func Begin(user *models.User) *changeset.Changeset {
	return changeset.New(user.Fields())
}

// ValidateUserID stages and validates the login identifier: casts the
// configured field, lower-cases textual values for case-insensitive
// uniqueness, checks email format when the field is an email, requires the
// field, and declares the uniqueness constraint whose enforcement belongs to
// the persistence collaborator.
func ValidateUserID(cs *changeset.Changeset, params map[string]any, cfg Config) *changeset.Changeset {
	cfg = cfg.withDefaults()
	field := cfg.IDField

	cs.Cast(params, field)
	cs.UpdateChange(field, func(v any) any {
		// Non-textual identifiers pass through unchanged.
		if s, ok := v.(string); ok {
			return strings.ToLower(s)
		}
		return v
	})

	if cfg.IDFieldIsEmail {
		cs.ValidateChange(field, func(v any) []changeset.Error {
			s, ok := v.(string)
			if !ok {
				return nil
			}
			err := cfg.EmailValidator(s)
			if err == nil {
				return nil
			}
			meta := map[string]any{"validation": "format"}
			if reason := err.Error(); reason != "" {
				meta["reason"] = reason
			}
			return []changeset.Error{{Message: "has invalid format", Meta: meta}}
		})
	}

	cs.ValidateRequired(field)
	cs.UniqueConstraint(field)
	return cs
}

// ValidatePassword runs the full password pipeline: confirmation, new
// password (requirement, length policy, hashing), and current-password
// re-verification. Each sub-step appends errors without aborting the
// others, so a single call surfaces every independent problem.
func ValidatePassword(cs *changeset.Changeset, params map[string]any, cfg Config) *changeset.Changeset {
	cfg = cfg.withDefaults()
	cs.Cast(params, "password")
	validateConfirmation(cs, params)
	validateNewPassword(cs, cfg)
	ValidateCurrentPassword(cs, params, cfg)
	return cs
}

// validateConfirmation accepts either the password_confirmation key or the
// deprecated confirm_password key. Confirmation is only enforced when a
// password change is staged; a stray confirmation param without a password
// is ignored. The deprecated key reports its error under the legacy field
// name and records a deprecation notice for the caller.
func validateConfirmation(cs *changeset.Changeset, params map[string]any) {
	confirmation, ok := params["password_confirmation"]
	legacy := false
	if !ok {
		confirmation, ok = params["confirm_password"]
		legacy = true
	}
	if !ok {
		return
	}
	if legacy {
		cs.AddDeprecation("confirm_password", "password_confirmation")
	}

	pw, staged := cs.GetChange("password")
	if !staged {
		return
	}
	if reflect.DeepEqual(confirmation, pw) {
		return
	}

	meta := map[string]any{"validation": "confirmation"}
	if legacy {
		cs.AddError("confirm_password", "not same as password", meta)
		return
	}
	cs.AddError("password_confirmation", "does not match confirmation", meta)
}

// validateNewPassword requires a password for records that have none yet,
// bounds-checks a staged password, and stages the computed hash. The
// unconditional password_hash requirement guards against a hash function
// signalling failure with an empty result. The raw password never survives
// Apply: a finalizer strips it from the outgoing change set.
func validateNewPassword(cs *changeset.Changeset, cfg Config) {
	if baseHash(cs) == "" {
		cs.ValidateRequired("password")
	}

	password.ValidateLength(cs, cfg.policy())

	if cs.Valid() {
		if v, ok := cs.GetChange("password"); ok {
			if s, ok := v.(string); ok {
				cs.PutChange("password_hash", cfg.Hasher.Hash(s))
			}
		}
		cs.ValidateRequired("password_hash")
	}

	cs.PrepareChanges(func(c *changeset.Changeset) {
		c.DeleteChange("password")
	})
}

// ValidateCurrentPassword re-verifies the record's current password before a
// sensitive mutation. Any stale transient current_password on the base
// record is reset first so repeated validation rounds on the same record
// cannot reuse it. Records without a stored hash have nothing to verify
// against and skip entirely. The transient field is stripped from the final
// change set in all cases.
func ValidateCurrentPassword(cs *changeset.Changeset, params map[string]any, cfg Config) *changeset.Changeset {
	cfg = cfg.withDefaults()

	cs.PutBase("current_password", "")
	cs.Cast(params, "current_password")
	cs.PrepareChanges(func(c *changeset.Changeset) {
		c.DeleteChange("current_password")
	})

	stored := baseHash(cs)
	if stored == "" {
		return cs
	}

	cs.ValidateRequired("current_password")

	if v, ok := cs.GetChange("current_password"); ok {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			if !verifyAgainst(s, stored, cfg) {
				cs.AddError("current_password", "is invalid", map[string]any{"validation": "verify_password"})
			}
		}
	}
	return cs
}

// VerifyPassword is the timing-attack-resistant verification gate, used both
// by the pipeline and standalone by login flows.
//
// When the record has no stored hash the configured hash function is still
// invoked once, on an empty string, and false is returned unconditionally:
// the cost of "no such password" must be indistinguishable from a failed
// real verification, or the call pattern would leak account existence.
func VerifyPassword(user *models.User, candidate string, cfg Config) bool {
	cfg = cfg.withDefaults()
	return verifyAgainst(candidate, user.PasswordHash, cfg)
}

func verifyAgainst(candidate, stored string, cfg Config) bool {
	if stored == "" {
		cfg.Hasher.Hash("")
		return false
	}
	return cfg.Hasher.Verify(candidate, stored)
}

func baseHash(cs *changeset.Changeset) string {
	s, _ := cs.Base("password_hash").(string)
	return s
}
