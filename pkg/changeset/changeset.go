// Package changeset implements a staged-change abstraction for validating
// untrusted input against a record before anything is persisted.
//
// A Changeset wraps a snapshot of the record's fields, a map of staged
// changes, and an ordered list of accumulated errors. Validators append
// errors instead of aborting, so one validation round surfaces every
// independent problem at once. Once an error has been added the changeset
// stays invalid for the rest of its lifetime; later steps may still run but
// can never clear earlier errors.
//
// Changesets are created fresh per validation call and are not safe for
// concurrent use. Callers commit the staged changes with Apply, which runs
// registered finalizers (used to strip transient fields such as raw
// passwords) and refuses to produce a change set when any error accumulated.
package changeset

import (
	"errors"
	"fmt"
	"strings"
)

// Error is a single accumulated validation failure.
type Error struct {
	Field   string
	Message string
	Meta    map[string]any
}

func (e Error) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Constraint declares an intent that must be enforced by the persistence
// layer (e.g. a database unique index). The changeset only records the
// declaration; ConstraintError translates a persistence conflict back into
// an accumulated error.
type Constraint struct {
	Field   string
	Kind    string
	Message string
}

// Deprecation is a notice about a legacy input shape. It is surfaced to the
// caller separately from validation errors and never blocks a commit.
type Deprecation struct {
	Param       string
	ReplaceWith string
}

func (d Deprecation) String() string {
	return fmt.Sprintf("param %q is deprecated, use %q instead", d.Param, d.ReplaceWith)
}

// ErrInvalid marks an Apply attempt on a changeset with accumulated errors.
var ErrInvalid = errors.New("changeset is invalid")

// InvalidError carries the accumulated errors of a failed Apply.
type InvalidError struct {
	Errors []Error
}

func (e *InvalidError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return "changeset is invalid: " + strings.Join(msgs, "; ")
}

func (e *InvalidError) Unwrap() error { return ErrInvalid }

// Changeset tracks staged changes and accumulated errors for one validation
// round over a single record.
type Changeset struct {
	base         map[string]any
	changes      map[string]any
	errs         []Error
	valid        bool
	constraints  []Constraint
	deprecations []Deprecation
	finalizers   []func(*Changeset)
	finalized    bool
}

// New creates a fresh changeset over a snapshot of record fields. The base
// map is copied; mutating the caller's map afterwards has no effect.
func New(base map[string]any) *Changeset {
	copied := make(map[string]any, len(base))
	for k, v := range base {
		copied[k] = v
	}
	return &Changeset{
		base:    copied,
		changes: make(map[string]any),
		valid:   true,
	}
}

// Valid reports whether no error has accumulated.
func (c *Changeset) Valid() bool { return c.valid }

// Errors returns the accumulated errors in insertion order.
func (c *Changeset) Errors() []Error { return c.errs }

// Cast stages the whitelisted params as changes. Input keys outside the
// whitelist are ignored, which prevents mass-assignment of unintended
// fields.
func (c *Changeset) Cast(params map[string]any, allowed ...string) *Changeset {
	for _, field := range allowed {
		if v, ok := params[field]; ok {
			c.changes[field] = v
		}
	}
	return c
}

// GetChange returns the staged value for field, if any.
func (c *Changeset) GetChange(field string) (any, bool) {
	v, ok := c.changes[field]
	return v, ok
}

// PutChange stages a value directly, bypassing the cast whitelist.
func (c *Changeset) PutChange(field string, value any) *Changeset {
	c.changes[field] = value
	return c
}

// DeleteChange removes a staged change. Typically used from finalizers to
// strip transient fields before commit.
func (c *Changeset) DeleteChange(field string) *Changeset {
	delete(c.changes, field)
	return c
}

// UpdateChange transforms an already-staged value in place. It is a no-op
// when the field has no staged change.
func (c *Changeset) UpdateChange(field string, fn func(any) any) *Changeset {
	if v, ok := c.changes[field]; ok {
		c.changes[field] = fn(v)
	}
	return c
}

// Field returns the effective value for field: the staged change when
// present, otherwise the base snapshot value.
func (c *Changeset) Field(field string) any {
	if v, ok := c.changes[field]; ok {
		return v
	}
	return c.base[field]
}

// Base returns the base snapshot value for field.
func (c *Changeset) Base(field string) any {
	return c.base[field]
}

// PutBase overwrites a base snapshot value. Used to reset transient record
// state (e.g. a previously staged current password) before re-validation.
func (c *Changeset) PutBase(field string, value any) *Changeset {
	c.base[field] = value
	return c
}

// AddError appends an error and permanently invalidates the changeset.
func (c *Changeset) AddError(field, message string, meta map[string]any) *Changeset {
	c.errs = append(c.errs, Error{Field: field, Message: message, Meta: meta})
	c.valid = false
	return c
}

// ValidateRequired appends a required error for every listed field that is
// neither staged with a non-blank value nor non-blank in the base snapshot.
func (c *Changeset) ValidateRequired(fields ...string) *Changeset {
	for _, field := range fields {
		if v, ok := c.changes[field]; ok && !isBlank(v) {
			continue
		}
		if !isBlank(c.base[field]) {
			continue
		}
		c.AddError(field, "can't be blank", map[string]any{"validation": "required"})
	}
	return c
}

// ValidateChange runs a custom rule only when field has a staged change,
// appending any returned errors.
func (c *Changeset) ValidateChange(field string, fn func(value any) []Error) *Changeset {
	v, ok := c.changes[field]
	if !ok {
		return c
	}
	for _, err := range fn(v) {
		if err.Field == "" {
			err.Field = field
		}
		c.errs = append(c.errs, err)
		c.valid = false
	}
	return c
}

// PrepareChanges registers a finalizer that runs exactly once, immediately
// before Apply hands the change set to the caller. Finalizers never run for
// an invalid changeset.
func (c *Changeset) PrepareChanges(fn func(*Changeset)) *Changeset {
	c.finalizers = append(c.finalizers, fn)
	return c
}

// UniqueConstraint declares that field must be unique. Enforcement is
// delegated to the persistence layer.
func (c *Changeset) UniqueConstraint(field string) *Changeset {
	c.constraints = append(c.constraints, Constraint{
		Field:   field,
		Kind:    "unique",
		Message: "has already been taken",
	})
	return c
}

// Constraints returns the declared constraints.
func (c *Changeset) Constraints() []Constraint {
	return c.constraints
}

// ConstraintError translates a persistence-layer conflict back into an
// accumulated error on the first declared constraint of the given kind. It
// reports whether such a constraint was declared.
func (c *Changeset) ConstraintError(kind string) bool {
	for _, con := range c.constraints {
		if con.Kind == kind {
			c.AddError(con.Field, con.Message, map[string]any{"constraint": con.Kind})
			return true
		}
	}
	return false
}

// AddDeprecation records a legacy input-shape notice for the caller.
func (c *Changeset) AddDeprecation(param, replaceWith string) *Changeset {
	c.deprecations = append(c.deprecations, Deprecation{Param: param, ReplaceWith: replaceWith})
	return c
}

// Deprecations returns recorded deprecation notices.
func (c *Changeset) Deprecations() []Deprecation {
	return c.deprecations
}

// Apply commits the changeset: it runs the registered finalizers (once, even
// across repeated Apply calls) and returns a copy of the staged changes.
// When any error accumulated it returns an *InvalidError matching ErrInvalid
// and runs no finalizers, so transient fields are only ever stripped from
// change sets that are actually going to be persisted.
func (c *Changeset) Apply() (map[string]any, error) {
	if !c.valid {
		return nil, &InvalidError{Errors: c.errs}
	}
	if !c.finalized {
		c.finalized = true
		for _, fn := range c.finalizers {
			fn(c)
		}
	}
	out := make(map[string]any, len(c.changes))
	for k, v := range c.changes {
		out[k] = v
	}
	return out, nil
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}
