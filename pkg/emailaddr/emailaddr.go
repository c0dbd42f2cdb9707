// Package emailaddr validates email addresses against an RFC 3696 influenced
// grammar, hand-written with no external grammar engine.
//
// The grammar is deliberately permissive where RFC 3696 is: local-parts may
// contain '@' (the address splits at the last occurrence), Unicode letters and
// marks are accepted in both the local-part and DNS labels, and a fully quoted
// local-part skips character-class checks entirely.
//
// Comment spans ("(...)"") are stripped only when anchored at the very start
// or end of the segment, not folded out of interior positions. That matches
// the historical behavior of the validation this package descends from and is
// kept on purpose.
package emailaddr

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Validation failure reasons. The error text is the caller-visible reason
// string and is part of the package's compatibility surface, including the
// historical spelling of ErrConsecutiveDots.
var (
	ErrInvalidFormat     = errors.New("invalid format")
	ErrLocalPartTooLong  = errors.New("local-part too long")
	ErrDomainTooLong     = errors.New("domain too long")
	ErrConsecutiveDots   = errors.New("consective dots in local-part")
	ErrInvalidLocalChars = errors.New("invalid characters in local-part")
	ErrLabelTooShort     = errors.New("dns label is too short")
	ErrLabelTooLong      = errors.New("dns label too long")
	ErrLabelStartsHyphen = errors.New("dns label begins with hyphen")
	ErrLabelEndsHyphen   = errors.New("dns label ends with hyphen")
	ErrInvalidLabelChars = errors.New("invalid characters in dns label")
	ErrNumericTLD        = errors.New("tld cannot be all-numeric")
)

const (
	maxLocalPartOctets = 64
	maxDomainOctets    = 255
	maxLabelRunes      = 63
)

var (
	quotedLocalPart = regexp.MustCompile(`^"[^"]+"$`)
	// Comments are removed only when anchored to the start or end of the
	// segment. Interior and nested comments are not folded.
	anchoredComment = regexp.MustCompile(`^\(.*\)|\(.*\)$`)
	// Quoted spans inside an otherwise unquoted local-part are removed
	// together with their joining dot.
	anchoredQuoted = regexp.MustCompile(`^".*"\.|\.".*"$`)
)

// Validate reports whether address is a syntactically valid email address.
// It returns nil on success, or one of this package's reason errors.
//
// The address splits at the last '@': everything after it is the domain,
// everything before it (which may itself contain '@') is the local-part. An
// address with no '@' therefore has an empty local-part and fails with
// ErrInvalidFormat.
func Validate(address string) error {
	localPart, domain := splitAtLastAt(address)

	switch {
	case len(localPart) > maxLocalPartOctets:
		return ErrLocalPartTooLong
	case len(domain) > maxDomainOctets:
		return ErrDomainTooLong
	case localPart == "":
		return ErrInvalidFormat
	}

	// A local-part that is entirely one quoted token is exempt from
	// character-class checks.
	if !quotedLocalPart.MatchString(localPart) {
		if err := validateUnquotedLocalPart(localPart); err != nil {
			return err
		}
	}

	return validateDomain(domain)
}

func splitAtLastAt(address string) (localPart, domain string) {
	idx := strings.LastIndexByte(address, '@')
	if idx < 0 {
		return "", address
	}
	return address[:idx], address[idx+1:]
}

func validateUnquotedLocalPart(localPart string) error {
	sanitized := anchoredComment.ReplaceAllString(localPart, "")
	sanitized = anchoredQuoted.ReplaceAllString(sanitized, "")

	if strings.Contains(sanitized, "..") {
		return ErrConsecutiveDots
	}
	if sanitized == "" {
		return ErrInvalidLocalChars
	}
	for _, r := range sanitized {
		if !isLocalPartRune(r) {
			return ErrInvalidLocalChars
		}
	}
	return nil
}

func isLocalPartRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsDigit(r) {
		return true
	}
	return strings.ContainsRune("!#$%&'*+-/=?^_`{|}~.", r)
}

func validateDomain(domain string) error {
	sanitized := anchoredComment.ReplaceAllString(domain, "")
	labels := strings.Split(sanitized, ".")

	if allDigits(labels[len(labels)-1]) {
		return ErrNumericTLD
	}

	for _, label := range labels {
		if err := validateLabel(label); err != nil {
			return err
		}
	}
	return nil
}

// validateLabel short-circuits on the first violation, in a fixed order.
func validateLabel(label string) error {
	switch {
	case label == "":
		return ErrLabelTooShort
	case utf8.RuneCountInString(label) > maxLabelRunes:
		return ErrLabelTooLong
	case strings.HasPrefix(label, "-"):
		return ErrLabelStartsHyphen
	case strings.HasSuffix(label, "-"):
		return ErrLabelEndsHyphen
	}
	for _, r := range label {
		if !isLabelRune(r) {
			return ErrInvalidLabelChars
		}
	}
	return nil
}

func isLabelRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsDigit(r) || r == '-'
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
