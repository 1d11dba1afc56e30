// Package validation holds single-field validators and JSON Schema checks.
package validation

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// Messages surfaced to applicants.
const (
	MsgInvalidEmail      = "Please enter a valid email address"
	MsgInvalidPhone      = "Please enter a valid phone number"
	MsgInvalidPostalCode = "Postal code must contain only numbers"
	MsgInvalidName       = "Only letters, spaces, and hyphens are allowed"
	MsgInvalidURL        = "Please enter a valid URL"
)

// FieldResult is the outcome of one field check. Message is empty when Valid.
type FieldResult struct {
	Valid   bool
	Message string
}

var ok = FieldResult{Valid: true}

func fail(msg string) FieldResult { return FieldResult{Message: msg} }

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	digitsPattern = regexp.MustCompile(`^[0-9]+$`)
	namePattern   = regexp.MustCompile(`^[\p{L} -]+$`)
)

// Email checks the local@domain.tld shape.
func Email(s string) FieldResult {
	if !emailPattern.MatchString(s) {
		return fail(MsgInvalidEmail)
	}
	return ok
}

// Phone requires exactly 10 digits once every non-digit is stripped.
func Phone(s string) FieldResult {
	if len(DigitsOnly(s)) != 10 {
		return fail(MsgInvalidPhone)
	}
	return ok
}

func PostalCode(s string) FieldResult {
	if !digitsPattern.MatchString(s) {
		return fail(MsgInvalidPostalCode)
	}
	return ok
}

// Name accepts letters, spaces and hyphens.
func Name(s string) FieldResult {
	if !namePattern.MatchString(s) {
		return fail(MsgInvalidName)
	}
	return ok
}

// URL requires an absolute http or https URL with a host.
func URL(s string) FieldResult {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fail(MsgInvalidURL)
	}
	return ok
}

// FilterName drops every character Name would reject.
func FilterName(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || r == ' ' || r == '-' {
			return r
		}
		return -1
	}, s)
}

// DigitsOnly strips every non-digit.
func DigitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
