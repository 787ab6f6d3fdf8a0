package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// String builds a string check for the provided field name.
func String(field string) *StringRuleBuilder {
	return &StringRuleBuilder{field: field}
}

// StringRuleBuilder provides fluent helpers for describing string constraints.
type StringRuleBuilder struct {
	field    string
	required bool
	minLen   int
	hasMin   bool
	maxLen   int
	hasMax   bool
	pattern  *regexp.Regexp
}

// Required rejects empty and whitespace-only values.
func (b *StringRuleBuilder) Required() *StringRuleBuilder {
	b.required = true
	return b
}

// MinLen enforces a minimum rune length on non-empty values.
func (b *StringRuleBuilder) MinLen(n int) *StringRuleBuilder {
	if n < 0 {
		n = 0
	}
	b.hasMin = true
	b.minLen = n
	return b
}

// MaxLen enforces a maximum rune length.
func (b *StringRuleBuilder) MaxLen(n int) *StringRuleBuilder {
	if n < 0 {
		n = 0
	}
	b.hasMax = true
	b.maxLen = n
	return b
}

// Matches applies the provided regular expression to non-empty values.
func (b *StringRuleBuilder) Matches(re *regexp.Regexp) *StringRuleBuilder {
	b.pattern = re
	return b
}

// Check validates value against the configured constraints. Several failures are
// returned together as Errors.
func (b *StringRuleBuilder) Check(value string) error {
	if strings.TrimSpace(value) == "" {
		if b.required {
			return FieldError{Field: b.field, Message: "must not be blank"}
		}
		return nil
	}
	length := utf8.RuneCountInString(value)
	var errs Errors
	if b.hasMin && length < b.minLen {
		errs = append(errs, FieldError{Field: b.field, Message: fmt.Sprintf("must be at least %d characters", b.minLen)})
	}
	if b.hasMax && length > b.maxLen {
		errs = append(errs, FieldError{Field: b.field, Message: fmt.Sprintf("must be at most %d characters", b.maxLen)})
	}
	if b.pattern != nil && !b.pattern.MatchString(value) {
		errs = append(errs, FieldError{Field: b.field, Message: "is invalid"})
	}
	return errs.OrNil()
}
