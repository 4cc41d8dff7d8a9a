// Package validate evaluates form input against per-field rules and collects one
// {property, message} pair for every rule that fails.
package validate

import (
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

// FieldError is a single failed rule for a form property.
type FieldError struct {
	Property string `json:"property"`
	Message  string `json:"message"`
}

// Errors is the flat list surfaced to a step handler.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Property+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Message returns the first message recorded for property.
func (e Errors) Message(property string) string {
	for _, fe := range e {
		if fe.Property == property {
			return fe.Message
		}
	}
	return ""
}

// Has reports whether property failed any rule.
func (e Errors) Has(property string) bool {
	return e.Message(property) != ""
}

// Rule checks a value and returns a message when it fails, or "" when it passes.
type Rule[T any] func(T) string

// Validator accumulates field errors for one form submission.
type Validator struct {
	errs Errors
}

// New returns an empty Validator.
func New() *Validator { return &Validator{} }

// Add records a failure directly.
func (v *Validator) Add(property, message string) {
	v.errs = append(v.errs, FieldError{Property: property, Message: message})
}

// Errors returns the collected failures, nil when the form passed.
func (v *Validator) Errors() Errors {
	if len(v.errs) == 0 {
		return nil
	}
	return v.errs
}

// Valid reports whether nothing has failed so far.
func (v *Validator) Valid() bool { return len(v.errs) == 0 }

// When runs check only if cond holds; used for fields that depend on another answer.
func (v *Validator) When(cond bool, check func(*Validator)) {
	if cond {
		check(v)
	}
}

// Field evaluates rules in order and records the first failure for property.
// Later rules usually assume earlier ones passed, so evaluation stops there.
func Field[T any](v *Validator, property string, value T, rules ...Rule[T]) bool {
	for _, rule := range rules {
		if msg := rule(value); msg != "" {
			v.Add(property, msg)
			return false
		}
	}
	return true
}

// Text trims a form value and validates it.
func Text(v *Validator, values url.Values, property string, rules ...Rule[string]) (string, bool) {
	s := strings.TrimSpace(values.Get(property))
	return s, Field(v, property, s, rules...)
}

// Int parses a whole number form value. An empty value fails with required, anything
// else that is not a number fails with notNumber.
func Int(v *Validator, values url.Values, property, required, notNumber string, rules ...Rule[int]) (int, bool) {
	raw := strings.TrimSpace(values.Get(property))
	if raw == "" {
		v.Add(property, required)
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		v.Add(property, notNumber)
		return 0, false
	}
	return n, Field(v, property, n, rules...)
}

// Pence parses a money amount in pounds ("1.25", "£2") and returns whole pence.
func Pence(v *Validator, values url.Values, property, required, notMoney string, rules ...Rule[int]) (int, bool) {
	raw := strings.TrimPrefix(strings.TrimSpace(values.Get(property)), "£")
	if raw == "" {
		v.Add(property, required)
		return 0, false
	}
	pence, ok := parsePence(raw)
	if !ok {
		v.Add(property, notMoney)
		return 0, false
	}
	return pence, Field(v, property, pence, rules...)
}

func parsePence(raw string) (int, bool) {
	pounds, frac, hasFrac := strings.Cut(raw, ".")
	if pounds == "" {
		pounds = "0"
	}
	p, err := strconv.Atoi(pounds)
	if err != nil || p < 0 {
		return 0, false
	}
	pence := 0
	if hasFrac {
		if len(frac) == 0 || len(frac) > 2 {
			return 0, false
		}
		if len(frac) == 1 {
			frac += "0"
		}
		f, err := strconv.Atoi(frac)
		if err != nil || f < 0 {
			return 0, false
		}
		pence = f
	}
	return p*100 + pence, true
}

// Required fails on a blank string.
func Required(message string) Rule[string] {
	return func(s string) string {
		if strings.TrimSpace(s) == "" {
			return message
		}
		return ""
	}
}

// MaxLength fails when s has more than n characters.
func MaxLength(n int, message string) Rule[string] {
	return func(s string) string {
		if utf8.RuneCountInString(s) > n {
			return message
		}
		return ""
	}
}

// OneOf fails unless s is one of options.
func OneOf(message string, options ...string) Rule[string] {
	return func(s string) string {
		for _, o := range options {
			if s == o {
				return ""
			}
		}
		return message
	}
}

// IntBetween fails when n is outside [min, max].
func IntBetween(min, max int, message string) Rule[int] {
	return func(n int) string {
		if n < min || n > max {
			return message
		}
		return ""
	}
}

// IntAtMost fails when n is greater than max.
func IntAtMost(max int, message string) Rule[int] {
	return func(n int) string {
		if n > max {
			return message
		}
		return ""
	}
}

// Values checks a multi-valued field (checkboxes) against required and allowed options.
func Values(v *Validator, values url.Values, property, required string, allowed []string) ([]string, bool) {
	var picked []string
	for _, s := range values[property] {
		s = strings.TrimSpace(s)
		if s != "" {
			picked = append(picked, s)
		}
	}
	if len(picked) == 0 {
		v.Add(property, required)
		return nil, false
	}
	for _, s := range picked {
		if OneOf(required, allowed...)(s) != "" {
			v.Add(property, required)
			return nil, false
		}
	}
	return picked, true
}
