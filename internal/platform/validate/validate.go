// Package validate evaluates declarative per-field constraint lists against
// form values. Each field reports at most one message: the first rule that
// fails, in declaration order.
package validate

import (
	"sort"
	"strings"
)

// Values are the raw form inputs keyed by field name.
type Values map[string]string

// Rule returns a message when value violates it, "" otherwise. all gives
// access to sibling fields for cross-field checks.
type Rule func(value string, all Values) string

type Field struct {
	Name  string
	Rules []Rule
}

type Schema []Field

// Form is implemented by every typed form record.
type Form interface {
	Values() Values
	Schema() Schema
}

// FieldErrors maps a field name to its message. It doubles as the error used
// for server-detected conflicts so both land on the same field channel.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	names := make([]string, 0, len(fe))
	for n := range fe {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + ": " + fe[n]
	}
	return strings.Join(parts, "; ")
}

// Add records msg for field unless the field already has a message.
func (fe FieldErrors) Add(field, msg string) {
	if _, ok := fe[field]; !ok {
		fe[field] = msg
	}
}

// Err returns fe as an error, or nil when empty.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// Conflict builds a single-field error.
func Conflict(field, msg string) FieldErrors {
	return FieldErrors{field: msg}
}

// Check runs the form's schema over its values.
func Check(f Form) FieldErrors {
	return CheckValues(f.Schema(), f.Values())
}

func CheckValues(schema Schema, values Values) FieldErrors {
	errs := FieldErrors{}
	for _, field := range schema {
		v := values[field.Name]
		for _, rule := range field.Rules {
			if msg := rule(v, values); msg != "" {
				errs[field.Name] = msg
				break
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
