// The errors package provides additional error primitives. It is used for
// gathering decoder warnings, which accumulate rather than halt decoding.
package errors

import (
	"errors"
	"strconv"
	"strings"
)

// Functions of the standard errors package, so that importing this package
// in its place is enough.
var (
	New    = errors.New
	Unwrap = errors.Unwrap
	Is     = errors.Is
	As     = errors.As
)

// Errors is a list of errors.
type Errors []error

// Error formats a single error as-is. Otherwise, the count of errors is
// followed by each message on its own line, with every line of a message
// indented by a tab.
func (errs Errors) Error() string {
	if len(errs) == 0 {
		return "no errors"
	}
	if len(errs) == 1 {
		return errs[0].Error()
	}
	var b strings.Builder
	b.WriteString(strconv.Itoa(len(errs)))
	b.WriteString(" errors:")
	for _, err := range errs {
		for _, line := range strings.Split(err.Error(), "\n") {
			b.WriteString("\n\t")
			b.WriteString(line)
		}
	}
	return b.String()
}

// Unwrap returns the errors of the list, so that Is and As match against any
// of them.
func (errs Errors) Unwrap() []error {
	return errs
}

// Append returns errs with each err appended to it. Nil arguments are
// skipped, and arguments that are Errors are appended element-wise.
func (errs Errors) Append(err ...error) Errors {
	return append(errs, Flatten(err...)...)
}

// Return returns nil if errs is empty, and errs otherwise.
func (errs Errors) Return() error {
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Union combines errs into one Errors. Returns nil if all errs are nil or
// empty.
func Union(errs ...error) error {
	return Errors(nil).Append(errs...).Return()
}

// Flatten returns the individual errors of errs, expanding nested Errors in
// order. Nil errors are skipped.
func Flatten(errs ...error) []error {
	var flat []error
	for _, err := range errs {
		if list, ok := err.(Errors); ok {
			flat = append(flat, Flatten(list...)...)
		} else if err != nil {
			flat = append(flat, err)
		}
	}
	return flat
}
