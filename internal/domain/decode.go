package domain

import "errors"

// ErrUnknownEnum is returned by the Parse helpers for values outside the known set.
// Rows carrying such values are quarantined instead of being cast blindly.
var ErrUnknownEnum = errors.New("unrecognized enum value")

// InvalidRowHandler receives rows that failed decoding.
type InvalidRowHandler func(table, id string, err error)

// DiscardInvalidRows ignores quarantined rows.
func DiscardInvalidRows(string, string, error) {}
