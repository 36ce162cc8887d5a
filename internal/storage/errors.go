// Package storage holds the error vocabulary shared by the repositories.
package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("row not found")

// Kind is the closed set of storage failure classes callers may branch on.
type Kind int

const (
	// KindUnknown is any failure that must be surfaced as-is.
	KindUnknown Kind = iota
	// KindRelationMissing means the table (or the PostgREST schema cache
	// entry for it) does not exist yet.
	KindRelationMissing
)

func (k Kind) String() string {
	switch k {
	case KindRelationMissing:
		return "relation_missing"
	default:
		return "unknown"
	}
}

const (
	codeUndefinedTable  = "42P01"
	codePostgRESTNoRel  = "PGRST205"
	schemaCacheFragment = "schema cache"
)

// Error wraps a driver failure with the operation that produced it.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap classifies err and wraps it. A nil err stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: Classify(err), Err: err}
}

// Classify maps a driver error to a Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == codeUndefinedTable {
		return KindRelationMissing
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, strings.ToLower(codePostgRESTNoRel)) || strings.Contains(msg, schemaCacheFragment) {
		return KindRelationMissing
	}
	return KindUnknown
}

// IsRelationMissing reports whether err means the backing table is absent.
func IsRelationMissing(err error) bool {
	return Classify(err) == KindRelationMissing
}
