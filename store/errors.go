package store

import (
	"errors"
	"fmt"
)

// Kind classifies store errors
type Kind int

const (
	KindDuplicateKey Kind = iota + 1
	KindNotFound
	KindMalformedRecord
	KindIO
	KindInvalidRecord
)

func (k Kind) String() string {
	switch k {
	case KindDuplicateKey:
		return "duplicate key"
	case KindNotFound:
		return "not found"
	case KindMalformedRecord:
		return "malformed record"
	case KindIO:
		return "i/o error"
	case KindInvalidRecord:
		return "invalid record"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the only error type returned by the store.
// Use errors.Is(err, ErrNotFound) etc. to check the kind.
type Error struct {
	Kind Kind
	// ID of the record, if relevant
	ID int
	// Name used for lookup, if relevant
	Name string
	// 1-based line number for KindMalformedRecord
	Line int
	Msg  string
	Err  error
}

var (
	ErrDuplicateKey    = &Error{Kind: KindDuplicateKey}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrMalformedRecord = &Error{Kind: KindMalformedRecord}
	ErrIO              = &Error{Kind: KindIO}
	ErrInvalidRecord   = &Error{Kind: KindInvalidRecord}
)

func (e *Error) Error() string {
	s := e.Kind.String()
	switch {
	case e.Line > 0:
		s = fmt.Sprintf("%s on line %d", s, e.Line)
	case e.Name != "":
		s = fmt.Sprintf("%s: name '%s'", s, e.Name)
	case e.ID != 0 || e.Kind == KindDuplicateKey || e.Kind == KindNotFound:
		s = fmt.Sprintf("%s: id %d", s, e.ID)
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	return ok && te.Kind == e.Kind
}

func errNotFoundID(id int) error {
	return &Error{Kind: KindNotFound, ID: id}
}

func errNotFoundName(name string) error {
	return &Error{Kind: KindNotFound, Name: name}
}

func errIO(msg string, err error) error {
	return &Error{Kind: KindIO, Msg: msg, Err: err}
}

func errInvalid(id int, msg string) error {
	return &Error{Kind: KindInvalidRecord, ID: id, Msg: msg}
}

// IsMalformed returns true if err is a malformed line error
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedRecord)
}
