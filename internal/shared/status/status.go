// Package status defines the numeric result codes reported to bus clients
// and the error type that carries them through the daemon.
//
// Codes are wire values: their order is part of the protocol and must only
// ever be appended to.
//
// Example Usage:
//
//	if exists {
//	    return nil, status.Errorf(status.AlreadyExists, "volume %q already exists in pool %q", name, pool)
//	}
//
//	code, msg := status.CodeOf(err), status.Message(err)
package status

import (
	"errors"
	"fmt"
)

// Code is a wire-level result code.
type Code uint16

const (
	OK Code = iota
	Error
	Null
	NotFound
	PoolNotFound
	VolumeNotFound
	DevNotFound
	CacheNotFound
	BadParam
	AlreadyExists
	NullName
	NoPools
	ListFailure
	DuplicateName
	Malloc
)

var descriptions = [...]string{
	OK:             "Ok",
	Error:          "A general error happened",
	Null:           "Null parameter was supplied",
	NotFound:       "Not found",
	PoolNotFound:   "Pool not found",
	VolumeNotFound: "Volume not found",
	DevNotFound:    "Dev not found",
	CacheNotFound:  "Cache not found",
	BadParam:       "Bad parameter",
	AlreadyExists:  "Already exists",
	NullName:       "Null name supplied",
	NoPools:        "No pools",
	ListFailure:    "List operation failure.",
	DuplicateName:  "Duplicate name",
	Malloc:         "Allocation failure",
}

var names = [...]string{
	OK:             "STRATIS_OK",
	Error:          "STRATIS_ERROR",
	Null:           "STRATIS_NULL",
	NotFound:       "STRATIS_NOTFOUND",
	PoolNotFound:   "STRATIS_POOL_NOTFOUND",
	VolumeNotFound: "STRATIS_VOLUME_NOTFOUND",
	DevNotFound:    "STRATIS_DEV_NOTFOUND",
	CacheNotFound:  "STRATIS_CACHE_NOTFOUND",
	BadParam:       "STRATIS_BAD_PARAM",
	AlreadyExists:  "STRATIS_ALREADY_EXISTS",
	NullName:       "STRATIS_NULL_NAME",
	NoPools:        "STRATIS_NO_POOLS",
	ListFailure:    "STRATIS_LIST_FAILURE",
	DuplicateName:  "STRATIS_DUPLICATE_NAME",
	Malloc:         "STRATIS_MALLOC",
}

// Codes returns every code in wire order.
func Codes() []Code {
	out := make([]Code, len(descriptions))
	for i := range descriptions {
		out[i] = Code(i)
	}
	return out
}

// String returns the symbolic name of the code.
func (c Code) String() string {
	if int(c) < len(names) {
		return names[c]
	}
	return fmt.Sprintf("STRATIS_CODE_%d", uint16(c))
}

// ParseCode maps a wire name such as "STRATIS_POOL_NOTFOUND" back to its
// code.
func ParseCode(name string) (Code, bool) {
	for i, n := range names {
		if n == name {
			return Code(i), true
		}
	}
	return Error, false
}

// Description returns the fixed human-readable text for the code.
func (c Code) Description() string {
	if int(c) < len(descriptions) {
		return descriptions[c]
	}
	return "Unknown error code"
}

// scopedNotFound reports whether c is one of the per-entity not-found codes
func (c Code) scopedNotFound() bool {
	switch c {
	case PoolNotFound, VolumeNotFound, DevNotFound, CacheNotFound:
		return true
	}
	return false
}

func (c Code) uniqueness() bool {
	return c == AlreadyExists || c == DuplicateName
}

// E is an error carrying a wire code.
type E struct {
	Code Code
	Msg  string
	Err  error
}

// Sentinels for errors.Is.
var (
	ErrNotFound      = &E{Code: NotFound}
	ErrBadParam      = &E{Code: BadParam}
	ErrAlreadyExists = &E{Code: AlreadyExists}
	ErrDuplicateName = &E{Code: DuplicateName}
	ErrNull          = &E{Code: Null}
	ErrListFailure   = &E{Code: ListFailure}
	ErrMalloc        = &E{Code: Malloc}
)

func (e *E) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Code.Description()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *E) Unwrap() error { return e.Err }

// Is matches on code. A scoped not-found error also matches ErrNotFound,
// and AlreadyExists and DuplicateName match each other.
func (e *E) Is(target error) bool {
	t, ok := target.(*E)
	if !ok {
		return false
	}
	switch {
	case t.Code == e.Code:
		return true
	case t.Code == NotFound:
		return e.Code.scopedNotFound()
	case t.Code.uniqueness():
		return e.Code.uniqueness()
	}
	return false
}

// Errorf builds a coded error.
func Errorf(code Code, format string, args ...any) error {
	return &E{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code to err. A nil err yields nil.
func Wrap(code Code, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &E{Code: code, Msg: msg, Err: err}
}

// CodeOf extracts the wire code: OK for nil, Error for uncoded errors.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var e *E
	if errors.As(err, &e) {
		return e.Code
	}
	return Error
}

// Message renders the human-readable half of a wire reply.
func Message(err error) string {
	if err == nil {
		return OK.Description()
	}
	return err.Error()
}
