package annotation

import (
	"errors"
	"fmt"
)

// Kind classifies why an invocation failed.
type Kind string

const (
	KindDecode       Kind = "decode"
	KindMissingField Kind = "missing_field"
	KindCredentials  Kind = "credentials"
	KindFetch        Kind = "fetch"
	KindSizeMismatch Kind = "size_mismatch"
	KindAnnotation   Kind = "annotation"
	KindUpload       Kind = "upload"
	KindVerification Kind = "upload_verification"
	KindNotification Kind = "notification"
)

// Error is a pipeline failure of a known kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the outermost *Error in err's chain, or "" when
// there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ErrObjectMissing reports an upload the store claims succeeded but whose
// object cannot be found afterwards.
var ErrObjectMissing = errors.New("object does not exist after upload")

// SizeMismatchError reports a download whose length differs from the size
// the store declared before the transfer.
type SizeMismatchError struct {
	Declared int64
	Written  int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("downloaded %d bytes, store declared %d", e.Written, e.Declared)
}

// MissingFieldError names an event field that was needed but absent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("event field %s is missing", e.Field)
}

func missing(field string) error {
	return &Error{Kind: KindMissingField, Op: "read event", Err: &MissingFieldError{Field: field}}
}
