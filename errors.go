package pagekit

import (
	"errors"
	"fmt"
)

// Sentinel errors for page manipulation failure conditions.
// Use errors.Is to test for them; operations wrap them in *OpError.
var (
	ErrDocumentUnreadable     = errors.New("pagekit: document is missing or unreadable")
	ErrOutOfRange             = errors.New("pagekit: page index out of range")
	ErrEmptySelection         = errors.New("pagekit: empty page selection")
	ErrNoDocumentsToMerge     = errors.New("pagekit: no documents to merge")
	ErrUnsupportedImageFormat = errors.New("pagekit: unsupported image format")
	ErrInvalidParam           = errors.New("pagekit: invalid parameter")
	ErrReadOnly               = errors.New("pagekit: handle is read-only")
	ErrClosed                 = errors.New("pagekit: document is closed")
	ErrEncrypted              = errors.New("pagekit: document is encrypted")
	ErrValidation             = errors.New("pagekit: output failed validation")
)

// OpError records the engine operation and source path that failed.
type OpError struct {
	Op   string // operation name, e.g. "DeletePages"
	Path string // source document, if any
	Err  error  // underlying error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("pagekit.%s: unknown error", e.Op)
	}
	if e.Path == "" {
		return fmt.Sprintf("pagekit.%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("pagekit.%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// NewOpError wraps err with operation context. It returns nil for a nil err.
func NewOpError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var oe *OpError
	if errors.As(err, &oe) && oe.Op == op {
		return err
	}
	return &OpError{Op: op, Path: path, Err: err}
}
