package cache

import (
	"errors"
	"fmt"
)

// ErrNotFound is the sentinel wrapped by NotFoundError.
var ErrNotFound = errors.New("not found")

// NotFoundError reports a hash with no corresponding metadata row, or a row
// whose payload file is missing on disk.
type NotFoundError struct {
	Hash string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNotFound.Error(), e.Hash)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ErrCorruptObject is the sentinel wrapped by CorruptObjectError.
var ErrCorruptObject = errors.New("corrupt object")

// CorruptObjectError reports a payload that failed to deserialize. The row
// is left intact in the MetadataTable so an operator can inspect it.
type CorruptObjectError struct {
	Hash string
	Err  error
}

func (e *CorruptObjectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrCorruptObject.Error(), e.Hash, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrCorruptObject.Error(), e.Hash)
}

func (e *CorruptObjectError) Unwrap() error { return ErrCorruptObject }
