package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument reports a caller error such as a non-positive k.
var ErrInvalidArgument = errors.New("invalid argument")

// StorageError reports that the persistence medium is unavailable or that a
// stored row violates the schema (for example an embedding blob whose length
// does not match its declared dimension).
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err, returning nil for a nil err and leaving an
// existing StorageError untouched.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// DimensionMismatchError reports an embedding whose length differs from the
// dimension shared by the rest of the index.
type DimensionMismatchError struct {
	DocID    int64 // 0 when the offending vector is a query
	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	if e.DocID == 0 {
		return fmt.Sprintf("dimension mismatch: query has %d, index has %d", e.Got, e.Expected)
	}
	return fmt.Sprintf("dimension mismatch: document %d has %d, index has %d", e.DocID, e.Got, e.Expected)
}

// EmbeddingError reports a failed call to the embedding provider.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }
