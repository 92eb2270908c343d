package store

import (
	"context"
	"errors"
	"fmt"

	"pqx/internal/model"
)

// ColumnarStore is everything the page window needs from a columnar file.
//
// Implementations block until the read or write completes; there is no partial result.
type ColumnarStore interface {
	RowCount(ctx context.Context, path string) (int, error)
	// ReadSlice reads rows [offset, offset+limit). Rows past the end are simply absent.
	ReadSlice(ctx context.Context, path string, offset, limit int) (*model.Table, error)
	ReadAll(ctx context.Context, path string) (*model.Table, error)
	WriteAll(ctx context.Context, path string, t *model.Table) error
}

var (
	ErrUnsupportedType = errors.New("unsupported column type")
	ErrNotFound        = errors.New("file not found")
)

// IoError wraps any failure to read or write the underlying file.
type IoError struct {
	Op   string
	Path string
	Err  error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

func ioError(op, path string, err error) error {
	var ioe *IoError
	if errors.As(err, &ioe) {
		return err
	}
	return &IoError{Op: op, Path: path, Err: err}
}

func checkSlice(offset, limit int) error {
	if offset < 0 {
		return fmt.Errorf("negative offset %d", offset)
	}
	if limit <= 0 {
		return fmt.Errorf("limit must be positive; got %d", limit)
	}
	return nil
}
