package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorKind classifies storage failures for retry and logging decisions.
type ErrorKind string

const (
	KindConnection ErrorKind = "connection"
	KindSchema     ErrorKind = "schema"
	KindWrite      ErrorKind = "write"
	KindQuery      ErrorKind = "query"
	KindTimeout    ErrorKind = "timeout"
)

// StorageError wraps a store failure with its classification.
type StorageError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// KindOf returns err's classification, or the empty kind if err carries none.
func KindOf(err error) ErrorKind {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// storageErr builds a StorageError, upgrading the kind to timeout when the
// underlying failure is a context deadline or cancellation.
func storageErr(kind ErrorKind, op string, err error) *StorageError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		kind = KindTimeout
	}
	return &StorageError{Kind: kind, Op: op, Err: err}
}

// classifyPg maps a pgx failure onto the taxonomy. The fallback kind applies
// when the error is not recognizably a connection, schema or timeout problem.
func classifyPg(op string, fallback ErrorKind, err error) *StorageError {
	kind := fallback
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind = KindTimeout
	case pgconn.Timeout(err):
		kind = KindTimeout
	case errors.As(err, &pgErr):
		// SQLSTATE class 08 is connection exceptions, class 42 covers
		// undefined tables/columns and other schema problems.
		switch {
		case strings.HasPrefix(pgErr.Code, "08"):
			kind = KindConnection
		case strings.HasPrefix(pgErr.Code, "42"):
			kind = KindSchema
		}
	}
	return &StorageError{Kind: kind, Op: op, Err: err}
}
