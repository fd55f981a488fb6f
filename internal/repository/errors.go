package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrDuplicate reports that a unique constraint rejected the write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrReferenceViolation reports that a foreign key rejected the write.
	ErrReferenceViolation = errors.New("referenced record missing or still in use")
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation
}
