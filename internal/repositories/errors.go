package repositories

import (
	"errors"

	"github.com/lib/pq"
)

// uniqueViolation: SQLSTATE нарушения уникального индекса.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

type rowScanner interface {
	Scan(dest ...any) error
}
