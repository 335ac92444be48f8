package repository

import (
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// validID reports whether id can name a row. Keys are UUID columns, so
// anything else would make Postgres reject the query instead of finding
// nothing.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
