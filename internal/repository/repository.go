// Package repository holds the raw-SQL persistence layer. Every repository
// wraps a *sql.DB, writes explicit column lists, and translates driver errors
// into package sentinels at the boundary.
package repository

import (
	"errors"

	"github.com/lib/pq"
)

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
