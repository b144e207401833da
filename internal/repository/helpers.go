package repository

import (
	"errors"

	"github.com/lib/pq"
)

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// isForeignKeyViolation reports whether err is a Postgres foreign key
// violation (SQLSTATE 23503).
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

// orderClause builds a safe ORDER BY fragment from a whitelist of sortable
// columns. Unknown columns fall back to the primary key.
func orderClause(allowed map[string]string, sortBy, direction string) string {
	col, ok := allowed[sortBy]
	if !ok {
		col = allowed["id"]
	}
	dir := "ASC"
	if direction == "DESC" || direction == "desc" {
		dir = "DESC"
	}
	return col + " " + dir
}
