// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services to distinguish between different failure scenarios without
// inspecting driver errors. ErrNotFound replaces sql.ErrNoRows at the
// package boundary so that the in-memory store and the MySQL store
// report missing rows identically.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the referenced row does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a compare-and-set update finds the row
// in an unexpected state, such as a listing that is no longer available.
var ErrConflict = errors.New("conflict")

// ErrInsufficientBalance is returned when a token balance adjustment
// would make the balance negative.
var ErrInsufficientBalance = errors.New("insufficient balance")

// ErrDuplicate is returned when a unique key is violated.
var ErrDuplicate = errors.New("duplicate")

// isDuplicateKey reports whether err is MySQL error 1062 (ER_DUP_ENTRY).
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// isForeignKeyViolation reports whether err is MySQL error 1451
// (ER_ROW_IS_REFERENCED_2): the row is still referenced by a child row.
func isForeignKeyViolation(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1451
}
