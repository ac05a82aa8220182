package utils

import "github.com/mattn/go-sqlite3"

// Reports whether the error is a unique constraint violation from the
// sqlite driver. Used to turn duplicate emails into validation errors.
func IsUniqueConstraintErr(err error) bool {
	if val, ok := err.(sqlite3.Error); ok {
		return val.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
