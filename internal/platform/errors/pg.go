package errors

import (
	stderrs "errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE classes the stores run into
const (
	sqlUniqueViolation     = "23505"
	sqlForeignKeyViolation = "23503"
	sqlNotNullViolation    = "23502"
	sqlCheckViolation      = "23514"
	sqlDataTruncation      = "22001"
	sqlBadTextValue        = "22P02"
	sqlUndefinedTable      = "42P01"
	sqlUndefinedColumn     = "42703"
	sqlSerialization       = "40001"
	sqlDeadlock            = "40P01"
	sqlLockNotAvailable    = "55P03"
	sqlQueryCanceled       = "57014"
	sqlCannotConnectNow    = "57P03"
	sqlReadOnly            = "25006"
)

// DBErrorCode maps a Postgres error to an ErrorCode
// !ok means err is not a *pgconn.PgError
func DBErrorCode(err error) (ErrorCode, bool) {
	var pgErr *pgconn.PgError
	if !stderrs.As(err, &pgErr) {
		return ErrorCodeUnknown, false
	}
	switch pgErr.Code {
	case sqlUniqueViolation:
		return ErrorCodeDuplicateKey, true
	case sqlForeignKeyViolation, sqlDataTruncation, sqlBadTextValue:
		return ErrorCodeInvalidArgument, true
	case sqlNotNullViolation, sqlCheckViolation:
		return ErrorCodeValidation, true
	case sqlUndefinedTable, sqlUndefinedColumn:
		// a snapshot query naming a missing table or column is a config problem
		return ErrorCodeConfiguration, true
	case sqlQueryCanceled, sqlCannotConnectNow, sqlReadOnly:
		return ErrorCodeUnavailable, true
	}
	return ErrorCodeDB, true
}

// FromPostgres wraps err with its mapped code; nil stays nil
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	code, _ := DBErrorCode(err)
	if code == ErrorCodeUnknown {
		code = ErrorCodeDB
	}
	return Wrap(err, code, msg)
}

// IsRetryable reports whether a database error is transient contention:
// serialization failures, deadlocks, lock and statement timeouts, or the text
// pgx reports when a commit is turned into a rollback
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	root := Root(err)
	var pgErr *pgconn.PgError
	if stderrs.As(root, &pgErr) {
		switch pgErr.Code {
		case sqlSerialization, sqlDeadlock, sqlLockNotAvailable, sqlQueryCanceled:
			return true
		}
		return false
	}
	s := strings.ToLower(root.Error())
	for _, frag := range []string{
		"commit unexpectedly resulted in rollback",
		"deadlock detected",
		"could not serialize access",
		"canceling statement due to",
		"terminating connection due to administrator command",
	} {
		if strings.Contains(s, frag) {
			return true
		}
	}
	return false
}
