package utils

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var ErrorRecordNotFound = errors.New("record not found")

const mysqlErrDuplicateEntry = 1062

// IsDuplicateEntry reports whether err is a MySQL unique-key violation.
// Used to turn racing inserts into a friendly duplicate error instead of a 500.
func IsDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry
}
