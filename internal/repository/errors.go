// Package repository implements the store ports on top of MySQL using
// database/sql.  Every repository works against either the connection
// pool or an open transaction, so the same code serves both plain reads
// and the locked write paths driven by Store.InTx.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/hall-reservation/internal/store"
)

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// notFound maps sql.ErrNoRows onto store.ErrNotFound and passes every
// other error through.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// isDuplicate reports whether err is a MySQL duplicate key error (1062).
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
