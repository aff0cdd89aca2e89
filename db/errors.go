package db

import (
	"strings"

	"github.com/teranos/hamcall/errors"
)

// ErrDatabaseClosed is returned when a lookup is recorded after the
// database was closed, typically while the server shuts down.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed reports whether err means the connection is closed.
// Driver errors cannot be wrapped at the source, so their message is
// matched as well.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}
