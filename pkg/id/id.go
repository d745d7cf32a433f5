// Package id generates the identifiers for strategies, positions and
// orders. ULIDs embed their creation time, so records sort by id alone
// and journal queries need no separate timestamp key.
package id

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// New returns a time-sortable unique id. Safe for concurrent use; ids
// generated within the same millisecond remain strictly increasing.
func New() string {
	return ulid.Make().String()
}

// Time recovers the creation time embedded in an id. Returns the zero
// time for strings that are not ULIDs.
func Time(s string) time.Time {
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time())
}
