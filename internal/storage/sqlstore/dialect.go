// Package sqlstore implements the account, ledger and run stores on top of
// database/sql. Driver differences are isolated in a Dialect supplied by the
// postgres and sqlite packages.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dialect describes how a particular SQL engine differs from the queries
// written here. Queries use '?' placeholders and are rebound when
// Numbered is set.
type Dialect struct {
	Name     string
	Numbered bool // $1, $2, ... placeholders
	Schema   []string
	// IsUniqueViolation reports whether err came from a unique or primary key constraint.
	IsUniqueViolation func(err error) bool
}

func (d Dialect) rebind(query string) string {
	if !d.Numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Migrate applies the dialect schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	for _, stmt := range d.Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s migrate: %w", d.Name, err)
		}
	}
	return nil
}

// Timestamps are stored as Unix nanoseconds so both engines order them the same way.
func toNanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
