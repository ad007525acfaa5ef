package datasource

import (
	"context"
	"database/sql"

	sqlpkg "github.com/ekaya-inc/campus-er/pkg/sql"
)

// Dialect renders SQL for one database engine. Catalog queries return a
// single text column (a table or column name) so callers scan them uniformly.
type Dialect interface {
	sqlpkg.Dialect

	// Name returns the registered driver name ("sqlite", "postgres", "sqlserver").
	Name() string

	// TablesQuery lists user tables and views of the current schema, ordered by name.
	// System tables are excluded.
	TablesQuery() sqlpkg.Fragment

	// TableExistsQuery returns one row when a table or view with exactly this name exists.
	TableExistsQuery(table string) sqlpkg.Fragment

	// ColumnsQuery lists the columns of a table in declaration order.
	ColumnsQuery(table string) sqlpkg.Fragment

	// HoursAgo is an expression for the current time minus the given hours.
	HoursAgo(hours int) sqlpkg.Fragment

	// ContainsInsensitive matches column against a LIKE pattern built with
	// sqlpkg.ContainsPattern, ignoring case. Backslash is the escape character.
	ContainsInsensitive(column, pattern string) sqlpkg.Fragment

	// CastText makes an expression UNION-compatible with text columns.
	// Dialects whose UNION accepts mixed column types return expr unchanged,
	// so values keep the type the driver reports.
	CastText(expr sqlpkg.Fragment) sqlpkg.Fragment

	// NullText is the NULL used to pad UNION members.
	NullText() sqlpkg.Fragment

	// TimeArg converts a caller-supplied timestamp bound into a query argument.
	TimeArg(value string) any
}

// Querier runs queries. *sql.DB, *sql.Conn and *sql.Tx all satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Session is a dedicated connection used for all statements of one request.
// Close must be called exactly once.
type Session interface {
	Querier
	Close() error
}

// Connector hands out sessions against the activity database.
type Connector interface {
	// Session borrows a dedicated connection.
	Session(ctx context.Context) (Session, error)

	// Dialect returns the SQL dialect of the underlying database.
	Dialect() Dialect

	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close releases all connections.
	Close() error
}
