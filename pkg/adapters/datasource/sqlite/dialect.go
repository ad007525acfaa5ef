package sqlite

import (
	"fmt"
	"strings"

	sqlpkg "github.com/ekaya-inc/campus-er/pkg/sql"
)

// Dialect renders SQL for SQLite (modernc.org/sqlite).
type Dialect struct{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) Placeholder(int) string { return "?" }

// QuoteIdentifier double-quotes a name, doubling embedded quotes.
func (Dialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (Dialect) LimitPrefix(int) string { return "" }

func (Dialect) LimitSuffix(n int) string { return fmt.Sprintf(" LIMIT %d", n) }

func (Dialect) TablesQuery() sqlpkg.Fragment {
	return sqlpkg.Raw(`SELECT name FROM sqlite_master WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite\_%' ESCAPE '\' ORDER BY name`)
}

func (Dialect) TableExistsQuery(table string) sqlpkg.Fragment {
	return sqlpkg.Concat(
		sqlpkg.Raw("SELECT name FROM sqlite_master WHERE type IN ('table', 'view') AND name = "),
		sqlpkg.Arg(table),
	)
}

// ColumnsQuery uses the table-valued pragma so the table name is bound, not interpolated.
func (Dialect) ColumnsQuery(table string) sqlpkg.Fragment {
	return sqlpkg.Concat(
		sqlpkg.Raw("SELECT name FROM pragma_table_info("),
		sqlpkg.Arg(table),
		sqlpkg.Raw(") ORDER BY cid"),
	)
}

// HoursAgo yields datetime('now', '-N hours'), which compares against
// timestamps stored as "YYYY-MM-DD HH:MM:SS" text.
func (Dialect) HoursAgo(hours int) sqlpkg.Fragment {
	return sqlpkg.Concat(
		sqlpkg.Raw("datetime('now', "),
		sqlpkg.Arg(fmt.Sprintf("-%d hours", hours)),
		sqlpkg.Raw(")"),
	)
}

// ContainsInsensitive relies on LIKE being case-insensitive for ASCII in SQLite.
func (Dialect) ContainsInsensitive(column, pattern string) sqlpkg.Fragment {
	return sqlpkg.Concat(
		sqlpkg.Ident(column),
		sqlpkg.Raw(" LIKE "),
		sqlpkg.Arg(pattern),
		sqlpkg.Raw(` ESCAPE '\'`),
	)
}

// CastText is the identity: SQLite unions mix storage classes freely, and
// integer columns must stay integers.
func (Dialect) CastText(expr sqlpkg.Fragment) sqlpkg.Fragment {
	return expr
}

func (Dialect) NullText() sqlpkg.Fragment {
	return sqlpkg.Raw("NULL")
}

// TimeArg passes the bound through untouched; SQLite compares timestamps as text.
func (Dialect) TimeArg(value string) any {
	return value
}
