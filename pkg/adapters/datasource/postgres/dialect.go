package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/campus-er/pkg/adapters/datasource"
	sqlpkg "github.com/ekaya-inc/campus-er/pkg/sql"
)

// Dialect renders SQL for PostgreSQL through the pgx database/sql driver.
// Catalog lookups are confined to current_schema().
type Dialect struct{}

func (Dialect) Name() string { return "postgres" }

func (Dialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (Dialect) QuoteIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (Dialect) LimitPrefix(int) string { return "" }

func (Dialect) LimitSuffix(n int) string { return fmt.Sprintf(" LIMIT %d", n) }

func (Dialect) TablesQuery() sqlpkg.Fragment {
	return sqlpkg.Raw(`SELECT table_name::text FROM information_schema.tables
WHERE table_schema = current_schema()
ORDER BY table_name`)
}

func (Dialect) TableExistsQuery(table string) sqlpkg.Fragment {
	return sqlpkg.Concat(
		sqlpkg.Raw("SELECT table_name::text FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = "),
		sqlpkg.Arg(table),
	)
}

func (Dialect) ColumnsQuery(table string) sqlpkg.Fragment {
	return sqlpkg.Concat(
		sqlpkg.Raw("SELECT column_name::text FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = "),
		sqlpkg.Arg(table),
		sqlpkg.Raw(" ORDER BY ordinal_position"),
	)
}

func (Dialect) HoursAgo(hours int) sqlpkg.Fragment {
	return sqlpkg.Concat(
		sqlpkg.Raw("now() - make_interval(hours => "),
		sqlpkg.Arg(hours),
		sqlpkg.Raw(")"),
	)
}

func (Dialect) ContainsInsensitive(column, pattern string) sqlpkg.Fragment {
	return sqlpkg.Concat(
		sqlpkg.Ident(column),
		sqlpkg.Raw("::text ILIKE "),
		sqlpkg.Arg(pattern),
		sqlpkg.Raw(` ESCAPE '\'`),
	)
}

func (Dialect) CastText(expr sqlpkg.Fragment) sqlpkg.Fragment {
	return sqlpkg.Concat(sqlpkg.Raw("CAST("), expr, sqlpkg.Raw(" AS text)"))
}

func (Dialect) NullText() sqlpkg.Fragment {
	return sqlpkg.Raw("NULL::text")
}

// TimeArg binds a parsed time when the bound is recognizable so comparisons
// run against timestamp columns; anything else is passed as text.
func (Dialect) TimeArg(value string) any {
	if t, ok := datasource.ParseTimestamp(value); ok {
		return t
	}
	return value
}
