package mssql

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/campus-er/pkg/adapters/datasource"
	sqlpkg "github.com/ekaya-inc/campus-er/pkg/sql"
)

// Dialect renders SQL for Microsoft SQL Server (go-mssqldb, @pN parameters).
type Dialect struct{}

func (Dialect) Name() string { return "sqlserver" }

func (Dialect) Placeholder(n int) string { return fmt.Sprintf("@p%d", n) }

// QuoteIdentifier brackets a name the way QUOTENAME does, escaping ] as ]].
func (Dialect) QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (Dialect) LimitPrefix(n int) string { return fmt.Sprintf("TOP (%d) ", n) }

func (Dialect) LimitSuffix(int) string { return "" }

func (Dialect) TablesQuery() sqlpkg.Fragment {
	return sqlpkg.Raw(`SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
WHERE TABLE_SCHEMA = SCHEMA_NAME()
ORDER BY TABLE_NAME`)
}

func (Dialect) TableExistsQuery(table string) sqlpkg.Fragment {
	return sqlpkg.Concat(
		sqlpkg.Raw("SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = SCHEMA_NAME() AND TABLE_NAME = "),
		sqlpkg.Arg(table),
	)
}

func (Dialect) ColumnsQuery(table string) sqlpkg.Fragment {
	return sqlpkg.Concat(
		sqlpkg.Raw("SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_SCHEMA = SCHEMA_NAME() AND TABLE_NAME = "),
		sqlpkg.Arg(table),
		sqlpkg.Raw(" ORDER BY ORDINAL_POSITION"),
	)
}

func (Dialect) HoursAgo(hours int) sqlpkg.Fragment {
	return sqlpkg.Concat(
		sqlpkg.Raw("DATEADD(hour, -"),
		sqlpkg.Arg(hours),
		sqlpkg.Raw(", SYSUTCDATETIME())"),
	)
}

// ContainsInsensitive lowers both sides so matching does not depend on the column collation.
func (Dialect) ContainsInsensitive(column, pattern string) sqlpkg.Fragment {
	return sqlpkg.Concat(
		sqlpkg.Raw("LOWER(CAST("),
		sqlpkg.Ident(column),
		sqlpkg.Raw(" AS NVARCHAR(MAX))) LIKE LOWER("),
		sqlpkg.Arg(pattern),
		sqlpkg.Raw(`) ESCAPE '\'`),
	)
}

func (Dialect) CastText(expr sqlpkg.Fragment) sqlpkg.Fragment {
	return sqlpkg.Concat(sqlpkg.Raw("CAST("), expr, sqlpkg.Raw(" AS NVARCHAR(MAX))"))
}

func (Dialect) NullText() sqlpkg.Fragment {
	return sqlpkg.Raw("CAST(NULL AS NVARCHAR(MAX))")
}

func (Dialect) TimeArg(value string) any {
	if t, ok := datasource.ParseTimestamp(value); ok {
		return t
	}
	return value
}
