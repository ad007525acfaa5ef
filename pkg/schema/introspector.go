// Package schema discovers which tables and columns the activity database
// actually has, so queries only reference confirmed structure.
package schema

import (
	"context"
	"fmt"

	"github.com/ekaya-inc/campus-er/pkg/adapters/datasource"
	sqlpkg "github.com/ekaya-inc/campus-er/pkg/sql"
)

// Introspector answers catalog questions over one session.
// Results are memoized for the introspector's lifetime, which is one request.
// It is not safe for concurrent use.
type Introspector struct {
	q       datasource.Querier
	dialect datasource.Dialect

	tables  map[string]bool
	columns map[string][]string
}

// NewIntrospector creates an introspector bound to a querier and dialect.
func NewIntrospector(q datasource.Querier, dialect datasource.Dialect) *Introspector {
	return &Introspector{
		q:       q,
		dialect: dialect,
		tables:  make(map[string]bool),
		columns: make(map[string][]string),
	}
}

func (i *Introspector) queryNames(ctx context.Context, f sqlpkg.Fragment) ([]string, error) {
	query, args := f.Build(i.dialect)
	rows, err := i.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return datasource.ScanStrings(rows)
}

// TableExists reports whether a table or view with exactly this name exists.
func (i *Introspector) TableExists(ctx context.Context, table string) (bool, error) {
	if exists, ok := i.tables[table]; ok {
		return exists, nil
	}
	names, err := i.queryNames(ctx, i.dialect.TableExistsQuery(table))
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", table, err)
	}
	exists := len(names) > 0
	i.tables[table] = exists
	return exists, nil
}

// Tables lists all user tables and views, ordered by name.
func (i *Introspector) Tables(ctx context.Context) ([]string, error) {
	names, err := i.queryNames(ctx, i.dialect.TablesQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	for _, name := range names {
		i.tables[name] = true
	}
	return names, nil
}

// Columns lists a table's columns in declaration order.
// A missing table yields an empty list.
func (i *Introspector) Columns(ctx context.Context, table string) ([]string, error) {
	if cols, ok := i.columns[table]; ok {
		return cols, nil
	}
	cols, err := i.queryNames(ctx, i.dialect.ColumnsQuery(table))
	if err != nil {
		return nil, fmt.Errorf("failed to list columns of %s: %w", table, err)
	}
	if cols == nil {
		cols = []string{}
	}
	i.columns[table] = cols
	return cols, nil
}

// ColumnExists reports whether table has column.
func (i *Introspector) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	cols, err := i.Columns(ctx, table)
	if err != nil {
		return false, err
	}
	for _, c := range cols {
		if c == column {
			return true, nil
		}
	}
	return false, nil
}

// ExistingColumns returns the candidates present in table, in candidate order.
func (i *Introspector) ExistingColumns(ctx context.Context, table string, candidates []string) ([]string, error) {
	cols, err := i.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(cols))
	for _, c := range cols {
		present[c] = true
	}
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if present[c] {
			out = append(out, c)
		}
	}
	return out, nil
}

// TableSpec names a table and the optional columns a query may use from it.
type TableSpec struct {
	Table   string
	Columns []string
}

// TableCapability is what a query may reference for one table.
type TableCapability struct {
	Exists  bool
	Columns []string
}

// Has reports whether the column is present.
func (c TableCapability) Has(column string) bool {
	for _, col := range c.Columns {
		if col == column {
			return true
		}
	}
	return false
}

// HasAll reports whether every column is present.
func (c TableCapability) HasAll(columns ...string) bool {
	for _, col := range columns {
		if !c.Has(col) {
			return false
		}
	}
	return true
}

// Capabilities is the capability set of one request, keyed by table name.
type Capabilities map[string]TableCapability

// Table returns the capability of a table; unknown tables do not exist.
func (c Capabilities) Table(name string) TableCapability {
	return c[name]
}

// Inspect resolves the capability set for the given tables.
// Missing tables are reported as not existing; catalog failures are returned.
func (i *Introspector) Inspect(ctx context.Context, specs ...TableSpec) (Capabilities, error) {
	caps := make(Capabilities, len(specs))
	for _, spec := range specs {
		exists, err := i.TableExists(ctx, spec.Table)
		if err != nil {
			return nil, err
		}
		if !exists {
			caps[spec.Table] = TableCapability{}
			continue
		}
		cols, err := i.ExistingColumns(ctx, spec.Table, spec.Columns)
		if err != nil {
			return nil, err
		}
		caps[spec.Table] = TableCapability{Exists: true, Columns: cols}
	}
	return caps, nil
}
