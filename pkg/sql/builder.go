package sql

import "strings"

// Dialect renders the dialect-specific pieces of a Fragment.
type Dialect interface {
	// Placeholder returns the bind marker for the n-th argument (1-based).
	Placeholder(n int) string
	// QuoteIdentifier safely quotes a table or column name.
	QuoteIdentifier(name string) string
	// LimitPrefix is emitted right after SELECT (e.g. "TOP (10) "), or "".
	LimitPrefix(n int) string
	// LimitSuffix is emitted at the end of a SELECT (e.g. " LIMIT 10"), or "".
	LimitSuffix(n int) string
}

type partKind int

const (
	partRaw partKind = iota
	partIdent
	partArg
	partLiteral
	partLimitPrefix
	partLimitSuffix
)

type part struct {
	kind  partKind
	text  string
	value any
	n     int
}

// Fragment is a piece of SQL made of trusted text, quoted identifiers and bound
// arguments. Placeholders are numbered only when the outermost fragment is
// built, so fragments compose in any order without renumbering.
//
// Values never become SQL text: Arg always produces a placeholder.
type Fragment struct {
	parts []part
}

// Raw wraps trusted SQL text. Never pass request data to Raw.
func Raw(text string) Fragment {
	return Fragment{parts: []part{{kind: partRaw, text: text}}}
}

// Ident is a table or column name, quoted by the dialect at build time.
func Ident(name string) Fragment {
	return Fragment{parts: []part{{kind: partIdent, text: name}}}
}

// Arg binds a value as a query parameter.
func Arg(value any) Fragment {
	return Fragment{parts: []part{{kind: partArg, value: value}}}
}

// Literal is a constant string literal such as a provenance label.
// Single quotes are doubled.
func Literal(s string) Fragment {
	return Fragment{parts: []part{{kind: partLiteral, text: s}}}
}

// Concat joins fragments without a separator.
func Concat(frags ...Fragment) Fragment {
	var out Fragment
	for _, f := range frags {
		out.parts = append(out.parts, f.parts...)
	}
	return out
}

// Join joins fragments with a raw separator, skipping empty ones.
func Join(sep string, frags ...Fragment) Fragment {
	var out Fragment
	first := true
	for _, f := range frags {
		if f.IsEmpty() {
			continue
		}
		if !first {
			out.parts = append(out.parts, part{kind: partRaw, text: sep})
		}
		out.parts = append(out.parts, f.parts...)
		first = false
	}
	return out
}

// IsEmpty reports whether the fragment renders to nothing.
func (f Fragment) IsEmpty() bool {
	return len(f.parts) == 0
}

// Build renders the fragment for a dialect, returning SQL text and the
// arguments in placeholder order.
func (f Fragment) Build(d Dialect) (string, []any) {
	var b strings.Builder
	args := make([]any, 0)
	for _, p := range f.parts {
		switch p.kind {
		case partRaw:
			b.WriteString(p.text)
		case partIdent:
			b.WriteString(d.QuoteIdentifier(p.text))
		case partArg:
			args = append(args, p.value)
			b.WriteString(d.Placeholder(len(args)))
		case partLiteral:
			b.WriteString("'" + strings.ReplaceAll(p.text, "'", "''") + "'")
		case partLimitPrefix:
			b.WriteString(d.LimitPrefix(p.n))
		case partLimitSuffix:
			b.WriteString(d.LimitSuffix(p.n))
		}
	}
	return b.String(), args
}

// Paren wraps a fragment in parentheses.
func Paren(f Fragment) Fragment {
	return Concat(Raw("("), f, Raw(")"))
}

// As aliases an expression: <expr> AS <alias>.
func As(expr Fragment, alias string) Fragment {
	return Concat(expr, Raw(" AS "), Ident(alias))
}

// Compare builds <column> <op> <arg>. op must be a constant operator.
func Compare(column, op string, value any) Fragment {
	return Concat(Ident(column), Raw(" "+op+" "), Arg(value))
}

// Eq builds <column> = <arg>.
func Eq(column string, value any) Fragment {
	return Compare(column, "=", value)
}

// UnionAll joins SELECT fragments with UNION ALL.
func UnionAll(selects ...Fragment) Fragment {
	return Join(" UNION ALL ", selects...)
}

// Subquery wraps a SELECT as a derived table: (<select>) AS <alias>.
func Subquery(sel Fragment, alias string) Fragment {
	return Concat(Raw("("), sel, Raw(") AS "), Ident(alias))
}

// Select describes a single SELECT statement.
type Select struct {
	Columns []Fragment
	From    Fragment
	Where   []Fragment // joined with AND
	OrderBy Fragment
	Limit   int // 0 means unbounded
}

// Fragment renders the SELECT. Dialect-specific row limits are resolved at Build time.
func (s Select) Fragment() Fragment {
	cols := Join(", ", s.Columns...)
	if cols.IsEmpty() {
		cols = Raw("*")
	}

	out := Raw("SELECT ")
	if s.Limit > 0 {
		out = Concat(out, Fragment{parts: []part{{kind: partLimitPrefix, n: s.Limit}}})
	}
	out = Concat(out, cols, Raw(" FROM "), s.From)

	if where := Join(" AND ", s.Where...); !where.IsEmpty() {
		out = Concat(out, Raw(" WHERE "), where)
	}
	if !s.OrderBy.IsEmpty() {
		out = Concat(out, Raw(" ORDER BY "), s.OrderBy)
	}
	if s.Limit > 0 {
		out = Concat(out, Fragment{parts: []part{{kind: partLimitSuffix, n: s.Limit}}})
	}
	return out
}

// EscapeLike escapes LIKE wildcards with a backslash so the value matches literally.
// Pair it with ESCAPE '\' in the LIKE expression.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ContainsPattern returns the LIKE pattern matching s anywhere in a value.
func ContainsPattern(s string) string {
	return "%" + EscapeLike(s) + "%"
}
