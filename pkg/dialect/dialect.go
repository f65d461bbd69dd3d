// Package dialect describes the SQL surface differences between the
// supported targets: identifier quoting, parameter placeholders, schema
// support, column type mapping and script lexing rules.
package dialect

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/reetl/pkg/core"
)

// PlaceholderStyle defines how query parameters are written.
type PlaceholderStyle int

// Placeholder styles.
const (
	PlaceholderQuestion PlaceholderStyle = iota // ?
	PlaceholderDollar                           // $1, $2
)

// IdentifierConfig holds identifier quoting rules.
type IdentifierConfig struct {
	Quote    string
	QuoteEnd string
	Escape   string
}

// ScriptConfig holds the lexical rules used when splitting SQL scripts.
type ScriptConfig struct {
	BackslashEscapes bool // \' inside string literals (MySQL)
	HashComments     bool // # line comments (MySQL)
	DollarQuotes     bool // $tag$ ... $tag$ bodies (Postgres)

	// DashCommentNeedsSpace makes -- a comment only when followed by
	// whitespace, a control character or end of input (MySQL).
	DashCommentNeedsSpace bool
}

// Dialect is the static description of one SQL target.
type Dialect struct {
	Name          string
	Identifiers   IdentifierConfig
	DefaultSchema string
	Placeholder   PlaceholderStyle
	Schemas       bool // CREATE SCHEMA is supported and tables can be schema-qualified
	Script        ScriptConfig

	types map[core.ColumnKind]string
}

// FormatPlaceholder returns a placeholder for the given parameter index (1-based).
func (d *Dialect) FormatPlaceholder(index int) string {
	switch d.Placeholder {
	case PlaceholderDollar:
		return "$" + strconv.Itoa(index)
	default:
		return "?"
	}
}

// QuoteIdentifier wraps name in the dialect's identifier quotes.
func (d *Dialect) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
	return d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd
}

// QualifiedName returns the quoted table reference. The schema is dropped
// when empty or when the dialect has no schemas.
func (d *Dialect) QualifiedName(schema, table string) string {
	if schema == "" || !d.Schemas {
		return d.QuoteIdentifier(table)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(table)
}

// ColumnType maps a column kind to the SQL type used for raw tables.
// Unknown kinds map to the text type.
func (d *Dialect) ColumnType(kind core.ColumnKind) string {
	if t, ok := d.types[kind]; ok {
		return t
	}
	return d.types[core.KindText]
}

// Builder provides a fluent API for constructing dialects.
type Builder struct {
	d *Dialect
}

// NewDialect starts a new dialect definition. The defaults describe an ANSI
// target with double-quoted identifiers and ? placeholders.
func NewDialect(name string) *Builder {
	return &Builder{d: &Dialect{
		Name:        name,
		Identifiers: IdentifierConfig{Quote: `"`, QuoteEnd: `"`, Escape: `""`},
		Schemas:     true,
		types: map[core.ColumnKind]string{
			core.KindText:     "TEXT",
			core.KindInteger:  "BIGINT",
			core.KindFloat:    "DOUBLE PRECISION",
			core.KindBoolean:  "BOOLEAN",
			core.KindDateTime: "TIMESTAMP",
		},
	}}
}

// Identifiers sets identifier quoting.
func (b *Builder) Identifiers(quote, quoteEnd, escape string) *Builder {
	b.d.Identifiers = IdentifierConfig{Quote: quote, QuoteEnd: quoteEnd, Escape: escape}
	return b
}

// DefaultSchema sets the schema used when none is configured.
func (b *Builder) DefaultSchema(schema string) *Builder {
	b.d.DefaultSchema = schema
	return b
}

// Placeholder sets the parameter placeholder style.
func (b *Builder) Placeholder(style PlaceholderStyle) *Builder {
	b.d.Placeholder = style
	return b
}

// WithoutSchemas marks the dialect as having a single flat namespace.
func (b *Builder) WithoutSchemas() *Builder {
	b.d.Schemas = false
	return b
}

// Type overrides the SQL type for a column kind.
func (b *Builder) Type(kind core.ColumnKind, sqlType string) *Builder {
	b.d.types[kind] = sqlType
	return b
}

// Script sets the script lexing rules.
func (b *Builder) Script(cfg ScriptConfig) *Builder {
	b.d.Script = cfg
	return b
}

// Build returns the finished dialect.
func (b *Builder) Build() *Dialect {
	return b.d
}
