package database

import (
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
)

type InsertBuilder struct {
	*sqlbuilder.InsertBuilder
}

func NewInsertBuilder() *InsertBuilder {
	return &InsertBuilder{
		sqlbuilder.PostgreSQL.NewInsertBuilder(),
	}
}

func (b *InsertBuilder) InsertInto(table string) *InsertBuilder {
	b.InsertBuilder.InsertInto(table)
	return b
}

func (b *InsertBuilder) Cols(col ...string) *InsertBuilder {
	b.InsertBuilder.Cols(col...)
	return b
}

func (b *InsertBuilder) Values(value ...any) *InsertBuilder {
	b.InsertBuilder.Values(value...)
	return b
}

// OnConflictDoNothing appends ON CONFLICT (columns) DO NOTHING; no columns targets any constraint.
func (b *InsertBuilder) OnConflictDoNothing(columns ...string) *InsertBuilder {
	if len(columns) == 0 {
		b.SQL("ON CONFLICT DO NOTHING")
		return b
	}
	b.SQL(fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", strings.Join(columns, ", ")))
	return b
}

// OnConflictDoUpdate appends ON CONFLICT (columns) DO UPDATE SET with the given assignments.
func (b *InsertBuilder) OnConflictDoUpdate(columns []string, assignments ...string) *InsertBuilder {
	b.SQL(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(columns, ", "), strings.Join(assignments, ", ")))
	return b
}

// Excluded references the proposed row's value of column inside an ON CONFLICT clause.
func Excluded(column string) string {
	return "EXCLUDED." + column
}

func (b *InsertBuilder) Returning(col ...string) *InsertBuilder {
	b.SQL("RETURNING " + strings.Join(col, ", "))
	return b
}

// Struct builds column lists from a row type's db tags.
type Struct struct {
	*sqlbuilder.Struct
}

func NewStruct(v any) *Struct {
	return &Struct{sqlbuilder.NewStruct(v).For(sqlbuilder.PostgreSQL)}
}

// Insert starts an insert of rows into table using every tagged column.
func (s *Struct) Insert(table string, rows ...any) *InsertBuilder {
	return &InsertBuilder{s.Struct.InsertInto(table, rows...)}
}
