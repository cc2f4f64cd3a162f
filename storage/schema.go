package storage

import (
	"fmt"

	"github.com/leftmike/tilejit/sql"
)

type Column struct {
	Name string
	Type sql.DataType
}

type Schema struct {
	columns    []Column
	primaryKey []int
}

func NewSchema(columns []Column, primaryKey []int) *Schema {
	for _, col := range primaryKey {
		if col < 0 || col >= len(columns) {
			panic(fmt.Sprintf("storage: primary key column %d out of range", col))
		}
	}

	return &Schema{
		columns:    columns,
		primaryKey: primaryKey,
	}
}

func (s *Schema) Columns() []Column {
	return s.columns
}

func (s *Schema) ColumnCount() int {
	return len(s.columns)
}

func (s *Schema) ColumnType(col int) sql.DataType {
	return s.columns[col].Type
}

func (s *Schema) ColumnIndex(name string) (int, bool) {
	for idx, col := range s.columns {
		if col.Name == name {
			return idx, true
		}
	}
	return -1, false
}

func (s *Schema) PrimaryKey() []int {
	return s.primaryKey
}

func (s *Schema) IsPrimaryKeyColumn(col int) bool {
	for _, pk := range s.primaryKey {
		if pk == col {
			return true
		}
	}
	return false
}

// CheckRow returns an error if row does not have one value of the correct type for each column.
func (s *Schema) CheckRow(row []sql.Value) error {
	if len(row) != len(s.columns) {
		return fmt.Errorf("storage: expected %d values; got %d", len(s.columns), len(row))
	}
	for idx, col := range s.columns {
		err := col.Type.CheckValue(row[idx])
		if err != nil {
			return fmt.Errorf("storage: column %s: %w", col.Name, err)
		}
	}
	return nil
}
