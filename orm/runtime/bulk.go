package runtime

import (
	"fmt"
	"strings"
)

// BulkInsertSpec inserts several rows in one statement.
type BulkInsertSpec struct {
	Table     string
	Columns   []string
	Returning []string
	Rows      [][]any
}

func (spec BulkInsertSpec) Validate() error {
	if spec.Table == "" {
		return fmt.Errorf("table is required")
	}
	if len(spec.Columns) == 0 {
		return fmt.Errorf("columns are required")
	}
	if len(spec.Rows) == 0 {
		return fmt.Errorf("at least one row is required")
	}
	for i, row := range spec.Rows {
		if len(row) != len(spec.Columns) {
			return fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(spec.Columns))
		}
	}
	return nil
}

func BuildBulkInsertSQL(spec BulkInsertSpec) (string, []any, error) {
	if err := spec.Validate(); err != nil {
		return "", nil, err
	}
	w := &sqlWriter{}
	w.write("INSERT INTO ")
	w.write(spec.Table)
	w.write(" (")
	w.write(strings.Join(spec.Columns, ", "))
	w.write(") VALUES ")
	for i, row := range spec.Rows {
		if i > 0 {
			w.write(", ")
		}
		w.write("(")
		for j, value := range row {
			if j > 0 {
				w.write(", ")
			}
			w.operand(value)
		}
		w.write(")")
	}
	if len(spec.Returning) > 0 {
		w.write(" RETURNING ")
		w.write(strings.Join(spec.Returning, ", "))
	}
	return w.sb.String(), w.args, nil
}
