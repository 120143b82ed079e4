package cleaning

import (
	"fmt"
	"sort"

	"github.com/unpulse/sg-report-tracker/internal/core/domain"
)

// maxReportedRows bounds how many offending row indices a shape-violation
// error names.
const maxReportedRows = 10

func dedupePreserveOrder(values []string) []string {
	if len(values) < 2 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// enforceShapes applies the declared shape class to every column present in
// the batch. Always-list columns are wrapped and deduplicated; always-scalar
// columns must hold at most one distinct value; candidate columns demote to
// scalar only when every row in the batch agrees. Mutates the batch in
// place. Idempotent on already-conformant data.
func (c *Cleaner) enforceShapes(batch []record) error {
	columns := make(map[string]struct{})
	for _, rec := range batch {
		for name := range rec.fields {
			columns[name] = struct{}{}
		}
	}

	ordered := make([]string, 0, len(columns))
	for name := range columns {
		ordered = append(ordered, name)
	}
	sort.Strings(ordered)

	for _, column := range ordered {
		shape, classified := c.schema.ShapeOf(column)
		if !classified {
			msg := fmt.Errorf("column %q not classified in the field schema", column)
			if c.strict {
				return domain.WrapError(domain.ErrShapeViolation, "enforce shapes", msg)
			}
			c.logger.Warn("unclassified_column", "column", column)
			continue
		}

		switch shape {
		case ShapeList:
			c.enforceList(batch, column)
		case ShapeScalar:
			if err := c.enforceScalar(batch, column); err != nil {
				return err
			}
		case ShapeCandidate:
			if err := c.enforceCandidate(batch, column); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Cleaner) enforceList(batch []record, column string) {
	for i := range batch {
		value, ok := batch[i].fields[column]
		if !ok {
			continue
		}
		if value.FromScalar {
			c.logger.Warn("scalar_in_list_column", "column", column, "row", i)
		}
		value.Values = dedupePreserveOrder(value.Values)
		value.FromScalar = false
		batch[i].fields[column] = value
	}
}

// enforceScalar requires at most one distinct value per row. Two or more
// distinct values signal a broken upstream assumption and must never be
// coerced to the first value.
func (c *Cleaner) enforceScalar(batch []record, column string) error {
	var offending []int
	for i := range batch {
		value, ok := batch[i].fields[column]
		if !ok {
			continue
		}
		value.Values = dedupePreserveOrder(value.Values)
		batch[i].fields[column] = value
		if len(value.Values) > 1 {
			offending = append(offending, i)
		}
	}
	if len(offending) > 0 {
		sample := offending
		if len(sample) > maxReportedRows {
			sample = sample[:maxReportedRows]
		}
		return domain.WrapError(domain.ErrShapeViolation, "enforce shapes",
			fmt.Errorf("column %q expected scalar but has multiple distinct values at rows %v", column, sample))
	}
	return nil
}

// enforceCandidate normalizes a candidate-scalar column as a list and only
// treats it as scalar when every row's deduplicated list has length <= 1
// across the whole batch; partial scalarization would give the column a
// shape that differs by row. The symbol column is exempt from the failure
// path: multi-symbol rows are resolved by the explosion stage.
func (c *Cleaner) enforceCandidate(batch []record, column string) error {
	var offending []int
	for i := range batch {
		value, ok := batch[i].fields[column]
		if !ok {
			continue
		}
		value.Values = dedupePreserveOrder(value.Values)
		value.FromScalar = false
		batch[i].fields[column] = value
		if len(value.Values) > 1 {
			offending = append(offending, i)
		}
	}
	if len(offending) == 0 || column == fieldSymbol {
		return nil
	}

	sample := offending
	if len(sample) > maxReportedRows {
		sample = sample[:maxReportedRows]
	}
	msg := fmt.Errorf("column %q expected to demote to scalar after dedupe but has lists with len > 1 at rows %v", column, sample)
	if c.strict {
		return domain.WrapError(domain.ErrShapeViolation, "enforce shapes", msg)
	}
	// Keep the column as a list so no information is lost.
	c.logger.Warn("candidate_column_kept_as_list", "column", column, "rows", len(offending))
	return nil
}
