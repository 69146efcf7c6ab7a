package engine

import "strings"

// Batch is an ordered group of same-category statements joined for
// single-unit execution.
type Batch struct {
	Category Category

	// Index is the batch's position within its category, starting at 1.
	Index int

	// SQL is the semicolon-joined, semicolon-terminated batch script.
	SQL string

	// Count is the number of statements in the batch.
	Count int
}

// BatchSizes bounds the statement count per batch for each category.
type BatchSizes struct {
	Create int
	Delete int
	Insert int
	Other  int
}

// DefaultBatchSizes returns the per-category batch bounds: CREATE and OTHER
// execute one statement at a time for failure isolation, DELETE uses large
// batches for throughput, INSERT moderate batches to balance payload size
// against retry granularity.
func DefaultBatchSizes() BatchSizes {
	return BatchSizes{
		Create: 1,
		Delete: 2000,
		Insert: 1000,
		Other:  1,
	}
}

// Size returns the bound for category c, defaulting to 1 for non-positive
// configured values.
func (s BatchSizes) Size(c Category) int {
	var n int
	switch c {
	case CategoryCreate:
		n = s.Create
	case CategoryDelete:
		n = s.Delete
	case CategoryInsert:
		n = s.Insert
	default:
		n = s.Other
	}
	if n < 1 {
		return 1
	}
	return n
}

// Plan is the ordered batch sequence for one diff, category order first,
// original statement order within each category.
type Plan struct {
	Batches    []Batch
	Statements int
}

// Empty reports whether the plan contains no batches.
func (p Plan) Empty() bool {
	return len(p.Batches) == 0
}

// PlanBatches groups each bucket's statements into size-bounded batches.
// A bucket of K statements with bound B yields ceil(K/B) batches, each of at
// most B statements, never reordered.
func PlanBatches(b Buckets, sizes BatchSizes) Plan {
	var plan Plan
	for _, cat := range Categories {
		stmts := b.Bucket(cat)
		size := sizes.Size(cat)
		for i := 0; i < len(stmts); i += size {
			end := i + size
			if end > len(stmts) {
				end = len(stmts)
			}
			chunk := stmts[i:end]
			sqls := make([]string, len(chunk))
			for j, s := range chunk {
				sqls[j] = s.SQL
			}
			plan.Batches = append(plan.Batches, Batch{
				Category: cat,
				Index:    i/size + 1,
				SQL:      strings.Join(sqls, ";\n") + ";",
				Count:    len(chunk),
			})
			plan.Statements += len(chunk)
		}
	}
	return plan
}
