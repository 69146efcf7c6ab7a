package engine

import (
	"fmt"
	"strings"
	"testing"
)

func makeBucket(cat Category, n int) []Statement {
	stmts := make([]Statement, n)
	for i := range stmts {
		stmts[i] = Statement{SQL: fmt.Sprintf("INSERT INTO t VALUES(%d)", i), Category: cat}
	}
	return stmts
}

func TestPlanBatches_CeilDivision(t *testing.T) {
	tests := []struct {
		k, b, want int
	}{
		{0, 500, 0},
		{1, 500, 1},
		{500, 500, 1},
		{501, 500, 2},
		{2500, 1000, 3},
	}

	for _, tt := range tests {
		buckets := Buckets{Insert: makeBucket(CategoryInsert, tt.k)}
		plan := PlanBatches(buckets, BatchSizes{Insert: tt.b, Create: 1, Delete: 1, Other: 1})

		if len(plan.Batches) != tt.want {
			t.Errorf("K=%d B=%d: got %d batches, want %d", tt.k, tt.b, len(plan.Batches), tt.want)
		}
		if plan.Statements != tt.k {
			t.Errorf("K=%d B=%d: plan.Statements = %d", tt.k, tt.b, plan.Statements)
		}
		for _, batch := range plan.Batches {
			if batch.Count > tt.b {
				t.Errorf("batch %d has %d statements, bound is %d", batch.Index, batch.Count, tt.b)
			}
		}
	}
}

func TestPlanBatches_OrderAndJoin(t *testing.T) {
	buckets := Buckets{Insert: makeBucket(CategoryInsert, 5)}
	plan := PlanBatches(buckets, BatchSizes{Insert: 2, Create: 1, Delete: 1, Other: 1})

	if len(plan.Batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(plan.Batches))
	}

	// Batches carry 1-based indexes and keep original statement order.
	want0 := "INSERT INTO t VALUES(0);\nINSERT INTO t VALUES(1);"
	if plan.Batches[0].SQL != want0 {
		t.Errorf("batch 1 SQL = %q, want %q", plan.Batches[0].SQL, want0)
	}
	if plan.Batches[0].Index != 1 || plan.Batches[2].Index != 3 {
		t.Errorf("batch indexes = %d, %d, %d", plan.Batches[0].Index, plan.Batches[1].Index, plan.Batches[2].Index)
	}
	if plan.Batches[2].Count != 1 || plan.Batches[2].SQL != "INSERT INTO t VALUES(4);" {
		t.Errorf("final partial batch = %+v", plan.Batches[2])
	}
}

func TestPlanBatches_CategoryOrder(t *testing.T) {
	buckets := Buckets{
		Create: []Statement{{SQL: "CREATE TABLE t(a)", Category: CategoryCreate}},
		Delete: makeBucket(CategoryDelete, 3),
		Insert: makeBucket(CategoryInsert, 3),
		Other:  []Statement{{SQL: "UPDATE t SET a=1", Category: CategoryOther}},
	}
	plan := PlanBatches(buckets, DefaultBatchSizes())

	var order []Category
	for _, batch := range plan.Batches {
		if len(order) == 0 || order[len(order)-1] != batch.Category {
			order = append(order, batch.Category)
		}
	}
	want := []Category{CategoryCreate, CategoryDelete, CategoryInsert, CategoryOther}
	if len(order) != len(want) {
		t.Fatalf("category order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("category order = %v, want %v", order, want)
		}
	}
}

func TestPlanBatches_SingleStatementCategories(t *testing.T) {
	buckets := Buckets{Create: makeBucket(CategoryCreate, 4)}
	plan := PlanBatches(buckets, DefaultBatchSizes())

	if len(plan.Batches) != 4 {
		t.Fatalf("CREATE should batch one at a time, got %d batches", len(plan.Batches))
	}
	for _, batch := range plan.Batches {
		if batch.Count != 1 {
			t.Errorf("CREATE batch %d has count %d", batch.Index, batch.Count)
		}
		if strings.Count(batch.SQL, ";") != 1 {
			t.Errorf("CREATE batch %d SQL = %q", batch.Index, batch.SQL)
		}
	}
}
