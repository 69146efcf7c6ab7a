package engine

import "strings"

// Category buckets a statement for ordered execution.
type Category int

// Execution order is CREATE, DELETE, INSERT, OTHER: schema objects must
// exist before data references them, and stale rows are removed before new
// ones are inserted.
const (
	CategoryCreate Category = iota
	CategoryDelete
	CategoryInsert
	CategoryOther
)

// Categories lists all categories in execution order.
var Categories = []Category{CategoryCreate, CategoryDelete, CategoryInsert, CategoryOther}

func (c Category) String() string {
	switch c {
	case CategoryCreate:
		return "CREATE"
	case CategoryDelete:
		return "DELETE"
	case CategoryInsert:
		return "INSERT"
	default:
		return "OTHER"
	}
}

// Statement is one trimmed SQL statement from a diff.
type Statement struct {
	SQL      string
	Category Category

	// Idempotent is set once the statement has been rewritten to tolerate
	// re-execution (CREATE ... IF NOT EXISTS).
	Idempotent bool
}

// Parse splits raw diff text into trimmed, non-empty statements, preserving
// their relative order. The BEGIN TRANSACTION / COMMIT wrapper emitted by
// sqldiff --transaction is discarded: the engine manages its own batching
// instead of replaying the diff as one transaction.
//
// Statements are split on the semicolon terminator; sqldiff emits one
// statement per line with literals escaped, so semicolons inside string
// literals do not occur in its output.
func Parse(diffText string) []string {
	var stmts []string
	for _, piece := range strings.Split(diffText, ";") {
		stmt := strings.TrimSpace(piece)
		if stmt == "" || stmt == "BEGIN TRANSACTION" || stmt == "COMMIT" {
			continue
		}
		stmts = append(stmts, stmt)
	}
	return stmts
}

// Buckets holds classified statements, one slice per category, each in
// original relative order.
type Buckets struct {
	Create []Statement
	Delete []Statement
	Insert []Statement
	Other  []Statement
}

// Bucket returns the slice for category c.
func (b *Buckets) Bucket(c Category) []Statement {
	switch c {
	case CategoryCreate:
		return b.Create
	case CategoryDelete:
		return b.Delete
	case CategoryInsert:
		return b.Insert
	default:
		return b.Other
	}
}

// Total returns the number of classified statements across all buckets.
func (b *Buckets) Total() int {
	return len(b.Create) + len(b.Delete) + len(b.Insert) + len(b.Other)
}

// ClassifyOptions parametrizes classification.
type ClassifyOptions struct {
	// Tables restricts DELETE/INSERT bucketing to statements targeting the
	// named tables; DELETE/INSERT statements against other tables fall into
	// OTHER and execute one at a time. Empty means all tables qualify for
	// batched execution.
	Tables []string
}

// Classify partitions statements into the four ordered buckets by keyword
// prefix. Classification is total: every input statement lands in exactly
// one bucket, and concatenating the buckets in category order reproduces
// each statement exactly once.
func Classify(stmts []string, opts ClassifyOptions) Buckets {
	var b Buckets
	for _, s := range stmts {
		switch {
		case strings.HasPrefix(s, "CREATE"):
			b.Create = append(b.Create, Statement{SQL: s, Category: CategoryCreate})
		case strings.HasPrefix(s, "DELETE") && tableMatch(s, "DELETE FROM ", opts.Tables):
			b.Delete = append(b.Delete, Statement{SQL: s, Category: CategoryDelete})
		case strings.HasPrefix(s, "INSERT") && tableMatch(s, "INSERT INTO ", opts.Tables):
			b.Insert = append(b.Insert, Statement{SQL: s, Category: CategoryInsert})
		default:
			b.Other = append(b.Other, Statement{SQL: s, Category: CategoryOther})
		}
	}
	return b
}

// tableMatch reports whether the statement targets one of the named tables.
// With no table policy, any statement with the keyword prefix matches.
func tableMatch(stmt, keyword string, tables []string) bool {
	if len(tables) == 0 {
		return true
	}
	for _, t := range tables {
		if strings.HasPrefix(stmt, keyword+t) {
			return true
		}
	}
	return false
}
