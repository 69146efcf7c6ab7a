// Package engine implements the diff replay engine: parsing raw SQL diff
// text into statements, classifying them into ordered categories, rewriting
// CREATE statements to be idempotent, planning size-bounded batches, and
// executing those batches against a connection under a timeout/retry policy.
//
// The pipeline is:
//
//	diff text -> Parse -> Classify -> RewriteCreates -> PlanBatches -> Session.Run
//
// Categories execute strictly in order (CREATE, DELETE, INSERT, OTHER) and
// batches execute sequentially within a category; this ordering is a
// correctness requirement, not an optimization. Execution is at-least-once:
// a timed-out batch has unknown outcome and may be retried, which is why
// CREATE statements are rewritten with existence guards before planning.
//
// The ordering of DELETE before INSERT is safe for diffs where no DELETE
// depends on rows a later INSERT in the same diff would create; sqldiff
// output scoped by primary keys satisfies this, arbitrary SQL may not.
package engine
