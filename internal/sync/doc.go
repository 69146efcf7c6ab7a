// Package sync orchestrates the synchronization workflows between a local
// working copy and a remote Turso database.
//
// Four workflows are provided:
//
//   - Embedded-replica sync: open an embedded replica and perform a single
//     idempotent Sync() call. No custom diffing.
//   - Dump-diff push: snapshot the baseline, diff it against the working
//     copy with sqldiff, and replay the diff against the remote through the
//     engine (classify, rewrite, batch, execute). On full success the
//     baseline is rebuilt from a fresh remote dump.
//   - Offline bidirectional sync: pull via Sync(), report a table-count
//     health check, push via Sync(). Both directions are delegated entirely
//     to the replication primitive.
//   - Diff-file apply: read a diff file from disk and replay it against a
//     local-only or sync-enabled connection, optionally followed by Sync().
//
// Every workflow terminates in one of two states: Complete (all batches
// succeeded, baseline refreshed where applicable) or Failed (the first
// unrecoverable batch aborts the remaining categories; effects of earlier
// categories are not rolled back). Callers are responsible for serializing
// concurrent invocations against the same baseline/working file pair.
package sync
