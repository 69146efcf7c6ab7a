package engine

import "strings"

// createPrefixes lists the CREATE forms that accept an IF NOT EXISTS guard.
// Longer prefixes first so CREATE UNIQUE INDEX is not matched as CREATE INDEX.
var createPrefixes = []string{
	"CREATE UNIQUE INDEX",
	"CREATE TABLE",
	"CREATE INDEX",
	"CREATE VIEW",
	"CREATE TRIGGER",
}

// MakeIdempotent inserts an IF NOT EXISTS guard into a CREATE statement that
// lacks one, so that re-executing the statement does not fail with "object
// already exists". Statements that already carry a guard, or that are not a
// guardable CREATE form, are returned trimmed but otherwise unchanged.
//
// The guard is required because a timed-out batch has unknown outcome: the
// retry may re-run a CREATE that already landed on the remote.
func MakeIdempotent(stmt string) string {
	trimmed := strings.TrimSpace(stmt)
	if strings.Contains(trimmed, "IF NOT EXISTS") {
		return trimmed
	}
	for _, prefix := range createPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return prefix + " IF NOT EXISTS" + trimmed[len(prefix):]
		}
	}
	return trimmed
}

// RewriteCreates rewrites every statement in the CREATE bucket to its
// idempotent form and marks it as such.
func RewriteCreates(b *Buckets) {
	for i := range b.Create {
		b.Create[i].SQL = MakeIdempotent(b.Create[i].SQL)
		b.Create[i].Idempotent = true
	}
}
