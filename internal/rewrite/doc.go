// Package rewrite implements rewrite rules and their match/apply protocol for
// equality saturation.
//
// A Rewrite searches an e-graph with one or more left-hand patterns, filters
// each match through its conditions, runs its appliers and unions every new
// result into the matched class. Prior representations are never discarded:
// applying a rule only adds terms and equivalences.
//
// Rules are built with a Builder and are immutable afterwards, so one *Rewrite
// can be reused across saturation rounds and shared between goroutines. The
// e-graph passed to Search and Apply must not be used concurrently.
//
// This package never calls Rebuild and never decides when saturation should
// stop; that is the runner's job.
//
// APPLICATION LIMIT:
// Apply returns early once the number of recorded unions exceeds the rule's
// limit. The check is strictly greater-than, so a call with limit N returns
// at most N+1 ids. This is part of the observable contract.
package rewrite
