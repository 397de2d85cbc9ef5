// Package relate implements the spacelink relationship engine.
//
// The engine creates and breaks connection groups on top of the store while
// keeping the graph consistent. After every completed operation:
//
//   - Symmetry: B is a peer of A if and only if A is a peer of B
//   - Uniqueness: a space id is tracked at most once
//   - No dangling edges: every peer id names a tracked space
//   - No self-loops: a space is never its own peer
//
// CreateGroup is all-or-nothing: input is validated and checked against the
// store before anything is written, and the records of a new group are
// inserted in one transaction. Connecting a selection in which some spaces are
// already tracked (a group merge) is rejected with
// ErrCodeGroupMergeUnsupported until a merge policy exists.
//
// BreakOne and BreakGroup are best-effort. A failure part way through leaves
// the work already done in place and is reported as an error that says so
// (ErrCodeCleanupIncomplete, ErrCodePartialFailure). Callers that need the
// exact state re-query the store, or run Verify.
//
// The engine never panics into its caller; panics raised below it are
// converted to ErrCodeInternal errors.
package relate
