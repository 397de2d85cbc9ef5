// Package harness runs spacelink scenarios: scripted sequences of connect,
// disconnect, remove, drift and sync operations against a fresh store,
// followed by assertions on the resulting graph.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	group_tokens: [g-1, g-2]   # optional, one per connect, or one for all
//	tolerance: 0               # optional, for drift and sync steps
//	flow:
//	  - op: connect
//	    spaces:
//	      - {id: S1, name: Office, number: "101", supply: 120, return: 80, exhaust: 40}
//	      - {id: S2, name: Lab, number: "102", supply: 60, return: 60, exhaust: 0}
//	  - op: remove
//	    id: S2
//	    expect: {outcome: ok}
//	assertions:
//	  - type: peers
//	    id: S1
//	    peers: []
//	  - type: consistent
//
// # Operations
//
//   - connect: CreateGroup over spaces
//   - disconnect: BreakGroup over ids
//   - remove: BreakOne on id
//   - drift: NeedsUpdate for each of spaces; expect.drifted lists the ids
//   - sync: ApplyUpdate for each drifted space in spaces
//
// A step's outcome is "ok" or the error code the operation failed with. A
// step without an expect clause must succeed.
//
// # Assertion Types
//
//   - peers: the record's ConnectedIDs equal peers
//   - tracked: whether the id is tracked
//   - specified: the record's specified airflows
//   - consistent: Verify reports no violations
//   - trace_count: op appears exactly count times
//   - trace_order: ops appear in the given order
//
// # Deterministic Testing
//
// Each scenario runs in its own temporary directory with fixed group tokens
// (from group_tokens, the single group_tokens entry for every connect, or
// "group-1", "group-2", ...), so the final state can be
// compared against a golden snapshot.
package harness
