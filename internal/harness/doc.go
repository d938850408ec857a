// Package harness runs generation scenarios as executable tests.
//
// A scenario names a profile, the generation options, and assertions about
// the rows produced. The harness generates the rows into a fresh in-memory
// store, then evaluates the assertions against both the rows and the store.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: people_valid
//	description: "Adults with an active status"
//	profiles: testdata/profiles/people
//	profile: people
//	mode: valid
//	strategy: field-exhaustive
//	max_rows: 10
//	values_per_field: 2
//	assertions:
//	  - type: row_count
//	    count: 2
//	  - type: row_contains
//	    row: { age: 18, status: active }
//	  - type: all_rows
//	    field: status
//	    in: [active]
//	  - type: unique_values
//	    field: age
//	  - type: violated_count
//	    rule: adult
//	    count: 0
//	  - type: stored_rows
//	    where: { violated: "" }
//	    count: 2
//
// # Deterministic Testing
//
// Every scenario runs with a fixed run ID (run_id, or "scenario-run") and a
// fresh database, so the same scenario always yields the same rows. Golden
// snapshots (RunWithGolden) rely on this.
package harness
