// Package harness runs YAML scenarios against the real engine.
//
// A scenario names a config, scripts what the screen shows over time, and
// states the expected terminal result plus assertions on the trace.
//
// # Scenario Format
//
//	name: enter_game
//	description: "Clicks Start once it appears and exits"
//	config: ../configs/enter_game.json
//	run_id: run-enter-game
//	screen:
//	  - element: "text:Start"
//	    visible_after: 2s
//	    location: [100, 200]
//	ocr: {"0,0,1,1": "Gold 120"}
//	expect:
//	  status: exited
//	  reason: done
//	  flags: {entered: true}
//	assertions:
//	  - {type: trace_contains, event: start, action: click, detail: {clicked: true}}
//	  - {type: trace_order, events: [start, finish]}
//	  - {type: trace_count, kind: event_enter, event: start, count: 1}
//	  - {type: automation_calls, calls: ["click:text:Start"]}
//
// # Assertion Types
//
//   - trace_contains: some trace event matches kind (default action), event,
//     action and a subset of its detail
//   - trace_order: events were entered (top level or inline) in this order
//   - trace_count: exactly count trace events match kind, event and action
//   - automation_calls: the scripted automation received these calls, in
//     order, or exactly these with exact: true
//
// # Deterministic Testing
//
// Every scenario runs on:
//   - a fake wall clock (testutil.FakeTime), so timeouts and polling take no
//     real time
//   - a fixed run id (scenario.run_id, default "test-run-default")
//   - a fresh in-memory SQLite store, read back after the run to check the
//     persisted trace
//
// so the same scenario always produces the same trace, and golden files
// (testdata/golden/<name>.golden) can hold it byte for byte.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/enter_game.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
