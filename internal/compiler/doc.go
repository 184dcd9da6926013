// Package compiler loads JSON event-graph configs into the ir graph model.
//
// Loading runs in three stages:
//  1. the document is unified with an embedded CUE schema, so shape errors
//     carry file positions
//  2. the validated value is decoded into typed conditions and actions,
//     applying defaults and checking free-form params
//  3. every static event reference (initial_event, next_event, on_timeout,
//     literal goto targets at any nesting depth) is resolved eagerly
//
// Every failure in a document is collected into ConfigErrors. Analyze adds
// non-fatal warnings for transition cycles and unreachable events.
package compiler
