// Package ir provides the typed, immutable representation of an event graph.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the graph model the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Conditions and actions are sealed unions: only the types declared here
//     implement Condition and Action, so every dispatch site can switch
//     exhaustively and fail loudly on anything else
//   - Action parameters are parsed once at load time into typed fields
//   - A Graph is read-only after construction and safe to share across runs
//   - Trace ordering uses logical sequence numbers, never wall-clock time
package ir
