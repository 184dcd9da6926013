// Package automation provides a scripted Automation and Locator for running
// event graphs without a screen.
//
// A Script describes what is "on screen" over time: each item names an
// element key and the window of run time during which it is visible. OCR
// results are keyed by crop. Every input call is recorded as an "op:arg"
// string so tests and harness scenarios can assert on what a run did.
//
// Visibility is measured against the TimeSource the run uses, so a run on
// a fake clock sees the same screen changes on every replay.
package automation
