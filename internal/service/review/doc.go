// Package review is the orchestrator between the scheduler and the stores.
//
// A review reads the card under a per-card lock, lets the scheduler compute the
// next memory state and writes the card and its log entry in one transaction.
// Committed reviews and failures are announced as events.
package review
