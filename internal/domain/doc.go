// Package domain holds the values the scheduler works on: memory cards, review
// log entries, grades, card states, content types and the legacy interval model.
// Scheduling itself lives in the srs subpackage.
package domain
