// Package srs implements the FSRS memory model that schedules reviews.
//
// A card's memory is described by stability (days until recall probability
// decays to 90%) and difficulty (1-10). Each grade moves both through a small
// set of closed-form formulas and picks the next interval so that recall
// probability at the due date matches the requested retention.
//
// Everything in this package is pure: time and identifiers are injected,
// nothing is persisted, and a Service can be shared between goroutines.
package srs
