// Package events provides types and interfaces for an event-driven architecture.
//
// The review orchestrator emits events after it commits or fails an operation;
// handlers such as the metrics collector subscribe without the orchestrator
// knowing about them.
package events
