// Package broadcast delivers storage change events to subscribers.
//
// The Local broadcaster is the in-process implementation: producers push
// events onto a lock-free queue (so emitting an event never blocks a
// store operation) and one delivery goroutine fans them out to all
// registered callbacks in queue order.
//
// Every broadcaster carries a unique source ID. Outgoing events without
// a source are stamped with it, and consumers use the ID to recognize
// and skip their own events when instances are bridged together.
package broadcast
