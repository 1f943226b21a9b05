// Package resource tracks the shared world-partition resources (map instances,
// the menu antechamber) that lobbies load and play on.
//
// The resource package implements:
//   - An exclusive ownership table mapping a resource to the lobby that owns it
//   - The Loader contract used to load and unload resources
//   - MemoryLoader, an in-process loader that reports lifecycle events
//   - Per-resource client membership (which sessions are inside a resource)
//
// Ownership:
//
// A resource has at most one owner at a time. Claiming a resource that the
// caller already owns, or releasing one it does not own, is a no-op. Table is
// safe for concurrent use so two lobbies racing for the same resource resolve
// to exactly one winner.
//
// Lifecycle Events:
//
// Loading is asynchronous. A Loader queues a Registered event once the
// resource is ready and a Deregistered event once it is gone. Consumers
// receive events through a Subscription, which owns its own queue and is
// removed from the loader when closed:
//
//	sub := loader.Subscribe()
//	defer sub.Close()
//
//	for _, ev := range sub.Drain() {
//		handle(ev)
//	}
package resource
