/*
Package ringbus provides an in-process event bus built on a disruptor style ring buffer.

# Design Priorities

  - Publishers never wait on a lock, only on the slowest subscriber when the ring is full.
  - Every subscriber sees every event of its type published after it subscribed, in publish order, at its own pace.
  - A slot is never overwritten until every registered subscriber has passed it.
  - Events of any type share one ring. A [Subscriber] only ever yields the type it was created for.

# Bus Initialization

Use [New] with [ConfigFunc] options such as [Capacity] to create a [Bus].
The capacity must be a power of two and is fixed for the lifetime of the [Bus].

# Event Flow

Use [Publish] or [PublishBatch] to claim slots and write events.
Use [Subscribe] to get a typed [Subscriber], and [Subscriber.Recv] to block until the next event of that type.
Each received [ring.Read] must be released once the event is no longer needed, so that replaced events can be recycled.

For cooperative schedulers that can't block on a full ring, [AsyncPublisher] accepts one event at a time and exposes readiness.
For push-style processing, [Consume] runs a handler for each event a [Subscriber] receives.

# Lapping

A [Subscriber] gates publishers, so it can't normally be lapped.
Lapping can still occur for a [Subscriber] that was registered while publishers were already claiming slots near its starting point.
What happens then is decided by its [LapPolicy].
*/
package ringbus
