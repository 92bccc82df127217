/*
Package sequence provides the progress counters that coordinate publishers and subscribers of a ring buffer.

A [Sequence] is a single atomically updated counter.
A [Group] tracks the [Sequence] of every registered consumer so the slowest one can be found quickly.
The [Sequencer] owns the write cursor and implements the claim protocol that reserves slots for publishers without lapping the slowest consumer in its [Group].
*/
package sequence
