/*
Package assert provides runtime assertions for internal invariants, and an error [Collector] for validation.

Assertions panic when violated, since a violated invariant in the ring buffer is a defect rather than an error the caller could handle.
To remove assertions entirely, build with the 'noassert' tag.
*/
package assert
