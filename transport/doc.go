/*
Package transport relays typed events between processes.

A [Channel] sends and receives values of one type over any [io.ReadWriteCloser], such as a TCP connection from [Dial] or [Accept], or a websocket wrapped with [WebSocket].
Each value is encoded as a [Message] carrying the [typeid.ID] of its type, and written as a length prefixed frame.
Messages of another type than the [Channel] expects are dropped on receipt.

Use [Bridge] to connect a [Channel] to a [ringbus.Bus] in both directions.
*/
package transport
