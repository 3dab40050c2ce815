// Package main runs the in-memory LAO server used during development and
// tests. It speaks the client's JSON-RPC 2.0 protocol over a websocket.
//
// Protocol
//
//	subscribe  { channel }
//	    Register the peer for broadcasts on channel.
//
//	unsubscribe { channel }
//	    Stop broadcasts on channel.
//
//	publish    { channel, message }
//	    Verify the envelope and store it. Root accepts only lao#create,
//	    which also seeds the LAO channel. Every subscriber of channel
//	    receives a broadcast.
//
//	catchup    { channel }
//	    Return every stored message of channel in arrival order.
//
// Behaviour
//
//   - All state is held in memory and lost on process exit.
//   - Messages failing signature or id checks are answered with an error
//     object and never stored.
//   - The default listen address is :9000 and the websocket path is /client.
//
// The server does not run witnessing or consensus on its own; it is an
// untrusted store-and-forward middleman.
package main
