// Package relay talks JSON-RPC 2.0 over websocket to LAO servers.
//
// Conn is a single connection: it numbers queries, matches answers to them,
// enforces a per-query timeout and forwards broadcast notifications on a
// channel. Pool groups the connections of one session and sends every
// query to its first connection only; a failure there is returned as is and
// never retried on the others.
//
// Hub is an in-memory pub/sub server speaking the same protocol. It backs
// the development relay binary and the tests.
package relay
