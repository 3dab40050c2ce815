// Package jsonrpc defines the JSON-RPC 2.0 frames exchanged with LAO servers.
//
// Clients send queries (publish, subscribe, unsubscribe, catchup) carrying a
// numeric id and receive answers with the same id. Servers push broadcast
// notifications, which carry no id, for every message published on a
// subscribed channel.
package jsonrpc
