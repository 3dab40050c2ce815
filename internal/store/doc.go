// Package store provides persistence for the LAO client.
//
// Everything is built on the domain.KV contract, which has a file-backed
// implementation (one JSON file per key, written through a temp file and a
// rename) and an in-memory one. Typed stores on top of it:
//   - Keystore: root key pair and wallet mnemonic, sealed with scrypt and
//     ChaCha20-Poly1305
//   - MessageLog: accepted messages per channel, with append notifications
//   - AliasStore: secondary id to object id
//   - LaoStore: witness and attendance sets
//
// All methods are safe for concurrent use.
package store
