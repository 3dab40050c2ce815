// Package message builds, parses and verifies LAO protocol messages.
//
// A Message wraps base64url-encoded JSON data signed by its sender; its id is
// the hash of the encoded data and signature. Data payloads form a closed set
// of (object, action) pairs, each with a typed Go struct registered in a
// Schema. The Validator enforces the receive order: staleness, schema,
// signature, then id. Witness quorum helpers live here too because they only
// depend on message ids and signatures.
package message
