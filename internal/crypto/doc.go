// Package crypto exposes the value types and primitives of the LAO protocol.
//
// Contents
//
//   - Canonical hashing of ordered string sequences (HashStrings, Hash)
//   - Base64url data with exact UTF-8 round trip (Base64URLData)
//   - Ed25519 keys and detached signatures (PublicKey, PrivateKey, Signature,
//     KeyPair)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Notes
//
// All value types are immutable, validated at construction and compared on
// their decoded bytes. They marshal to and from their base64url text form so
// they can be embedded directly in wire structs. PrivateKey never hands out its
// bytes except through SealPrivateKey, which wipes the temporary copy.
package crypto
