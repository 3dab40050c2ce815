// Package identity manages the local root key pair and the wallet.
//
// It enforces passphrase policy, generates the Ed25519 root key pair,
// creates or imports the wallet mnemonic, and persists both via the
// domain.IdentityStore. Signer picks the key that signs a message: the PoP
// token of a roll call the user attended, else the root key.
package identity
