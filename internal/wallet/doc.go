// Package wallet derives PoP tokens from a BIP-39 mnemonic.
//
// A token is the Ed25519 key pair at the hardened SLIP-0010 path
// m/888'/0'/<lao path>/<roll call path>, where an id contributes one index
// per 3 bytes of its decoded form. The same mnemonic always yields the same
// token for a (LAO, roll call) pair and nothing else is stored, so tokens can
// be recovered from the mnemonic and the public attendance sets alone.
package wallet
