// Package commands defines the pop CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init             Create the root key pair
//   - fingerprint      Print the root key fingerprint
//   - wallet new       Create a wallet and print its mnemonic
//   - wallet import    Import a wallet from a mnemonic
//   - wallet export    Print the stored mnemonic
//   - wallet token     Derive the PoP token of a roll call
//   - wallet recover   List the tokens of every roll call attended in a LAO
//   - qr               Decode and check a connect QR payload
//   - connect          Connect to a LAO and print its state
//   - chirp            Post a chirp with the PoP token of a roll call
//
// # Implementation
//
// The root command resolves the configuration through viper (flags, POP_*
// environment variables, $HOME/.pop/pop.yaml) and builds the dependency
// graph before any subcommand runs. Commands that talk to servers take a
// connect payload with --qr, or build one from --lao and the configured
// servers.
package commands
