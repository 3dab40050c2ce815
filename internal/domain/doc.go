// Package domain re-exports the LAO value types and the contracts between
// the client's layers (persistence, relay, services) so callers can import
// one package instead of types and interfaces separately.
package domain
