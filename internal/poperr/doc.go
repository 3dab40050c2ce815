// Package poperr defines the error taxonomy of the LAO client core.
//
// Every error crossing a public boundary of the core carries exactly one kind:
//
//   - ErrDecode          malformed base64 or JSON
//   - ErrSchema          payload does not match the declared object/action shape
//   - ErrAuthentication  signature or message id verification failure
//   - ErrProtocol        stale timestamps, duplicates, missing fields, unmet quorum
//   - ErrTransport       send failures, server errors and timeouts
//   - ErrConfiguration   handler registration problems
//
// Kinds are matched with errors.Is; the original cause stays reachable through
// the same call.
package poperr
