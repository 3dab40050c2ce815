// Package state holds the organization state built from accepted messages
// and the handler for every message type.
//
// Handlers are registered on an ingest.Registry and run one at a time under
// the pipeline lock; queries may run concurrently with them. Witness and
// attendance sets are persisted through domain.LaoStore so PoP tokens can be
// recovered after a restart.
package state
