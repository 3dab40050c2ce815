// Package ingest applies accepted messages to the organization state.
//
// A Registry maps every (object, action) key to its handler and refuses to
// start with a duplicate or a missing entry. The Pipeline processes each
// message id at most once: dedup, alias resolution of the target id, then
// dispatch, all under one lock so handlers never run concurrently. A Watcher
// follows the message log and feeds new entries to the pipeline in order.
package ingest
