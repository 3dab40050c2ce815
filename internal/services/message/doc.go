// Package message publishes signed messages and feeds received ones into
// the local message log.
//
// Every received message, whether from catchup or a broadcast, is verified
// before it is appended; rejected messages never reach the log. Appends are
// picked up by the ingestion watcher.
package message
