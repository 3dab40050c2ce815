// Package session connects the client to the servers of a LAO.
//
// It parses the connect QR payload, dials every listed server (failing on
// the first unreachable one), and subscribes to the LAO channel and the
// LAO-wide sub-channels.
package session
