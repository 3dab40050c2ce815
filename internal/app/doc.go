// Package app wires application dependencies for the CLI.
//
// It loads Config through viper, builds the zerolog logger, the concrete
// stores, the ingestion pipeline and the high-level services, and exposes
// them via the Wire struct for commands to use. Connect opens a session with
// the servers of one LAO and returns an App.
package app
