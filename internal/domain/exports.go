package domain

import (
	interfaces "popclient/internal/domain/interfaces"
	types "popclient/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Channel         = types.Channel
	Fingerprint     = types.Fingerprint
	Attendance      = types.Attendance
	Broadcast       = types.Broadcast
	ConnectPayload  = types.ConnectPayload
	PopTokenPayload = types.PopTokenPayload
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	KV              = interfaces.KV
	IdentityStore   = interfaces.IdentityStore
	MessageLog      = interfaces.MessageLog
	LogEntry        = interfaces.LogEntry
	AliasStore      = interfaces.AliasStore
	LaoStore        = interfaces.LaoStore
	RelayClient     = interfaces.RelayClient
	IdentityService = interfaces.IdentityService
	MessageService  = interfaces.MessageService
)

// RootChannel re-exports the root channel.
const RootChannel = types.RootChannel
