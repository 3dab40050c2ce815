package jsonrpc

import (
	"encoding/json"
	"fmt"

	"popclient/internal/domain/types"
	"popclient/internal/message"
	"popclient/internal/poperr"
)

// Version is the only supported JSON-RPC version.
const Version = "2.0"

// Methods.
const (
	MethodPublish     = "publish"
	MethodSubscribe   = "subscribe"
	MethodUnsubscribe = "unsubscribe"
	MethodCatchup     = "catchup"
	MethodBroadcast   = "broadcast"
)

// Server error codes.
const (
	CodeInvalidAction       = -1
	CodeInvalidResource     = -2
	CodeAlreadyExists       = -3
	CodeInvalidMessageField = -4
	CodeAccessDenied        = -5
	CodeInternal            = -6
)

// Params are the parameters of every method. Message is set for publish and
// broadcast only.
type Params struct {
	Channel types.Channel    `json:"channel"`
	Message *message.Message `json:"message,omitempty"`
}

// Request is a query (with ID) or a broadcast notification (without).
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      *int   `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  Params `json:"params"`
}

// NewQuery returns a query with the given id.
func NewQuery(id int, method string, params Params) Request {
	return Request{JSONRPC: Version, ID: &id, Method: method, Params: params}
}

// NewBroadcast returns a broadcast notification.
func NewBroadcast(ch types.Channel, msg message.Message) Request {
	return Request{JSONRPC: Version, Method: MethodBroadcast, Params: Params{Channel: ch, Message: &msg}}
}

// Error is the error object of a failed answer.
type Error struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
}

func (e *Error) Error() string { return fmt.Sprintf("server error %d: %s", e.Code, e.Description) }

// Response answers a query.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int            `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// NewResult returns a successful answer. A nil result is encoded as 0.
func NewResult(id int, result any) (Response, error) {
	if result == nil {
		result = 0
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return Response{}, err
	}
	return Response{JSONRPC: Version, ID: &id, Result: raw}, nil
}

// NewError returns a failed answer.
func NewError(id *int, code int, format string, args ...any) Response {
	return Response{JSONRPC: Version, ID: id, Error: &Error{Code: code, Description: fmt.Sprintf(format, args...)}}
}

// Messages splits a catchup result into its entries. Entries stay raw so a
// malformed one can be rejected on its own.
func (r Response) Messages() ([]json.RawMessage, error) {
	var out []json.RawMessage
	if err := json.Unmarshal(r.Result, &out); err != nil {
		return nil, poperr.WrapDecode(err, "catchup result")
	}
	return out, nil
}

// Frame is any incoming frame before it is known to be a request or an
// answer.
type Frame struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int            `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error"`
}

// IsAnswer reports whether f answers a query.
func (f Frame) IsAnswer() bool { return f.Method == "" }

// ParseFrame decodes raw as a JSON-RPC 2.0 frame.
func ParseFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, poperr.WrapDecode(err, "jsonrpc frame")
	}
	if f.JSONRPC != Version {
		return Frame{}, poperr.Schemaf("unsupported jsonrpc version %q", f.JSONRPC)
	}
	return f, nil
}

// Answer converts an answer frame.
func (f Frame) Answer() Response {
	return Response{JSONRPC: f.JSONRPC, ID: f.ID, Result: f.Result, Error: f.Error}
}

// Request converts a query or notification frame.
func (f Frame) Request() (Request, error) {
	req := Request{JSONRPC: f.JSONRPC, ID: f.ID, Method: f.Method}
	if len(f.Params) > 0 {
		if err := json.Unmarshal(f.Params, &req.Params); err != nil {
			return Request{}, poperr.Classify(err, poperr.ErrDecode)
		}
	}
	return req, nil
}
