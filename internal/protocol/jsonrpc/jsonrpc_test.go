package jsonrpc_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"popclient/internal/crypto"
	"popclient/internal/domain/types"
	"popclient/internal/message"
	"popclient/internal/poperr"
	"popclient/internal/protocol/jsonrpc"
)

func TestQueryFrame(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	msg, err := message.Build(message.NewCreateLao("lao", kp.Public, 1700000000, nil), kp)
	require.NoError(t, err)

	q := jsonrpc.NewQuery(7, jsonrpc.MethodPublish, jsonrpc.Params{Channel: types.RootChannel, Message: &msg})
	raw, err := json.Marshal(q)
	require.NoError(t, err)

	f, err := jsonrpc.ParseFrame(raw)
	require.NoError(t, err)
	require.False(t, f.IsAnswer())
	req, err := f.Request()
	require.NoError(t, err)
	require.Equal(t, 7, *req.ID)
	require.Equal(t, types.RootChannel, req.Params.Channel)
	require.True(t, msg.Equal(*req.Params.Message))
}

func TestAnswerFrames(t *testing.T) {
	ok, err := jsonrpc.NewResult(3, nil)
	require.NoError(t, err)
	raw, err := json.Marshal(ok)
	require.NoError(t, err)
	require.JSONEq(t, `{"jsonrpc":"2.0","id":3,"result":0}`, string(raw))

	failed := jsonrpc.NewError(nil, jsonrpc.CodeInvalidResource, "no channel %s", "/root/x")
	raw, err = json.Marshal(failed)
	require.NoError(t, err)
	f, err := jsonrpc.ParseFrame(raw)
	require.NoError(t, err)
	require.True(t, f.IsAnswer())
	require.Nil(t, f.ID)
	require.EqualError(t, f.Answer().Error, "server error -2: no channel /root/x")
}

func TestParseFrame_Errors(t *testing.T) {
	_, err := jsonrpc.ParseFrame([]byte(`{`))
	require.ErrorIs(t, err, poperr.ErrDecode)

	_, err = jsonrpc.ParseFrame([]byte(`{"jsonrpc":"1.0","method":"publish"}`))
	require.ErrorIs(t, err, poperr.ErrSchema)
}

func TestMessages_KeepsEntriesRaw(t *testing.T) {
	resp := jsonrpc.Response{Result: json.RawMessage(`[{"data":"!!notbase64"},{"data":"eyJhIjoxfQ=="}]`)}
	entries, err := resp.Messages()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.JSONEq(t, `{"data":"!!notbase64"}`, string(entries[0]))

	_, err = jsonrpc.Response{Result: json.RawMessage(`{"not":"a list"}`)}.Messages()
	require.ErrorIs(t, err, poperr.ErrDecode)
}
