package types_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"popclient/internal/crypto"
	"popclient/internal/domain/types"
	"popclient/internal/poperr"
)

func TestParseConnectPayload(t *testing.T) {
	lao := crypto.HashStrings("lao")

	p, err := types.ParseConnectPayload([]byte(`{"server":"ws://127.0.0.1:9000/client","lao":"` + lao.String() + `"}`))
	require.NoError(t, err)
	require.Equal(t, []string{"ws://127.0.0.1:9000/client"}, p.Addresses())
	require.Equal(t, lao, p.LaoID())

	p, err = types.ParseConnectPayload([]byte(`{"servers":["ws://a:1/client","ws://b:2/client"],"lao":"` + lao.String() + `"}`))
	require.NoError(t, err)
	require.Equal(t, []string{"ws://a:1/client", "ws://b:2/client"}, p.Addresses())
}

func TestParseConnectPayload_Rejects(t *testing.T) {
	lao := crypto.HashStrings("lao").String()
	cases := map[string]struct {
		raw  string
		kind error
	}{
		"not json":       {`{"server":`, poperr.ErrDecode},
		"unknown field":  {`{"server":"ws://a:1","lao":"` + lao + `","x":1}`, poperr.ErrSchema},
		"no server":      {`{"lao":"` + lao + `"}`, poperr.ErrSchema},
		"both":           {`{"server":"ws://a:1","servers":["ws://b:1"],"lao":"` + lao + `"}`, poperr.ErrSchema},
		"bad url":        {`{"server":"not a url","lao":"` + lao + `"}`, poperr.ErrSchema},
		"missing lao":    {`{"server":"ws://a:1"}`, poperr.ErrSchema},
		"lao not base64": {`{"server":"ws://a:1","lao":"%%%"}`, poperr.ErrDecode},
		"wrong type":     {`{"server":42,"lao":"` + lao + `"}`, poperr.ErrSchema},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := types.ParseConnectPayload([]byte(tc.raw))
			require.ErrorIs(t, err, tc.kind)
		})
	}
}

func TestParsePopTokenPayload(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	pk, err := types.ParsePopTokenPayload([]byte(`{"pop_token":"` + kp.Public.String() + `"}`))
	require.NoError(t, err)
	require.True(t, pk.Equal(kp.Public))

	_, err = types.ParsePopTokenPayload([]byte(`{"pop_token":""}`))
	require.ErrorIs(t, err, poperr.ErrSchema)
}

func TestChannelHelpers(t *testing.T) {
	lao := crypto.HashStrings("lao")
	ch := types.ChirpsChannel(lao)

	require.Equal(t, "/root/"+lao.String()+"/social/chirps", ch.String())
	id, ok := ch.LaoID()
	require.True(t, ok)
	require.Equal(t, lao, id)

	_, ok = types.RootChannel.LaoID()
	require.False(t, ok)
	require.Nil(t, types.RootChannel.Segments())

	_, err := types.ParseChannel("/elsewhere")
	require.ErrorIs(t, err, poperr.ErrDecode)
	_, err = types.ParseChannel("/root//x")
	require.ErrorIs(t, err, poperr.ErrDecode)
	parsed, err := types.ParseChannel(ch.String())
	require.NoError(t, err)
	require.Equal(t, ch, parsed)
}

func TestChannel_DecodeValidates(t *testing.T) {
	var ch types.Channel
	require.ErrorIs(t, json.Unmarshal([]byte(`"/elsewhere"`), &ch), poperr.ErrDecode)
	require.ErrorIs(t, json.Unmarshal([]byte(`"/root/a//b"`), &ch), poperr.ErrDecode)

	var b types.Broadcast
	err := json.Unmarshal([]byte(`{"channel":"root/x","message":{}}`), &b)
	require.ErrorIs(t, err, poperr.ErrDecode)

	require.NoError(t, json.Unmarshal([]byte(`{"channel":"/root/x","message":{}}`), &b))
	require.Equal(t, types.RootChannel.Child("x"), b.Channel)
}
