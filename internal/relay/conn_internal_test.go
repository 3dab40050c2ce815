package relay

import (
	"testing"

	"github.com/stretchr/testify/require"

	"popclient/internal/poperr"
	"popclient/internal/protocol/jsonrpc"
)

func TestAllocIDWrapsAndSkipsPending(t *testing.T) {
	c := &Conn{addr: "test", pending: make(map[int]chan jsonrpc.Response)}

	id, err := c.allocID()
	require.NoError(t, err)
	require.Equal(t, 1, id)

	c.nextID = MaxRequestID - 2
	id, err = c.allocID()
	require.NoError(t, err)
	require.Equal(t, MaxRequestID-1, id)

	c.pending[1] = nil
	c.pending[2] = nil
	id, err = c.allocID()
	require.NoError(t, err)
	require.Equal(t, 3, id)

	for i := 1; i < MaxRequestID; i++ {
		c.pending[i] = nil
	}
	_, err = c.allocID()
	require.ErrorIs(t, err, poperr.ErrTransport)
}
