package server_test

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/billboardcp/billboard-server/internal/config"
	"github.com/billboardcp/billboard-server/protocol"
	"github.com/billboardcp/billboard-server/server"
	"github.com/billboardcp/billboard-server/store/storefake"
)

func TestServerEndToEnd(t *testing.T) {
	cfg := &config.Config{
		ListenAddr:  "127.0.0.1:0",
		SessionTTL:  time.Hour,
		ViewerToken: "viewer",
	}
	srv, err := server.New(cfg, storefake.NewFakeStore(), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, srv.Listen())

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve() }()

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)

	enc := json.NewEncoder(conn)
	dec := json.NewDecoder(conn)

	// Strict request/response alternation over one persistent connection.
	require.NoError(t, enc.Encode(protocol.Request{Command: protocol.CommandTest}))
	var resp protocol.Response
	require.NoError(t, dec.Decode(&resp))
	require.Equal(t, protocol.StatusOK, resp.Status)
	require.Equal(t, "Test success", resp.Message)

	require.NoError(t, enc.Encode(protocol.Request{Command: protocol.CommandBillboards}))
	require.NoError(t, dec.Decode(&resp))
	require.Equal(t, protocol.StatusOK, resp.Status)

	require.NoError(t, conn.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	require.NoError(t, <-serveErr)
}
